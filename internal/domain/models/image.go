package models

import (
	"strings"
	"time"
)

// Image is a single photo row. A negative Gallery marks an image that
// belongs to the stack of gallery -Gallery.
type Image struct {
	ID           int64     `json:"id"`
	Gallery      int64     `json:"gallery"`
	Filename     string    `json:"filename"`
	Type         string    `json:"type"`
	Caption      string    `json:"caption"`
	Sort         int       `json:"sort"`
	Uploaded     time.Time `json:"uploaded"`
	OriginalDate time.Time `json:"original_date"`
	Latitude     string    `json:"latitude,omitempty"`
	Longitude    string    `json:"longitude,omitempty"`
	Location     string    `json:"location,omitempty"`
	GeotagDate   time.Time `json:"geotag_date"`
	Faces        int       `json:"faces"`
	CommentCount int       `json:"comment_count"`
}

// GalleryID is the owning gallery id with the stack sign removed.
func (i *Image) GalleryID() int64 {
	if i.Gallery < 0 {
		return -i.Gallery
	}

	return i.Gallery
}

func (i *Image) IsStack() bool {
	return i.Gallery < 0
}

func (i *Image) HasGeotag() bool {
	return i.Latitude != ""
}

// Validate checks the fields required to insert a new image.
func (i *Image) Validate() error {
	var missing []string

	if i.Gallery == 0 {
		missing = append(missing, "gallery")
	}
	if i.Filename == "" {
		missing = append(missing, "filename")
	}
	if i.Type == "" {
		missing = append(missing, "type")
	}

	if len(missing) > 0 {
		return &ImageValidationError{Missing: missing}
	}

	return nil
}

// ImageValidationError lists required fields absent on insert.
type ImageValidationError struct {
	Missing []string
}

func (e *ImageValidationError) Error() string {
	return "missing " + strings.Join(e.Missing, ", ")
}

// ImageAttribute is one free-form name/value pair of an image.
type ImageAttribute struct {
	ImageID int64  `json:"image_id"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}
