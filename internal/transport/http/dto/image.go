package dto

import (
	"time"

	"ansel/internal/domain/models"
)

type ImageRequest struct {
	GalleryID    int64      `json:"gallery_id" validate:"required"`
	Filename     string     `json:"filename" validate:"required,max=255"`
	Type         string     `json:"type" validate:"required,max=100"`
	Caption      string     `json:"caption"`
	Sort         int        `json:"sort" validate:"min=0"`
	OriginalDate *time.Time `json:"original_date"`
	Latitude     string     `json:"latitude" validate:"omitempty,latitude"`
	Longitude    string     `json:"longitude" validate:"omitempty,longitude"`
	Location     string     `json:"location" validate:"max=255"`
}

func (r *ImageRequest) Image() *models.Image {
	img := &models.Image{
		Gallery:   r.GalleryID,
		Filename:  r.Filename,
		Type:      r.Type,
		Caption:   r.Caption,
		Sort:      r.Sort,
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Location:  r.Location,
	}
	if r.OriginalDate != nil {
		img.OriginalDate = r.OriginalDate.UTC()
	}

	return img
}

type ImageAttributeRequest struct {
	Name  string `json:"name" validate:"required,max=50"`
	Value string `json:"value" validate:"max=255"`
}

// ImagesQuery selects images by id list for the json and geo endpoints.
type ImagesQuery struct {
	IDs       []int64 `query:"ids"`
	GalleryID int64   `query:"gallery"`
	Style     string  `query:"style"`
	View      string  `query:"view"`
	Full      bool    `query:"full"`
	Links     bool    `query:"links"`
}

type CommentRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}
