package models

// GeoData is the geolocation projection of an image row.
type GeoData struct {
	ID        int64  `json:"id"`
	ImageID   int64  `json:"image_id"`
	GalleryID int64  `json:"gallery_id,omitempty"`
	Latitude  string `json:"image_latitude"`
	Longitude string `json:"image_longitude"`
	Location  string `json:"image_location"`
}

// Location is a distinct textual location with its coordinates.
type Location struct {
	Location  string `json:"image_location"`
	Latitude  string `json:"image_latitude"`
	Longitude string `json:"image_longitude"`
}
