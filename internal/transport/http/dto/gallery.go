package dto

import (
	"ansel/internal/domain/models"
)

// PermissionRequest carries explicit grants for a new gallery. Values are
// permission bit sets.
type PermissionRequest struct {
	Default int            `json:"default" validate:"min=0,max=30"`
	Guest   int            `json:"guest" validate:"min=0,max=30"`
	Users   map[string]int `json:"users" validate:"dive,keys,required,endkeys,min=0,max=30"`
	Groups  map[string]int `json:"groups" validate:"dive,keys,required,endkeys,min=0,max=30"`
}

func (p *PermissionRequest) Permission() models.Permission {
	perm := models.NewPermission()
	perm.AddDefaultPermission(models.Perm(p.Default))
	perm.AddGuestPermission(models.Perm(p.Guest))
	for user, bits := range p.Users {
		perm.AddUserPermission(user, models.Perm(bits))
	}
	for group, bits := range p.Groups {
		perm.AddGroupPermission(group, models.Perm(bits))
	}

	return perm
}

type CreateGalleryRequest struct {
	Name        string             `json:"name" validate:"max=255"`
	Desc        string             `json:"desc"`
	Slug        string             `json:"slug" validate:"omitempty,max=255,excludesall=/?#"`
	Category    string             `json:"category" validate:"max=255"`
	Style       string             `json:"style" validate:"max=255"`
	Age         int                `json:"age" validate:"min=0,max=150"`
	Passwd      string             `json:"passwd"`
	ViewMode    string             `json:"view_mode" validate:"omitempty,oneof=Normal Date"`
	Download    string             `json:"download"`
	Parent      *int64             `json:"parent" validate:"omitempty,min=1"`
	Tags        []string           `json:"tags" validate:"dive,required,max=255"`
	Permissions *PermissionRequest `json:"permissions"`
}

// Attributes returns the explicitly set attributes. The rest get defaults.
func (r *CreateGalleryRequest) Attributes() models.GalleryAttributes {
	attrs := models.GalleryAttributes{}

	set := func(key, value string) {
		if value != "" {
			attrs[key] = value
		}
	}
	set("name", r.Name)
	set("desc", r.Desc)
	set("slug", r.Slug)
	set("category", r.Category)
	set("style", r.Style)
	set("passwd", r.Passwd)
	set("view_mode", r.ViewMode)
	set("download", r.Download)

	if r.Age > 0 {
		attrs["age"] = r.Age
	}
	if len(r.Tags) > 0 {
		attrs["tags"] = r.Tags
	}

	return attrs
}

type UnlockGalleryRequest struct {
	Passwd string `json:"passwd" validate:"required"`
}

type GalleryTagsRequest struct {
	Tags []string `json:"tags" validate:"dive,required,max=255"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
	Total      int      `json:"total"`
}

type GalleryListResponse struct {
	Galleries []*models.Gallery `json:"galleries"`
	Total     int               `json:"total"`
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}
