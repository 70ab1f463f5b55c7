// Package urls builds links to images and gallery views.
package urls

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	ViewGallery = "Gallery"
	ViewImage   = "Image"
)

type Builder struct {
	host    string
	base    string
	rewrite bool
}

// New returns a builder. host is prepended for full URLs, base is the path
// prefix of the application. With rewrite, view links use pretty paths.
func New(host, base string, rewrite bool) *Builder {
	return &Builder{
		host:    strings.TrimRight(host, "/"),
		base:    strings.TrimRight(base, "/"),
		rewrite: rewrite,
	}
}

// ImageURL links to a rendered view of an image in the given style.
func (b *Builder) ImageURL(imageID int64, view string, full bool, style string) string {
	p := b.base + "/api/v1/images/" + strconv.FormatInt(imageID, 10) + "/view/" + url.PathEscape(view)
	if style != "" {
		p += "?" + url.Values{"style": {style}}.Encode()
	}

	return b.prefix(full) + p
}

type ViewParams struct {
	View    string
	Gallery int64
	Image   int64
	Slug    string
}

// ViewURL links to a gallery or image page.
func (b *Builder) ViewURL(p ViewParams, full bool) string {
	if b.rewrite {
		return b.prefix(full) + b.prettyPath(p)
	}

	q := url.Values{}
	q.Set("view", p.View)
	q.Set("gallery", strconv.FormatInt(p.Gallery, 10))
	if p.Slug != "" {
		q.Set("slug", p.Slug)
	}
	if p.View == ViewImage && p.Image != 0 {
		q.Set("image", strconv.FormatInt(p.Image, 10))
	}

	return b.prefix(full) + b.base + "/view.php?" + q.Encode()
}

func (b *Builder) prettyPath(p ViewParams) string {
	var sb strings.Builder
	sb.WriteString(b.base)
	sb.WriteString("/gallery/")
	if p.Slug != "" {
		sb.WriteString(url.PathEscape(p.Slug))
	} else {
		sb.WriteString("id/")
		sb.WriteString(strconv.FormatInt(p.Gallery, 10))
	}
	if p.View == ViewImage && p.Image != 0 {
		sb.WriteString("/")
		sb.WriteString(strconv.FormatInt(p.Image, 10))
	}

	return sb.String()
}

func (b *Builder) prefix(full bool) string {
	if full {
		return b.host
	}

	return ""
}
