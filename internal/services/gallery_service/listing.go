package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ansel/internal/domain/models"
	"ansel/internal/lib/identity"
	"ansel/internal/lib/textfilter"
	"ansel/internal/lib/urls"
	"ansel/internal/repository"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultJSONView = "mini"

	SortAscending  = 0
	SortDescending = 1
)

// ListGalleriesParams filters a gallery listing. A zero Perm means SHOW.
type ListGalleriesParams struct {
	Perm       models.Perm
	Attributes map[string]any
	Parent     *int64
	// DirectOnly limits the listing to direct children of Parent, or to
	// root galleries without a parent.
	DirectOnly bool
	From       int
	Count      int
	SortBy     string
	Direction  int
}

func (p ListGalleriesParams) query() repository.ShareQuery {
	perm := p.Perm
	if perm == 0 {
		perm = models.PermShow
	}

	return repository.ShareQuery{
		Perm:       perm,
		Attributes: p.Attributes,
		Parent:     p.Parent,
		AllLevels:  !p.DirectOnly,
		From:       p.From,
		Count:      p.Count,
		SortBy:     p.SortBy,
		Direction:  p.Direction,
	}
}

// ImageJSONOptions shape the records of GetImageJSON.
type ImageJSONOptions struct {
	// Style names the gallery style used for image urls.
	Style string
	Full  bool
	// View is the rendered image view, mini by default.
	View string
	// Links appends image and gallery page links to each record.
	Links bool
}

func (s *Scope) ListCategories(ctx context.Context, perm models.Perm, from, count int) ([]string, error) {
	const op = "services.Scope.ListCategories"

	ident := identity.FromContext(ctx)
	groups, err := s.userGroups(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	categories, err := s.shares.Categories(ctx, ident.User, groups, perm, from, count)
	if err != nil {
		return nil, s.repoErr(op, err)
	}

	return categories, nil
}

func (s *Scope) CountCategories(ctx context.Context, perm models.Perm) (int, error) {
	const op = "services.Scope.CountCategories"

	ident := identity.FromContext(ctx)
	groups, err := s.userGroups(ctx, ident)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.shares.CountCategories(ctx, ident.User, groups, perm)
	if err != nil {
		return 0, s.repoErr(op, err)
	}

	return n, nil
}

// CountGalleries counts the galleries user can access with perm. Results
// are remembered until a gallery is created or removed.
func (s *Scope) CountGalleries(ctx context.Context, user string, perm models.Perm, filter map[string]any, parent *int64, allLevels bool) (int, error) {
	const op = "services.Scope.CountGalleries"

	var parentID int64
	if parent != nil {
		parentID = *parent
	}
	key := fmt.Sprintf("%s,%d,%d,%t,%v", user, perm, parentID, allLevels, filter)
	if n, ok := s.counts.Get(key); ok {
		return n.(int), nil
	}

	var groups []string
	if ident := identity.FromContext(ctx); ident.User == user {
		g, err := s.userGroups(ctx, ident)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		groups = g
	}

	n, err := s.shares.CountShares(ctx, user, groups, repository.ShareQuery{
		Perm:       perm,
		Attributes: filter,
		Parent:     parent,
		AllLevels:  allLevels,
	})
	if err != nil {
		return 0, s.repoErr(op, err)
	}

	s.counts.Set(key, n, gocache.NoExpiration)

	return n, nil
}

// ListGalleries lists the galleries of the current user.
func (s *Scope) ListGalleries(ctx context.Context, p ListGalleriesParams) ([]*models.Gallery, error) {
	const op = "services.Scope.ListGalleries"

	ident := identity.FromContext(ctx)
	groups, err := s.userGroups(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	galleries, err := s.shares.ListShares(ctx, ident.User, groups, p.query())
	if err != nil {
		return nil, s.repoErr(op, err)
	}

	return galleries, nil
}

// GetRandomGallery returns nil when nothing matches. Otherwise it returns
// the last gallery of the listing.
func (s *Scope) GetRandomGallery(ctx context.Context, p ListGalleriesParams) (*models.Gallery, error) {
	const op = "services.Scope.GetRandomGallery"

	ident := identity.FromContext(ctx)
	groups, err := s.userGroups(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := p.query()
	q.From, q.Count = 0, 0
	n, err := s.shares.CountShares(ctx, ident.User, groups, q)
	if err != nil {
		return nil, s.repoErr(op, err)
	}
	if n == 0 {
		return nil, nil
	}

	galleries, err := s.ListGalleries(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(galleries) == 0 {
		return nil, nil
	}

	return galleries[len(galleries)-1], nil
}

func (s *Scope) ListGalleriesByTags(ctx context.Context, tags []string, matchAll bool) ([]*models.Gallery, error) {
	const op = "services.Scope.ListGalleriesByTags"

	ident := identity.FromContext(ctx)
	groups, err := s.userGroups(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	galleries, err := s.shares.SharesByTags(ctx, ident.User, groups, tags, matchAll)
	if err != nil {
		return nil, s.repoErr(op, err)
	}

	return galleries, nil
}

// ImageJSONRecords builds one record per visible image:
// [url, filename, caption, id, 0] and, with links, the image and gallery
// page urls. Images of galleries the viewer cannot read, is too young for
// or has not unlocked are left out.
func (s *Scope) ImageJSONRecords(ctx context.Context, ids []int64, opts ImageJSONOptions) ([][]any, error) {
	const op = "services.Scope.ImageJSONRecords"

	if opts.Style == "" {
		opts.Style = models.DefaultStyleName
	}
	if opts.View == "" {
		opts.View = defaultJSONView
	}

	ident := identity.FromContext(ctx)
	groups, err := s.userGroups(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	type galleryAccess struct {
		gallery *models.Gallery
		visible bool
	}
	access := make(map[int64]galleryAccess)

	var records [][]any
	for _, id := range ids {
		img, err := s.GetImage(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		gid := img.GalleryID()
		a, ok := access[gid]
		if !ok {
			g, err := s.GetGallery(ctx, gid, nil)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			a = galleryAccess{
				gallery: g,
				visible: g.HasPermission(ident.User, groups, models.PermRead) &&
					g.IsOldEnough(ident.User, ident.Age) &&
					!g.HasPasswd(ident.User, ident.IsUnlocked(gid)),
			}
			access[gid] = a
		}
		if !a.visible {
			continue
		}

		rec := []any{
			s.urls.ImageURL(img.ID, opts.View, opts.Full, opts.Style),
			textfilter.EscapeCompat(img.Filename),
			s.filter(img.Caption),
			img.ID,
			0,
		}
		if opts.Links {
			rec = append(rec,
				s.urls.ViewURL(urls.ViewParams{
					View:    urls.ViewImage,
					Gallery: img.Gallery,
					Image:   img.ID,
					Slug:    a.gallery.Slug,
				}, opts.Full),
				s.urls.ViewURL(urls.ViewParams{
					View:    urls.ViewGallery,
					Gallery: img.Gallery,
					Slug:    a.gallery.Slug,
				}, opts.Full),
			)
		}
		records = append(records, rec)
	}

	return records, nil
}

// GetImageJSON serializes ImageJSONRecords. It returns "" when no image is
// visible.
func (s *Scope) GetImageJSON(ctx context.Context, ids []int64, opts ImageJSONOptions) (string, error) {
	const op = "services.Scope.GetImageJSON"

	records, err := s.ImageJSONRecords(ctx, ids, opts)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(records) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// filenames and captions are already HTML escaped
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// GetImagesGeodata returns the geotagged images of galleryID, or among ids
// when no gallery is given. With neither it returns an empty list.
func (s *Scope) GetImagesGeodata(ctx context.Context, ids []int64, galleryID int64) ([]models.GeoData, error) {
	const op = "services.Scope.GetImagesGeodata"

	data, err := s.images.Geodata(ctx, ids, galleryID)
	if err != nil {
		return nil, s.repoErr(op, err)
	}

	return data, nil
}

// GetRecentImagesGeodata lists recently geotagged positions in galleries the
// viewer can edit, limited to galleries owned by user unless user is empty.
func (s *Scope) GetRecentImagesGeodata(ctx context.Context, user string, start, count int) ([]models.GeoData, error) {
	const op = "services.Scope.GetRecentImagesGeodata"

	ident := identity.FromContext(ctx)
	groups, err := s.userGroups(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	editable := s.shares.Criteria(ident.User, groups, models.PermEdit)
	data, err := s.images.RecentGeodata(ctx, editable, user, start, count)
	if err != nil {
		return nil, s.repoErr(op, err)
	}

	return data, nil
}

func (s *Scope) SearchLocations(ctx context.Context, prefix string) ([]models.Location, error) {
	const op = "services.Scope.SearchLocations"

	locations, err := s.images.SearchLocations(ctx, prefix)
	if err != nil {
		return nil, s.repoErr(op, err)
	}

	return locations, nil
}
