package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"ansel/internal/domain/models"
	"ansel/internal/lib/identity"
	"ansel/internal/lib/logger/sl"
	"ansel/internal/lib/urls"
	"ansel/internal/metrics"
	"ansel/internal/repository"
	"ansel/internal/storage"
	"ansel/internal/storage/filestorage"

	gocache "github.com/patrickmn/go-cache"
)

const (
	galleryCachePrefix = "Ansel_Gallery"
	otherCachePrefix   = "Ansel_OtherGalleries"
)

// Comment visibility settings.
const (
	CommentsNever         = "never"
	CommentsAuthenticated = "authenticated"
	CommentsAll           = "all"
)

// Prefs are the site preferences applied by the access layer.
type Prefs struct {
	DefaultPermissions  string
	GuestPermissions    string
	GroupPermissions    string
	DefaultGalleryStyle string
	DefaultCategory     string
	DefaultDownload     string
	CommentsAllow       string
	// CacheLifetime is the maximum age of a shared cache entry.
	CacheLifetime time.Duration
}

// Deps are the collaborators of the access layer. Comments, Cache and Files
// may be nil.
type Deps struct {
	Shares   repository.ShareRepository
	Images   repository.ImageRepository
	Groups   repository.GroupRepository
	Comments repository.CommentRepository
	Cache    storage.Cache
	Files    filestorage.FileStorage
	Styles   func(name string) models.Style
	URLs     *urls.Builder
	Filter   func(string) string
}

// GalleryService is shared by every request. Per request state lives in a
// Scope.
type GalleryService struct {
	log      *slog.Logger
	shares   repository.ShareRepository
	images   repository.ImageRepository
	groups   repository.GroupRepository
	comments repository.CommentRepository
	cache    storage.Cache
	files    filestorage.FileStorage
	styles   func(name string) models.Style
	urls     *urls.Builder
	filter   func(string) string
	prefs    Prefs
	counts   *gocache.Cache
	now      func() time.Time
}

func NewGalleryService(log *slog.Logger, deps Deps, prefs Prefs) *GalleryService {
	styles := deps.Styles
	if styles == nil {
		styles = func(string) models.Style { return models.DefaultStyle }
	}
	filter := deps.Filter
	if filter == nil {
		filter = func(s string) string { return s }
	}

	return &GalleryService{
		log:      log,
		shares:   deps.Shares,
		images:   deps.Images,
		groups:   deps.Groups,
		comments: deps.Comments,
		cache:    deps.Cache,
		files:    deps.Files,
		styles:   styles,
		urls:     deps.URLs,
		filter:   filter,
		prefs:    prefs,
		counts:   gocache.New(gocache.NoExpiration, 0),
		now:      time.Now,
	}
}

// Scope is the request scoped view of the access layer. It must not be
// shared between goroutines.
type Scope struct {
	*GalleryService

	galleries map[int64]*models.Gallery
	imageMemo map[int64]*models.Image
}

func (s *GalleryService) Scope() *Scope {
	return &Scope{
		GalleryService: s,
		galleries:      make(map[int64]*models.Gallery),
		imageMemo:      make(map[int64]*models.Image),
	}
}

func galleryKey(id int64) string {
	return galleryCachePrefix + strconv.FormatInt(id, 10)
}

func otherGalleriesKey(owner string) string {
	return otherCachePrefix + owner
}

func backendErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, storage.ErrBackend, err)
}

// repoErr keeps usage and lookup errors and marks anything else as a
// backend failure.
func (s *GalleryService) repoErr(op string, err error) error {
	if errors.Is(err, storage.ErrInvalidAttribute) || errors.Is(err, storage.ErrImagesParams) || storage.IsNotFound(err) {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Error("storage failure", slog.String("op", op), sl.Err(err))

	return backendErr(op, err)
}

// CreateGallery stores a new gallery. Missing attributes and an empty owner,
// name or desc get defaults, both dates are set to now, the "tags"
// attribute is attached after creation and a nil perm applies the default
// permissions.
func (s *Scope) CreateGallery(ctx context.Context, attrs models.GalleryAttributes, perm *models.Permission, parent *int64) (*models.Gallery, error) {
	const op = "services.Scope.CreateGallery"

	ident := identity.FromContext(ctx)
	log := s.log.With(
		slog.String("op", op),
		slog.String("user", ident.User),
	)

	values := make(map[string]any, len(attrs))
	for k, v := range attrs {
		values[k] = v
	}

	var tags []string
	if raw, ok := values["tags"]; ok {
		t, ok := raw.([]string)
		if !ok {
			return nil, fmt.Errorf("%s: %w: tags must be a list", op, storage.ErrInvalidAttribute)
		}
		tags = t
		delete(values, "tags")
	}

	if slug, _ := values["slug"].(string); slug != "" {
		owner, err := s.SlugExists(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if owner != 0 {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrSlugExists)
		}
	}

	if plain, _ := values["passwd"].(string); plain != "" {
		hash, err := models.HashPasswd(plain)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		values["passwd"] = hash
	}

	defaults := map[string]any{
		"owner":        ident.User,
		"name":         models.DefaultGalleryName,
		"desc":         "",
		"style":        s.prefs.DefaultGalleryStyle,
		"category":     s.prefs.DefaultCategory,
		"images":       0,
		"slug":         "",
		"age":          0,
		"download":     s.prefs.DefaultDownload,
		"view_mode":    models.DefaultViewMode,
		"default_type": models.DefaultType,
		"default":      0,
		"passwd":       "",
	}
	for k, v := range defaults {
		cur, ok := values[k]
		if !ok || (emptyDefaulted[k] && isEmpty(cur)) {
			values[k] = v
		}
	}

	now := s.now().UTC().Truncate(time.Second)
	values["date_created"] = now
	values["last_modified"] = now

	owner, _ := values["owner"].(string)
	name, _ := values["name"].(string)
	g := s.shares.NewShare(owner, name)
	for k, v := range values {
		if err := g.Set(k, v); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, storage.ErrInvalidAttribute, err)
		}
	}

	if perm != nil {
		g.SetPermission(perm.Clone())
	} else {
		p, err := s.defaultPermission(ctx, ident)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		g.SetPermission(p)
	}

	var parentGallery *models.Gallery
	if parent != nil && *parent != 0 {
		p, err := s.GetGallery(ctx, *parent, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		parentGallery = p
		g.SetParent(p)
	}

	if err := s.shares.AddShare(ctx, g); err != nil {
		if errors.Is(err, storage.ErrSlugExists) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrSlugExists)
		}
		log.Error("failed to add share", sl.Err(err))
		return nil, backendErr(op, err)
	}

	if len(tags) > 0 {
		if err := s.shares.SetTags(ctx, g.ID, tags); err != nil {
			log.Error("failed to tag gallery", sl.Err(err))
			return nil, backendErr(op, err)
		}
		g.Tags = tags
	}

	if parentGallery != nil && !parentGallery.HasSubgalleries {
		parentGallery.HasSubgalleries = true
		if err := s.saveGallery(ctx, parentGallery); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if parentGallery != nil {
		s.expireGallery(ctx, parentGallery.ID)
	}

	s.counts.Flush()

	log.Info("gallery created", slog.Int64("id", g.ID))

	return g, nil
}

// emptyDefaulted lists the attributes whose empty values fall back to the
// default like missing ones.
var emptyDefaulted = map[string]bool{
	"owner": true,
	"name":  true,
	"desc":  true,
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}

	return false
}

func (s *Scope) defaultPermission(ctx context.Context, ident identity.Identity) (models.Permission, error) {
	perm := models.NewPermission()

	def, err := models.UserLevel(s.prefs.DefaultPermissions)
	if err != nil {
		return perm, err
	}
	guest, err := models.GuestLevel(s.prefs.GuestPermissions)
	if err != nil {
		return perm, err
	}
	group, err := models.GroupLevel(s.prefs.GroupPermissions)
	if err != nil {
		return perm, err
	}

	perm.AddDefaultPermission(def)
	perm.AddGuestPermission(guest)

	if group != 0 && !ident.IsGuest() {
		groups, err := s.userGroups(ctx, ident)
		if err != nil {
			return perm, err
		}
		for _, g := range groups {
			perm.AddGroupPermission(g, group)
		}
	}

	return perm, nil
}

// HasPermission reports whether the current viewer holds perm on g.
func (s *Scope) HasPermission(ctx context.Context, g *models.Gallery, perm models.Perm) (bool, error) {
	const op = "services.Scope.HasPermission"

	ident := identity.FromContext(ctx)
	groups, err := s.userGroups(ctx, ident)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return g.HasPermission(ident.User, groups, perm), nil
}

// userGroups merges the groups carried by the identity with the stored
// memberships of the user.
func (s *Scope) userGroups(ctx context.Context, ident identity.Identity) ([]string, error) {
	const op = "services.Scope.userGroups"

	if ident.IsGuest() {
		return nil, nil
	}

	groups := append([]string(nil), ident.Groups...)
	if s.groups == nil {
		return groups, nil
	}

	stored, err := s.groups.Memberships(ctx, ident.User)
	if err != nil {
		return nil, backendErr(op, err)
	}

	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		seen[g] = true
	}
	for _, g := range stored {
		if !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
	}

	return groups, nil
}

// GetGallery resolves a gallery through the request cache, the shared cache
// and finally the share repository. With overrides the result is a patched
// copy that is never cached.
func (s *Scope) GetGallery(ctx context.Context, id int64, overrides map[string]any) (*models.Gallery, error) {
	const op = "services.Scope.GetGallery"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("id", id),
	)

	if len(overrides) == 0 {
		if g, ok := s.galleries[id]; ok {
			metrics.GalleryLookups.WithLabelValues(metrics.TierRequest).Inc()
			return g, nil
		}

		if s.cache != nil {
			data, err := s.cache.Get(ctx, galleryKey(id), s.prefs.CacheLifetime)
			switch {
			case err == nil:
				g, err := models.UnmarshalCachedGallery(data)
				if err == nil {
					metrics.GalleryLookups.WithLabelValues(metrics.TierShared).Inc()
					s.galleries[id] = g
					return g, nil
				}
				log.Warn("dropping undecodable cache entry", sl.Err(err))
			case !errors.Is(err, storage.ErrCacheMiss):
				log.Warn("shared cache lookup failed", sl.Err(err))
			}
		}
	}

	g, err := s.shares.GetShareByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrGalleryNotFound) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
		}
		log.Error("failed to fetch share", sl.Err(err))
		return nil, backendErr(op, err)
	}
	metrics.GalleryLookups.WithLabelValues(metrics.TierBackend).Inc()

	if len(overrides) > 0 {
		g = g.Clone()
		for k, v := range overrides {
			if err := g.Set(k, v); err != nil {
				return nil, fmt.Errorf("%s: %w: %w", op, storage.ErrInvalidAttribute, err)
			}
		}
		return g, nil
	}

	s.galleries[id] = g
	if s.cache != nil {
		data, err := g.MarshalCache()
		if err == nil {
			err = s.cache.Set(ctx, galleryKey(id), data)
		}
		if err != nil {
			log.Warn("failed to fill shared cache", sl.Err(err))
		}
	}

	return g, nil
}

func (s *Scope) GetGalleryBySlug(ctx context.Context, slug string, overrides map[string]any) (*models.Gallery, error) {
	const op = "services.Scope.GetGalleryBySlug"

	id, err := s.SlugExists(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if id == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
	}

	return s.GetGallery(ctx, id, overrides)
}

// GetGalleries fetches galleries by id, bypassing both caches.
func (s *Scope) GetGalleries(ctx context.Context, ids []int64) ([]*models.Gallery, error) {
	const op = "services.Scope.GetGalleries"

	galleries, err := s.shares.GetShares(ctx, ids)
	if err != nil {
		s.log.Error("failed to fetch shares", slog.String("op", op), sl.Err(err))
		return nil, backendErr(op, err)
	}

	return galleries, nil
}

func (s *Scope) GetGalleriesBySlugs(ctx context.Context, slugs []string) ([]*models.Gallery, error) {
	const op = "services.Scope.GetGalleriesBySlugs"

	ids, err := s.shares.IDsBySlugs(ctx, slugs)
	if err != nil {
		s.log.Error("failed to resolve slugs", slog.String("op", op), sl.Err(err))
		return nil, backendErr(op, err)
	}

	return s.GetGalleries(ctx, ids)
}

// SlugExists returns the id of the gallery using slug, or 0.
func (s *Scope) SlugExists(ctx context.Context, slug string) (int64, error) {
	const op = "services.Scope.SlugExists"

	if slug == "" {
		return 0, nil
	}

	id, err := s.shares.SlugOwner(ctx, slug)
	if err != nil {
		s.log.Error("failed to look up slug", slog.String("op", op), sl.Err(err))
		return 0, backendErr(op, err)
	}

	return id, nil
}

func (s *Scope) GalleryExists(ctx context.Context, id int64, slug string) (bool, error) {
	const op = "services.Scope.GalleryExists"

	if slug != "" {
		owner, err := s.SlugExists(ctx, slug)
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return owner != 0, nil
	}

	ok, err := s.shares.Exists(ctx, id)
	if err != nil {
		return false, backendErr(op, err)
	}

	return ok, nil
}

// EmptyGallery removes the stack and every image of g and resets its image
// count. It stops at the first image it fails to remove and leaves the count
// untouched.
func (s *Scope) EmptyGallery(ctx context.Context, g *models.Gallery) error {
	const op = "services.Scope.EmptyGallery"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("id", g.ID),
	)

	for _, gid := range []int64{-g.ID, g.ID} {
		images, err := s.images.ListImages(ctx, repository.ListImagesQuery{
			GalleryID: gid,
			Fields:    []string{"image_id"},
		})
		if err != nil {
			log.Error("failed to list images", sl.Err(err))
			return backendErr(op, err)
		}

		for _, img := range images {
			// the count is reset below
			if err := s.RemoveImage(ctx, g, img.ID, true); err != nil {
				log.Error("failed to remove image", slog.Int64("image_id", img.ID), sl.Err(err))
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	g.Images = 0
	if err := s.saveGallery(ctx, g); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.expireKey(ctx, otherGalleriesKey(g.Owner))

	return nil
}

// RemoveGallery deletes g with everything below it. The parent loses its
// subgallery flag once the current user can see none of its children.
func (s *Scope) RemoveGallery(ctx context.Context, g *models.Gallery) (bool, error) {
	const op = "services.Scope.RemoveGallery"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("id", g.ID),
	)

	children, err := s.shares.Descendants(ctx, g)
	if err != nil {
		log.Error("failed to list descendants", sl.Err(err))
		return false, backendErr(op, err)
	}

	for _, child := range children {
		if err := s.EmptyGallery(ctx, child); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.shares.SetTags(ctx, child.ID, nil); err != nil {
			return false, backendErr(op, err)
		}
	}

	if err := s.EmptyGallery(ctx, g); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.shares.SetTags(ctx, g.ID, nil); err != nil {
		return false, backendErr(op, err)
	}
	g.Tags = nil

	parentID := g.ParentID()

	if err := s.shares.RemoveShare(ctx, g); err != nil {
		log.Error("failed to remove share", sl.Err(err))
		return false, backendErr(op, err)
	}

	s.expireGallery(ctx, g.ID)
	for _, child := range children {
		s.expireGallery(ctx, child.ID)
	}
	s.counts.Flush()

	if parentID != 0 {
		if err := s.refreshSubgalleries(ctx, parentID); err != nil {
			log.Warn("failed to update parent", slog.Int64("parent", parentID), sl.Err(err))
		}
	}

	log.Info("gallery removed")

	return true, nil
}

func (s *Scope) refreshSubgalleries(ctx context.Context, parentID int64) error {
	ident := identity.FromContext(ctx)
	groups, err := s.userGroups(ctx, ident)
	if err != nil {
		return err
	}

	n, err := s.shares.CountShares(ctx, ident.User, groups, repository.ShareQuery{
		Perm:   models.PermShow,
		Parent: &parentID,
	})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	parent, err := s.GetGallery(ctx, parentID, nil)
	if err != nil {
		return err
	}
	parent.HasSubgalleries = false

	return s.saveGallery(ctx, parent)
}

// UnlockGallery checks passwd against the gallery password.
func (s *Scope) UnlockGallery(ctx context.Context, g *models.Gallery, passwd string) error {
	const op = "services.Scope.UnlockGallery"

	if !g.CheckPasswd(passwd) {
		s.log.Info("wrong gallery password", slog.String("op", op), slog.Int64("id", g.ID))
		return fmt.Errorf("%s: %w", op, storage.ErrWrongPassword)
	}

	return nil
}

func (s *Scope) SetGalleryTags(ctx context.Context, g *models.Gallery, tags []string) error {
	const op = "services.Scope.SetGalleryTags"

	if err := s.shares.SetTags(ctx, g.ID, tags); err != nil {
		s.log.Error("failed to tag gallery", slog.String("op", op), sl.Err(err))
		return backendErr(op, err)
	}
	g.Tags = append([]string(nil), tags...)
	s.expireKey(ctx, galleryKey(g.ID))

	return nil
}

// saveGallery writes g and drops stale cached copies of it.
func (s *Scope) saveGallery(ctx context.Context, g *models.Gallery) error {
	const op = "services.Scope.saveGallery"

	if err := s.shares.SaveShare(ctx, g); err != nil {
		if errors.Is(err, storage.ErrSlugExists) || errors.Is(err, storage.ErrGalleryNotFound) {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.log.Error("failed to save share", slog.String("op", op), sl.Err(err))
		return backendErr(op, err)
	}

	if cached, ok := s.galleries[g.ID]; ok && cached != g {
		delete(s.galleries, g.ID)
	}
	s.expireKey(ctx, galleryKey(g.ID))

	return nil
}

func (s *Scope) expireGallery(ctx context.Context, id int64) {
	delete(s.galleries, id)
	s.expireKey(ctx, galleryKey(id))
}

func (s *Scope) expireKey(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Expire(ctx, key); err != nil {
		s.log.Warn("failed to expire cache entry", slog.String("key", key), sl.Err(err))
	}
}
