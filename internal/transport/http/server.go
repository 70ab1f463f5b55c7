package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"ansel/internal/domain/models"
	"ansel/internal/lib/identity"
	"ansel/internal/lib/jwt"
	"ansel/internal/lib/logger/sl"
	gallery "ansel/internal/services/gallery_service"
	render "ansel/internal/services/image_service"
	"ansel/internal/storage"
	"ansel/internal/storage/filestorage"
	"ansel/internal/transport/http/dto/response"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName        = "session"
	sessionUserKey     = "user_id"
	sessionAgeKey      = "age"
	sessionUnlockedKey = "unlocked"

	scopeKey = "gallery_scope"
)

// GalleryScope is the per request view of the gallery service.
type GalleryScope interface {
	CreateGallery(ctx context.Context, attrs models.GalleryAttributes, perm *models.Permission, parent *int64) (*models.Gallery, error)
	GetGallery(ctx context.Context, id int64, overrides map[string]any) (*models.Gallery, error)
	GetGalleryBySlug(ctx context.Context, slug string, overrides map[string]any) (*models.Gallery, error)
	ListGalleries(ctx context.Context, p gallery.ListGalleriesParams) ([]*models.Gallery, error)
	CountGalleries(ctx context.Context, user string, perm models.Perm, filter map[string]any, parent *int64, allLevels bool) (int, error)
	GetRandomGallery(ctx context.Context, p gallery.ListGalleriesParams) (*models.Gallery, error)
	GetGalleries(ctx context.Context, ids []int64) ([]*models.Gallery, error)
	GetGalleriesBySlugs(ctx context.Context, slugs []string) ([]*models.Gallery, error)
	GalleryExists(ctx context.Context, id int64, slug string) (bool, error)
	ListGalleriesByTags(ctx context.Context, tags []string, matchAll bool) ([]*models.Gallery, error)
	RemoveGallery(ctx context.Context, g *models.Gallery) (bool, error)
	EmptyGallery(ctx context.Context, g *models.Gallery) error
	UnlockGallery(ctx context.Context, g *models.Gallery, passwd string) error
	SetGalleryTags(ctx context.Context, g *models.Gallery, tags []string) error
	HasPermission(ctx context.Context, g *models.Gallery, perm models.Perm) (bool, error)

	ListCategories(ctx context.Context, perm models.Perm, from, count int) ([]string, error)
	CountCategories(ctx context.Context, perm models.Perm) (int, error)

	GetImage(ctx context.Context, id int64) (*models.Image, error)
	GetImages(ctx context.Context, p gallery.GetImagesParams) ([]*models.Image, error)
	GetRecentImages(ctx context.Context, galleryIDs []int64, limit int, slugs []string) ([]*models.Image, error)
	SaveImage(ctx context.Context, img *models.Image) (int64, error)
	AddImage(ctx context.Context, g *models.Gallery, img *models.Image) (int64, error)
	RemoveImage(ctx context.Context, g *models.Gallery, imageID int64, isStack bool) error
	SaveImageAttribute(ctx context.Context, imageID int64, name, value string) error
	GetImageAttributes(ctx context.Context, imageID int64) (map[string]string, error)
	GetImageJSON(ctx context.Context, ids []int64, opts gallery.ImageJSONOptions) (string, error)
	AddComment(ctx context.Context, imageID int64, text string) (int64, error)

	GetImagesGeodata(ctx context.Context, ids []int64, galleryID int64) ([]models.GeoData, error)
	GetRecentImagesGeodata(ctx context.Context, user string, start, count int) ([]models.GeoData, error)
	SearchLocations(ctx context.Context, prefix string) ([]models.Location, error)
}

type ImageRenderer interface {
	Render(ctx context.Context, img *models.Image, view string, style models.Style) (string, error)
	RenderStack(ctx context.Context, galleryID int64, images []*models.Image, style models.Style) (string, error)
}

type Routers struct {
	log       *slog.Logger
	newScope  func() GalleryScope
	renderer  ImageRenderer
	files     filestorage.FileStorage
	styles    func(name string) models.Style
	jwtSecret string
}

func NewRouter(
	log *slog.Logger,
	newScope func() GalleryScope,
	renderer ImageRenderer,
	files filestorage.FileStorage,
	styles func(name string) models.Style,
	jwtSecret string,
) *Routers {
	if styles == nil {
		styles = func(string) models.Style { return models.DefaultStyle }
	}

	return &Routers{
		log:       log,
		newScope:  newScope,
		renderer:  renderer,
		files:     files,
		styles:    styles,
		jwtSecret: jwtSecret,
	}
}

var (
	errForbidden  = errors.New("permission denied")
	errLocked     = errors.New("gallery is locked")
	errNoSelector = errors.New("either ids or slugs are required")
)

// Identity resolves the viewer from a bearer token or the session and
// opens a fresh gallery scope for the request.
func (r *Routers) Identity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		const op = "http.routers.Identity"

		ident, err := r.identify(c)
		if err != nil {
			r.log.With(slog.String("op", op)).Warn("rejected token", sl.Err(err))
			return c.JSON(http.StatusUnauthorized, response.ErrorResponseWithDetails("invalid_token", "Invalid or expired token"))
		}

		ctx := identity.WithIdentity(c.Request().Context(), ident)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Set(scopeKey, r.newScope())

		return next(c)
	}
}

func (r *Routers) identify(c echo.Context) (identity.Identity, error) {
	var ident identity.Identity

	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		id, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), r.jwtSecret)
		if err != nil {
			return ident, err
		}
		ident = id
	}

	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ident, nil
	}

	if ident.IsGuest() {
		if uid, ok := sess.Values[sessionUserKey].(string); ok {
			ident.User = uid
		}
		if age, ok := sess.Values[sessionAgeKey].(int); ok {
			ident.Age = age
		}
	}

	if ids, ok := sess.Values[sessionUnlockedKey].([]int64); ok {
		ident.Unlocked = make(map[int64]bool, len(ids))
		for _, id := range ids {
			ident.Unlocked[id] = true
		}
	}

	return ident, nil
}

// rememberUnlocked stores id among the unlocked galleries of the session.
func rememberUnlocked(c echo.Context, id int64) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}

	ids, _ := sess.Values[sessionUnlockedKey].([]int64)
	for _, known := range ids {
		if known == id {
			return nil
		}
	}
	sess.Values[sessionUnlockedKey] = append(ids, id)

	return sess.Save(c.Request(), c.Response())
}

func (r *Routers) scope(c echo.Context) GalleryScope {
	if s, ok := c.Get(scopeKey).(GalleryScope); ok {
		return s
	}

	s := r.newScope()
	c.Set(scopeKey, s)

	return s
}

// fail writes the error response matching err.
func (r *Routers) fail(c echo.Context, log *slog.Logger, err error) error {
	switch {
	case storage.IsNotFound(err), errors.Is(err, storage.ErrFileNotFound):
		return c.JSON(http.StatusNotFound, response.ErrorResponseWithDetails("not_found", err.Error()))
	case errors.Is(err, storage.ErrSlugExists):
		return c.JSON(http.StatusConflict, response.ErrorResponseWithDetails("slug_exists", "Gallery slug already in use"))
	case errors.Is(err, storage.ErrImagesParams),
		errors.Is(err, storage.ErrInvalidAttribute),
		errors.Is(err, storage.ErrIncompleteImage),
		errors.Is(err, render.ErrUnknownView):
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
	case errors.Is(err, storage.ErrWrongPassword):
		return c.JSON(http.StatusForbidden, response.ErrorResponseWithDetails("wrong_password", "Incorrect gallery password"))
	case errors.Is(err, gallery.ErrCommentsDisabled):
		return c.JSON(http.StatusForbidden, response.ErrorResponseWithDetails("comments_disabled", "Comments are disabled"))
	case errors.Is(err, errLocked):
		return c.JSON(http.StatusForbidden, response.ErrGalleryLocked)
	case errors.Is(err, errForbidden):
		return c.JSON(http.StatusForbidden, response.ErrForbidden)
	}

	log.Error("request failed", sl.Err(err))

	return c.JSON(http.StatusInternalServerError, response.ErrInternal)
}

func (r *Routers) badRequest(c echo.Context, log *slog.Logger, err error) error {
	log.Warn("invalid request", sl.Err(err))

	return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", err.Error()))
}

func (r *Routers) bindValid(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}

	return c.Validate(req)
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}

	return id, nil
}

// galleryFor loads gallery id and checks that the viewer may use it with
// perm. Viewing checks age and password locks too.
func (r *Routers) galleryFor(c echo.Context, id int64, perm models.Perm) (*models.Gallery, error) {
	ctx := c.Request().Context()
	scope := r.scope(c)

	g, err := scope.GetGallery(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	if err := r.allowed(c, g, perm); err != nil {
		return nil, err
	}

	return g, nil
}

func (r *Routers) allowed(c echo.Context, g *models.Gallery, perm models.Perm) error {
	ctx := c.Request().Context()

	ok, err := r.scope(c).HasPermission(ctx, g, perm)
	if err != nil {
		return err
	}
	if !ok {
		return errForbidden
	}

	if perm&models.PermRead != 0 {
		ident := identity.FromContext(ctx)
		if !g.IsOldEnough(ident.User, ident.Age) {
			return errForbidden
		}
		if g.HasPasswd(ident.User, ident.IsUnlocked(g.ID)) {
			return errLocked
		}
	}

	return nil
}
