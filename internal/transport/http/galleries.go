package http

import (
	"log/slog"
	"net/http"

	"ansel/internal/domain/models"
	"ansel/internal/lib/identity"
	gallery "ansel/internal/services/gallery_service"
	"ansel/internal/transport/http/dto"
	"ansel/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// ListGalleries returns the galleries visible to the viewer. With tags the
// listing is a tag search.
func (r *Routers) ListGalleries(c echo.Context) error {
	const op = "http.routers.ListGalleries"

	log := r.log.With(
		slog.String("op", op),
	)

	ctx := c.Request().Context()
	scope := r.scope(c)

	var (
		perm     int
		parent   int64
		direct   bool
		tags     []string
		matchAll bool
		owner    string
		category string
		p        gallery.ListGalleriesParams
	)

	err := echo.QueryParamsBinder(c).
		Int("perm", &perm).
		Int64("parent", &parent).
		Bool("direct", &direct).
		Strings("tags", &tags).
		Bool("match_all", &matchAll).
		String("owner", &owner).
		String("category", &category).
		Int("from", &p.From).
		Int("count", &p.Count).
		String("sort_by", &p.SortBy).
		Int("direction", &p.Direction).
		BindError()
	if err != nil {
		return r.badRequest(c, log, err)
	}

	if len(tags) > 0 {
		galleries, err := scope.ListGalleriesByTags(ctx, tags, matchAll)
		if err != nil {
			return r.fail(c, log, err)
		}

		return c.JSON(http.StatusOK, response.SuccessResponse(dto.GalleryListResponse{
			Galleries: galleries,
			Total:     len(galleries),
		}))
	}

	p.Perm = models.Perm(perm)
	if p.Perm == 0 {
		p.Perm = models.PermShow
	}
	p.DirectOnly = direct
	if parent > 0 {
		p.Parent = &parent
	}

	p.Attributes = map[string]any{}
	if owner != "" {
		p.Attributes["owner"] = owner
	}
	if category != "" {
		p.Attributes["category"] = category
	}

	galleries, err := scope.ListGalleries(ctx, p)
	if err != nil {
		return r.fail(c, log, err)
	}

	ident := identity.FromContext(ctx)
	total, err := scope.CountGalleries(ctx, ident.User, p.Perm, p.Attributes, p.Parent, !p.DirectOnly)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.GalleryListResponse{
		Galleries: galleries,
		Total:     total,
	}))
}

func (r *Routers) CreateGallery(c echo.Context) error {
	const op = "http.routers.CreateGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	ctx := c.Request().Context()

	if identity.FromContext(ctx).IsGuest() {
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationRequired)
	}

	var req dto.CreateGalleryRequest
	if err := r.bindValid(c, &req); err != nil {
		return r.badRequest(c, log, err)
	}

	if req.Parent != nil {
		if _, err := r.galleryFor(c, *req.Parent, models.PermEdit); err != nil {
			return r.fail(c, log, err)
		}
	}

	var perm *models.Permission
	if req.Permissions != nil {
		p := req.Permissions.Permission()
		perm = &p
	}

	g, err := r.scope(c).CreateGallery(ctx, req.Attributes(), perm, req.Parent)
	if err != nil {
		return r.fail(c, log, err)
	}

	log.Info("gallery created", slog.Int64("gallery_id", g.ID), slog.String("owner", g.Owner))

	return c.JSON(http.StatusCreated, response.SuccessResponse(g))
}

func (r *Routers) GetRandomGallery(c echo.Context) error {
	const op = "http.routers.GetRandomGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	var (
		parent int64
		p      gallery.ListGalleriesParams
	)
	if err := echo.QueryParamsBinder(c).Int64("parent", &parent).Bool("direct", &p.DirectOnly).BindError(); err != nil {
		return r.badRequest(c, log, err)
	}
	if parent > 0 {
		p.Parent = &parent
	}

	g, err := r.scope(c).GetRandomGallery(c.Request().Context(), p)
	if err != nil {
		return r.fail(c, log, err)
	}
	if g == nil {
		return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "no galleries"})
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(g))
}

// GetGalleriesBatch fetches galleries by ids or slugs and drops the ones
// the viewer may not see.
func (r *Routers) GetGalleriesBatch(c echo.Context) error {
	const op = "http.routers.GetGalleriesBatch"

	log := r.log.With(
		slog.String("op", op),
	)

	var (
		ids   []int64
		slugs []string
	)
	if err := echo.QueryParamsBinder(c).Int64s("ids", &ids).Strings("slugs", &slugs).BindError(); err != nil {
		return r.badRequest(c, log, err)
	}

	ctx := c.Request().Context()
	scope := r.scope(c)

	var (
		galleries []*models.Gallery
		err       error
	)
	switch {
	case len(ids) > 0:
		galleries, err = scope.GetGalleries(ctx, ids)
	case len(slugs) > 0:
		galleries, err = scope.GetGalleriesBySlugs(ctx, slugs)
	default:
		return r.badRequest(c, log, errNoSelector)
	}
	if err != nil {
		return r.fail(c, log, err)
	}

	visible := make([]*models.Gallery, 0, len(galleries))
	for _, g := range galleries {
		ok, err := scope.HasPermission(ctx, g, models.PermShow)
		if err != nil {
			return r.fail(c, log, err)
		}
		if ok {
			visible = append(visible, g)
		}
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.GalleryListResponse{
		Galleries: visible,
		Total:     len(visible),
	}))
}

// GalleryExists answers whether a gallery id or slug is taken.
func (r *Routers) GalleryExists(c echo.Context) error {
	const op = "http.routers.GalleryExists"

	log := r.log.With(
		slog.String("op", op),
	)

	var (
		id   int64
		slug string
	)
	if err := echo.QueryParamsBinder(c).Int64("id", &id).String("slug", &slug).BindError(); err != nil {
		return r.badRequest(c, log, err)
	}
	if id == 0 && slug == "" {
		return r.badRequest(c, log, errNoSelector)
	}

	ok, err := r.scope(c).GalleryExists(c.Request().Context(), id, slug)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.ExistsResponse{Exists: ok}))
}

func (r *Routers) GetGallery(c echo.Context) error {
	const op = "http.routers.GetGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	g, err := r.galleryFor(c, id, models.PermShow)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(g))
}

func (r *Routers) GetGalleryBySlug(c echo.Context) error {
	const op = "http.routers.GetGalleryBySlug"

	log := r.log.With(
		slog.String("op", op),
		slog.String("slug", c.Param("slug")),
	)

	g, err := r.scope(c).GetGalleryBySlug(c.Request().Context(), c.Param("slug"), nil)
	if err != nil {
		return r.fail(c, log, err)
	}

	if err := r.allowed(c, g, models.PermShow); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(g))
}

func (r *Routers) RemoveGallery(c echo.Context) error {
	const op = "http.routers.RemoveGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	g, err := r.galleryFor(c, id, models.PermDelete)
	if err != nil {
		return r.fail(c, log, err)
	}

	if _, err := r.scope(c).RemoveGallery(c.Request().Context(), g); err != nil {
		return r.fail(c, log, err)
	}

	log.Info("gallery removed", slog.Int64("gallery_id", id))

	return c.NoContent(http.StatusNoContent)
}

func (r *Routers) EmptyGallery(c echo.Context) error {
	const op = "http.routers.EmptyGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	g, err := r.galleryFor(c, id, models.PermDelete)
	if err != nil {
		return r.fail(c, log, err)
	}

	if err := r.scope(c).EmptyGallery(c.Request().Context(), g); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(g))
}

// UnlockGallery checks a gallery password and remembers the gallery as
// unlocked in the session.
func (r *Routers) UnlockGallery(c echo.Context) error {
	const op = "http.routers.UnlockGallery"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	var req dto.UnlockGalleryRequest
	if err := r.bindValid(c, &req); err != nil {
		return r.badRequest(c, log, err)
	}

	g, err := r.galleryFor(c, id, models.PermShow)
	if err != nil {
		return r.fail(c, log, err)
	}

	if err := r.scope(c).UnlockGallery(c.Request().Context(), g, req.Passwd); err != nil {
		log.Warn("wrong gallery password", slog.Int64("gallery_id", id))
		return r.fail(c, log, err)
	}

	if err := rememberUnlocked(c, id); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Response{Status: "success", Message: "gallery unlocked"})
}

func (r *Routers) GetGalleryTags(c echo.Context) error {
	const op = "http.routers.GetGalleryTags"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	g, err := r.galleryFor(c, id, models.PermShow)
	if err != nil {
		return r.fail(c, log, err)
	}

	tags := g.Tags
	if tags == nil {
		tags = []string{}
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(tags))
}

func (r *Routers) SetGalleryTags(c echo.Context) error {
	const op = "http.routers.SetGalleryTags"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	var req dto.GalleryTagsRequest
	if err := r.bindValid(c, &req); err != nil {
		return r.badRequest(c, log, err)
	}

	g, err := r.galleryFor(c, id, models.PermEdit)
	if err != nil {
		return r.fail(c, log, err)
	}

	if err := r.scope(c).SetGalleryTags(c.Request().Context(), g, req.Tags); err != nil {
		return r.fail(c, log, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// GetGalleryImages lists the images of a readable gallery.
func (r *Routers) GetGalleryImages(c echo.Context) error {
	const op = "http.routers.GetGalleryImages"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	p := gallery.GetImagesParams{GalleryID: id}
	if err := echo.QueryParamsBinder(c).Int("from", &p.From).Int("count", &p.Count).BindError(); err != nil {
		return r.badRequest(c, log, err)
	}

	if _, err := r.galleryFor(c, id, models.PermRead); err != nil {
		return r.fail(c, log, err)
	}

	images, err := r.scope(c).GetImages(c.Request().Context(), p)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(images))
}

// GetGalleryKeyImage renders the stack key image of a gallery.
func (r *Routers) GetGalleryKeyImage(c echo.Context) error {
	const op = "http.routers.GetGalleryKeyImage"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	g, err := r.galleryFor(c, id, models.PermRead)
	if err != nil {
		return r.fail(c, log, err)
	}

	ctx := c.Request().Context()
	images, err := r.scope(c).GetImages(ctx, gallery.GetImagesParams{GalleryID: id, Count: 3})
	if err != nil {
		return r.fail(c, log, err)
	}

	name := c.QueryParam("style")
	if name == "" {
		name = g.Style
	}

	rel, err := r.renderer.RenderStack(ctx, id, images, r.styles(name))
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.File(r.files.GetFullPath(rel))
}

func (r *Routers) ListCategories(c echo.Context) error {
	const op = "http.routers.ListCategories"

	log := r.log.With(
		slog.String("op", op),
	)

	var perm, from, count int
	err := echo.QueryParamsBinder(c).
		Int("perm", &perm).
		Int("from", &from).
		Int("count", &count).
		BindError()
	if err != nil {
		return r.badRequest(c, log, err)
	}
	if perm == 0 {
		perm = int(models.PermShow)
	}

	ctx := c.Request().Context()
	scope := r.scope(c)

	categories, err := scope.ListCategories(ctx, models.Perm(perm), from, count)
	if err != nil {
		return r.fail(c, log, err)
	}

	total, err := scope.CountCategories(ctx, models.Perm(perm))
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.CategoriesResponse{
		Categories: categories,
		Total:      total,
	}))
}
