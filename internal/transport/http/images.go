package http

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"ansel/internal/domain/models"
	"ansel/internal/lib/identity"
	"ansel/internal/lib/logger/sl"
	gallery "ansel/internal/services/gallery_service"
	render "ansel/internal/services/image_service"
	"ansel/internal/storage"
	"ansel/internal/storage/filestorage"
	"ansel/internal/transport/http/dto"
	"ansel/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

const defaultRecentLimit = 10

// imageFor loads an image and checks perm on its gallery.
func (r *Routers) imageFor(c echo.Context, id int64, perm models.Perm) (*models.Image, *models.Gallery, error) {
	img, err := r.scope(c).GetImage(c.Request().Context(), id)
	if err != nil {
		return nil, nil, err
	}

	g, err := r.galleryFor(c, img.GalleryID(), perm)
	if err != nil {
		return nil, nil, err
	}

	return img, g, nil
}

func (r *Routers) GetImage(c echo.Context) error {
	const op = "http.routers.GetImage"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	img, _, err := r.imageFor(c, id, models.PermRead)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(img))
}

// CreateImage stores image metadata in a gallery the viewer may edit.
func (r *Routers) CreateImage(c echo.Context) error {
	const op = "http.routers.CreateImage"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.ImageRequest
	if err := r.bindValid(c, &req); err != nil {
		return r.badRequest(c, log, err)
	}

	img := req.Image()

	g, err := r.galleryFor(c, img.GalleryID(), models.PermEdit)
	if err != nil {
		return r.fail(c, log, err)
	}

	id, err := r.scope(c).AddImage(c.Request().Context(), g, img)
	if err != nil {
		return r.fail(c, log, err)
	}

	log.Info("image created", slog.Int64("image_id", id), slog.Int64("gallery_id", g.ID))

	return c.JSON(http.StatusCreated, response.SuccessResponse(img))
}

func (r *Routers) UpdateImage(c echo.Context) error {
	const op = "http.routers.UpdateImage"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	var req dto.ImageRequest
	if err := r.bindValid(c, &req); err != nil {
		return r.badRequest(c, log, err)
	}

	current, _, err := r.imageFor(c, id, models.PermEdit)
	if err != nil {
		return r.fail(c, log, err)
	}

	img := req.Image()
	img.ID = id
	img.Uploaded = current.Uploaded
	img.GeotagDate = current.GeotagDate
	img.Faces = current.Faces

	if img.GalleryID() != current.GalleryID() {
		if _, err := r.galleryFor(c, img.GalleryID(), models.PermEdit); err != nil {
			return r.fail(c, log, err)
		}
	}

	if _, err := r.scope(c).SaveImage(c.Request().Context(), img); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(img))
}

func (r *Routers) DeleteImage(c echo.Context) error {
	const op = "http.routers.DeleteImage"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	img, g, err := r.imageFor(c, id, models.PermDelete)
	if err != nil {
		return r.fail(c, log, err)
	}

	if err := r.scope(c).RemoveImage(c.Request().Context(), g, id, img.IsStack()); err != nil {
		return r.fail(c, log, err)
	}

	log.Info("image removed", slog.Int64("image_id", id))

	return c.NoContent(http.StatusNoContent)
}

// UploadImage accepts a multipart "file" for gallery "gallery_id". EXIF
// dates and coordinates of JPEG uploads fill the image row.
func (r *Routers) UploadImage(c echo.Context) error {
	const op = "http.routers.UploadImage"

	log := r.log.With(
		slog.String("op", op),
	)

	startTime := time.Now()

	file, err := c.FormFile("file")
	if err != nil {
		log.Warn("empty file in request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrorResponseWithDetails("invalid_request", "File is required"))
	}

	var galleryID int64
	if err := echo.FormFieldBinder(c).MustInt64("gallery_id", &galleryID).BindError(); err != nil {
		return r.badRequest(c, log, err)
	}

	g, err := r.galleryFor(c, galleryID, models.PermEdit)
	if err != nil {
		return r.fail(c, log, err)
	}

	contentType := file.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	img := &models.Image{
		Gallery:  g.ID,
		Filename: filepath.Base(file.Filename),
		Type:     contentType,
		Caption:  c.FormValue("caption"),
	}

	src, err := file.Open()
	if err != nil {
		return r.fail(c, log, err)
	}
	meta, err := render.ReadExif(src)
	src.Close()
	if err != nil {
		log.Debug("no exif data", slog.String("filename", img.Filename), sl.Err(err))
	} else {
		img.OriginalDate = meta.OriginalDate
		img.Latitude = meta.Latitude
		img.Longitude = meta.Longitude
	}

	ctx := c.Request().Context()

	id, err := r.scope(c).AddImage(ctx, g, img)
	if err != nil {
		return r.fail(c, log, err)
	}

	_, size, err := r.files.Save(ctx, file, filestorage.ImageDir(id))
	if err != nil {
		log.Error("failed to store upload", slog.Int64("image_id", id), sl.Err(err))
		if rmErr := r.scope(c).RemoveImage(ctx, g, id, false); rmErr != nil {
			log.Error("failed to roll back image", slog.Int64("image_id", id), sl.Err(rmErr))
		}
		return r.fail(c, log, err)
	}

	log.Info("upload successful",
		slog.Int64("image_id", id),
		slog.Int64("gallery_id", g.ID),
		slog.Int64("file_size", size),
		slog.Duration("duration", time.Since(startTime)),
	)

	return c.JSON(http.StatusCreated, response.SuccessResponse(img))
}

// GetImageView serves a rendered view of an image, generating it on first
// use.
func (r *Routers) GetImageView(c echo.Context) error {
	const op = "http.routers.GetImageView"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	img, g, err := r.imageFor(c, id, models.PermRead)
	if err != nil {
		return r.fail(c, log, err)
	}

	name := c.QueryParam("style")
	if name == "" {
		name = g.Style
	}

	rel, err := r.renderer.Render(c.Request().Context(), img, c.Param("view"), r.styles(name))
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.File(r.files.GetFullPath(rel))
}

func (r *Routers) GetImageAttributes(c echo.Context) error {
	const op = "http.routers.GetImageAttributes"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	if _, _, err := r.imageFor(c, id, models.PermRead); err != nil {
		return r.fail(c, log, err)
	}

	attrs, err := r.scope(c).GetImageAttributes(c.Request().Context(), id)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(attrs))
}

func (r *Routers) SaveImageAttribute(c echo.Context) error {
	const op = "http.routers.SaveImageAttribute"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	var req dto.ImageAttributeRequest
	if err := r.bindValid(c, &req); err != nil {
		return r.badRequest(c, log, err)
	}

	if _, _, err := r.imageFor(c, id, models.PermEdit); err != nil {
		return r.fail(c, log, err)
	}

	if err := r.scope(c).SaveImageAttribute(c.Request().Context(), id, req.Name, req.Value); err != nil {
		return r.fail(c, log, err)
	}

	return c.NoContent(http.StatusCreated)
}

func (r *Routers) AddComment(c echo.Context) error {
	const op = "http.routers.AddComment"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := paramID(c, "id")
	if err != nil {
		return r.badRequest(c, log, err)
	}

	var req dto.CommentRequest
	if err := r.bindValid(c, &req); err != nil {
		return r.badRequest(c, log, err)
	}

	if _, _, err := r.imageFor(c, id, models.PermRead); err != nil {
		return r.fail(c, log, err)
	}

	commentID, err := r.scope(c).AddComment(c.Request().Context(), id, req.Text)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(map[string]int64{"comment_id": commentID}))
}

// GetRecentImages lists the newest images. Explicit galleries the viewer
// cannot read are skipped.
func (r *Routers) GetRecentImages(c echo.Context) error {
	const op = "http.routers.GetRecentImages"

	log := r.log.With(
		slog.String("op", op),
	)

	var (
		ids   []int64
		slugs []string
		limit = defaultRecentLimit
	)
	err := echo.QueryParamsBinder(c).
		Int64s("gallery", &ids).
		Strings("slug", &slugs).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return r.badRequest(c, log, err)
	}

	ctx := c.Request().Context()
	scope := r.scope(c)

	if len(slugs) > 0 {
		for _, slug := range slugs {
			g, err := scope.GetGalleryBySlug(ctx, slug, nil)
			if err != nil {
				return r.fail(c, log, err)
			}
			ids = append(ids, g.ID)
		}
	}

	if len(ids) > 0 {
		readable := ids[:0]
		for _, id := range ids {
			if _, err := r.galleryFor(c, id, models.PermRead); err != nil {
				if errors.Is(err, errForbidden) || errors.Is(err, errLocked) {
					continue
				}
				return r.fail(c, log, err)
			}
			readable = append(readable, id)
		}
		if len(readable) == 0 {
			return c.JSON(http.StatusOK, response.SuccessResponse([]*models.Image{}))
		}
		ids = readable
	}

	images, err := scope.GetRecentImages(ctx, ids, limit, nil)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(images))
}

// GetImageJSON returns the compact records used by the slideshow widgets.
func (r *Routers) GetImageJSON(c echo.Context) error {
	const op = "http.routers.GetImageJSON"

	log := r.log.With(
		slog.String("op", op),
	)

	var q dto.ImagesQuery
	if err := c.Bind(&q); err != nil {
		return r.badRequest(c, log, err)
	}

	ctx := c.Request().Context()

	ids := q.IDs
	if q.GalleryID > 0 {
		if _, err := r.galleryFor(c, q.GalleryID, models.PermRead); err != nil {
			return r.fail(c, log, err)
		}

		images, err := r.scope(c).GetImages(ctx, gallery.GetImagesParams{GalleryID: q.GalleryID})
		if err != nil {
			return r.fail(c, log, err)
		}
		for _, img := range images {
			ids = append(ids, img.ID)
		}
	}

	if len(ids) == 0 {
		return r.fail(c, log, storage.ErrImagesParams)
	}

	body, err := r.scope(c).GetImageJSON(ctx, ids, gallery.ImageJSONOptions{
		Style: q.Style,
		Full:  q.Full,
		View:  q.View,
		Links: q.Links,
	})
	if err != nil {
		return r.fail(c, log, err)
	}
	if body == "" {
		body = "[]"
	}

	return c.JSONBlob(http.StatusOK, []byte(body))
}

func (r *Routers) GetImagesGeodata(c echo.Context) error {
	const op = "http.routers.GetImagesGeodata"

	log := r.log.With(
		slog.String("op", op),
	)

	var q dto.ImagesQuery
	if err := c.Bind(&q); err != nil {
		return r.badRequest(c, log, err)
	}

	if q.GalleryID > 0 {
		if _, err := r.galleryFor(c, q.GalleryID, models.PermRead); err != nil {
			return r.fail(c, log, err)
		}
	}

	geo, err := r.scope(c).GetImagesGeodata(c.Request().Context(), q.IDs, q.GalleryID)
	if err != nil {
		return r.fail(c, log, err)
	}

	visible := make([]models.GeoData, 0, len(geo))
	readable := make(map[int64]bool)
	for _, d := range geo {
		ok, seen := readable[d.GalleryID]
		if !seen {
			ok, err = r.canRead(c, d.GalleryID)
			if err != nil {
				return r.fail(c, log, err)
			}
			readable[d.GalleryID] = ok
		}
		if ok {
			visible = append(visible, d)
		}
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(visible))
}

// canRead reports whether the viewer may read the gallery. Missing, locked
// and forbidden galleries are unreadable rather than errors.
func (r *Routers) canRead(c echo.Context, galleryID int64) (bool, error) {
	_, err := r.galleryFor(c, galleryID, models.PermRead)
	switch {
	case err == nil:
		return true, nil
	case storage.IsNotFound(err), errors.Is(err, errForbidden), errors.Is(err, errLocked):
		return false, nil
	default:
		return false, err
	}
}

// GetRecentGeodata lists recently geotagged images of galleries the viewer
// may edit, optionally only those owned by the owner query parameter.
func (r *Routers) GetRecentGeodata(c echo.Context) error {
	const op = "http.routers.GetRecentGeodata"

	log := r.log.With(
		slog.String("op", op),
	)

	ctx := c.Request().Context()

	ident := identity.FromContext(ctx)
	if ident.IsGuest() {
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationRequired)
	}

	var (
		owner string
		from  int
		count = defaultRecentLimit
	)
	err := echo.QueryParamsBinder(c).
		String("owner", &owner).
		Int("from", &from).
		Int("count", &count).
		BindError()
	if err != nil {
		return r.badRequest(c, log, err)
	}

	geo, err := r.scope(c).GetRecentImagesGeodata(ctx, owner, from, count)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(geo))
}

func (r *Routers) SearchLocations(c echo.Context) error {
	const op = "http.routers.SearchLocations"

	log := r.log.With(
		slog.String("op", op),
	)

	locations, err := r.scope(c).SearchLocations(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(locations))
}
