package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ansel/internal/domain/models"
	"ansel/internal/lib/identity"
	"ansel/internal/lib/logger/sl"
	"ansel/internal/repository"
	"ansel/internal/storage"
)

var ErrCommentsDisabled = errors.New("comments are disabled")

// GetImagesParams selects images by gallery or by id. GalleryID wins when
// both are set.
type GetImagesParams struct {
	GalleryID int64
	IDs       []int64
	// Preserve returns images in the order of IDs.
	Preserve bool
	From     int
	Count    int
}

// RemoveImage deletes an image row, its attributes and its files. Unless
// isStack is set the image count of g is decremented.
func (s *Scope) RemoveImage(ctx context.Context, g *models.Gallery, imageID int64, isStack bool) error {
	const op = "services.Scope.RemoveImage"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("gallery_id", g.ID),
		slog.Int64("image_id", imageID),
	)

	if err := s.images.Delete(ctx, imageID); err != nil {
		log.Error("failed to delete image", sl.Err(err))
		return backendErr(op, err)
	}
	delete(s.imageMemo, imageID)

	if s.files != nil {
		if err := s.files.DeleteImage(ctx, imageID); err != nil {
			log.Warn("failed to delete image files", sl.Err(err))
		}
	}

	changed := false
	if g.Default == imageID {
		g.Default = 0
		changed = true
	}
	if !isStack && g.Images > 0 {
		g.Images--
		changed = true
	}

	if changed {
		if err := s.saveGallery(ctx, g); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// GetImage is cached for the lifetime of the scope.
func (s *Scope) GetImage(ctx context.Context, id int64) (*models.Image, error) {
	const op = "services.Scope.GetImage"

	if img, ok := s.imageMemo[id]; ok {
		return img, nil
	}

	img, err := s.images.GetImage(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrImageNotFound) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrImageNotFound)
		}
		s.log.Error("failed to fetch image", slog.String("op", op), slog.Int64("id", id), sl.Err(err))
		return nil, backendErr(op, err)
	}

	s.imageMemo[id] = img

	return img, nil
}

// SaveImage updates img when it has an id and returns the rows affected.
// Otherwise it inserts a new row and returns the new id.
func (s *Scope) SaveImage(ctx context.Context, img *models.Image) (int64, error) {
	const op = "services.Scope.SaveImage"

	log := s.log.With(slog.String("op", op))

	if img.ID != 0 {
		rows, err := s.images.Update(ctx, img)
		if err != nil {
			log.Error("failed to update image", slog.Int64("id", img.ID), sl.Err(err))
			return 0, backendErr(op, err)
		}
		delete(s.imageMemo, img.ID)
		return rows, nil
	}

	if err := img.Validate(); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, storage.ErrIncompleteImage, err)
	}

	id, err := s.images.NextID(ctx)
	if err != nil {
		log.Error("failed to allocate image id", sl.Err(err))
		return 0, backendErr(op, err)
	}

	img.ID = id
	if img.Uploaded.IsZero() {
		img.Uploaded = s.now().UTC()
	}
	if img.HasGeotag() {
		img.GeotagDate = img.Uploaded
	} else {
		img.GeotagDate = time.Time{}
	}

	if err := s.images.Insert(ctx, img); err != nil {
		img.ID = 0
		log.Error("failed to insert image", sl.Err(err))
		return 0, backendErr(op, err)
	}

	log.Info("image saved", slog.Int64("id", id), slog.Int64("gallery_id", img.Gallery))

	return id, nil
}

// AddImage stores img as a new image of g and counts it, unless it is a
// stack image.
func (s *Scope) AddImage(ctx context.Context, g *models.Gallery, img *models.Image) (int64, error) {
	const op = "services.Scope.AddImage"

	if img.Gallery == 0 {
		img.Gallery = g.ID
	}

	id, err := s.SaveImage(ctx, img)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if !img.IsStack() {
		g.Images++
		g.LastModified = s.now().UTC().Truncate(time.Second)
		if err := s.saveGallery(ctx, g); err != nil {
			return id, fmt.Errorf("%s: %w", op, err)
		}
	}

	return id, nil
}

// SaveImageAttribute appends a name/value pair to an image.
func (s *Scope) SaveImageAttribute(ctx context.Context, imageID int64, name, value string) error {
	const op = "services.Scope.SaveImageAttribute"

	if err := s.images.SaveAttribute(ctx, imageID, name, value); err != nil {
		s.log.Error("failed to save attribute", slog.String("op", op), sl.Err(err))
		return backendErr(op, err)
	}

	return nil
}

func (s *Scope) GetImageAttributes(ctx context.Context, imageID int64) (map[string]string, error) {
	const op = "services.Scope.GetImageAttributes"

	attrs, err := s.images.Attributes(ctx, imageID)
	if err != nil {
		s.log.Error("failed to load attributes", slog.String("op", op), sl.Err(err))
		return nil, backendErr(op, err)
	}

	return attrs, nil
}

// GetImages lists the images of a gallery in sort order, or the images with
// the given ids. Fetched images are kept for GetImage.
func (s *Scope) GetImages(ctx context.Context, p GetImagesParams) ([]*models.Image, error) {
	const op = "services.Scope.GetImages"

	log := s.log.With(slog.String("op", op))

	var (
		images []*models.Image
		err    error
	)

	switch {
	case p.GalleryID != 0:
		images, err = s.images.ListImages(ctx, repository.ListImagesQuery{
			GalleryID: p.GalleryID,
			From:      p.From,
			Count:     p.Count,
		})
		if err != nil {
			log.Error("failed to list images", sl.Err(err))
			return nil, backendErr(op, err)
		}
	case len(p.IDs) > 0:
		images, err = s.images.GetByIDs(ctx, p.IDs)
		if err != nil {
			log.Error("failed to fetch images", sl.Err(err))
			return nil, backendErr(op, err)
		}
		if len(images) == 0 {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrImageNotFound)
		}
	default:
		return nil, fmt.Errorf("%s: %w", op, storage.ErrImagesParams)
	}

	for _, img := range images {
		s.imageMemo[img.ID] = img
	}

	if s.commentsAllowed(ctx) && s.comments != nil && len(images) > 0 {
		ids := make([]int64, 0, len(images))
		for _, img := range images {
			ids = append(ids, img.ID)
		}
		counts, err := s.comments.CountByImages(ctx, ids)
		if err != nil {
			log.Warn("failed to count comments", sl.Err(err))
		} else {
			for _, img := range images {
				img.CommentCount = counts[img.ID]
			}
		}
	}

	if p.Preserve && len(p.IDs) > 0 && p.GalleryID == 0 {
		images = inOrder(images, p.IDs)
	}

	return images, nil
}

func inOrder(images []*models.Image, ids []int64) []*models.Image {
	byID := make(map[int64]*models.Image, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}

	out := make([]*models.Image, 0, len(images))
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			out = append(out, img)
			delete(byID, id)
		}
	}

	return out
}

// GetRecentImages returns the newest images of the given galleries, of the
// galleries named by slugs, or of every gallery the current user can see.
func (s *Scope) GetRecentImages(ctx context.Context, galleryIDs []int64, limit int, slugs []string) ([]*models.Image, error) {
	const op = "services.Scope.GetRecentImages"

	q := repository.RecentImagesQuery{
		GalleryIDs: galleryIDs,
		Slugs:      slugs,
		Limit:      limit,
	}

	if len(galleryIDs) == 0 && len(slugs) == 0 {
		ident := identity.FromContext(ctx)
		groups, err := s.userGroups(ctx, ident)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		q.Visible = s.shares.Criteria(ident.User, groups, models.PermShow)
	}

	images, err := s.images.Recent(ctx, q)
	if err != nil {
		s.log.Error("failed to list recent images", slog.String("op", op), sl.Err(err))
		return nil, backendErr(op, err)
	}

	return images, nil
}

// ListImages is a low level row fetch.
func (s *Scope) ListImages(ctx context.Context, q repository.ListImagesQuery) ([]*models.Image, error) {
	const op = "services.Scope.ListImages"

	images, err := s.images.ListImages(ctx, q)
	if err != nil {
		return nil, s.repoErr(op, err)
	}

	return images, nil
}

// AddComment posts text on an image as the current user.
func (s *Scope) AddComment(ctx context.Context, imageID int64, text string) (int64, error) {
	const op = "services.Scope.AddComment"

	log := s.log.With(
		slog.String("op", op),
		slog.Int64("image_id", imageID),
	)

	if s.comments == nil || !s.commentsAllowed(ctx) {
		return 0, fmt.Errorf("%s: %w", op, ErrCommentsDisabled)
	}

	if _, err := s.GetImage(ctx, imageID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.comments.AddComment(ctx, imageID, identity.FromContext(ctx).User, text)
	if err != nil {
		log.Error("failed to add comment", sl.Err(err))
		return 0, backendErr(op, err)
	}

	return id, nil
}

func (s *Scope) commentsAllowed(ctx context.Context) bool {
	switch s.prefs.CommentsAllow {
	case CommentsAll:
		return true
	case CommentsAuthenticated:
		return !identity.FromContext(ctx).IsGuest()
	default:
		return false
	}
}
