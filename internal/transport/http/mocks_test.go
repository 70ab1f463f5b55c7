package http_test

import (
	"context"

	"ansel/internal/domain/models"
	gallery "ansel/internal/services/gallery_service"

	"github.com/stretchr/testify/mock"
)

type MockScope struct {
	mock.Mock
}

func galleryRet(args mock.Arguments) (*models.Gallery, error) {
	g, _ := args.Get(0).(*models.Gallery)
	return g, args.Error(1)
}

func (m *MockScope) CreateGallery(ctx context.Context, attrs models.GalleryAttributes, perm *models.Permission, parent *int64) (*models.Gallery, error) {
	return galleryRet(m.Called(ctx, attrs, perm, parent))
}

func (m *MockScope) GetGallery(ctx context.Context, id int64, overrides map[string]any) (*models.Gallery, error) {
	return galleryRet(m.Called(ctx, id, overrides))
}

func (m *MockScope) GetGalleryBySlug(ctx context.Context, slug string, overrides map[string]any) (*models.Gallery, error) {
	return galleryRet(m.Called(ctx, slug, overrides))
}

func (m *MockScope) ListGalleries(ctx context.Context, p gallery.ListGalleriesParams) ([]*models.Gallery, error) {
	args := m.Called(ctx, p)
	g, _ := args.Get(0).([]*models.Gallery)
	return g, args.Error(1)
}

func (m *MockScope) CountGalleries(ctx context.Context, user string, perm models.Perm, filter map[string]any, parent *int64, allLevels bool) (int, error) {
	args := m.Called(ctx, user, perm, filter, parent, allLevels)
	return args.Int(0), args.Error(1)
}

func (m *MockScope) GetRandomGallery(ctx context.Context, p gallery.ListGalleriesParams) (*models.Gallery, error) {
	return galleryRet(m.Called(ctx, p))
}

func (m *MockScope) GetGalleries(ctx context.Context, ids []int64) ([]*models.Gallery, error) {
	args := m.Called(ctx, ids)
	g, _ := args.Get(0).([]*models.Gallery)
	return g, args.Error(1)
}

func (m *MockScope) GetGalleriesBySlugs(ctx context.Context, slugs []string) ([]*models.Gallery, error) {
	args := m.Called(ctx, slugs)
	g, _ := args.Get(0).([]*models.Gallery)
	return g, args.Error(1)
}

func (m *MockScope) GalleryExists(ctx context.Context, id int64, slug string) (bool, error) {
	args := m.Called(ctx, id, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockScope) ListGalleriesByTags(ctx context.Context, tags []string, matchAll bool) ([]*models.Gallery, error) {
	args := m.Called(ctx, tags, matchAll)
	g, _ := args.Get(0).([]*models.Gallery)
	return g, args.Error(1)
}

func (m *MockScope) RemoveGallery(ctx context.Context, g *models.Gallery) (bool, error) {
	args := m.Called(ctx, g)
	return args.Bool(0), args.Error(1)
}

func (m *MockScope) EmptyGallery(ctx context.Context, g *models.Gallery) error {
	return m.Called(ctx, g).Error(0)
}

func (m *MockScope) UnlockGallery(ctx context.Context, g *models.Gallery, passwd string) error {
	return m.Called(ctx, g, passwd).Error(0)
}

func (m *MockScope) SetGalleryTags(ctx context.Context, g *models.Gallery, tags []string) error {
	return m.Called(ctx, g, tags).Error(0)
}

func (m *MockScope) HasPermission(ctx context.Context, g *models.Gallery, perm models.Perm) (bool, error) {
	args := m.Called(ctx, g, perm)
	return args.Bool(0), args.Error(1)
}

func (m *MockScope) ListCategories(ctx context.Context, perm models.Perm, from, count int) ([]string, error) {
	args := m.Called(ctx, perm, from, count)
	c, _ := args.Get(0).([]string)
	return c, args.Error(1)
}

func (m *MockScope) CountCategories(ctx context.Context, perm models.Perm) (int, error) {
	args := m.Called(ctx, perm)
	return args.Int(0), args.Error(1)
}

func (m *MockScope) GetImage(ctx context.Context, id int64) (*models.Image, error) {
	args := m.Called(ctx, id)
	img, _ := args.Get(0).(*models.Image)
	return img, args.Error(1)
}

func (m *MockScope) GetImages(ctx context.Context, p gallery.GetImagesParams) ([]*models.Image, error) {
	args := m.Called(ctx, p)
	images, _ := args.Get(0).([]*models.Image)
	return images, args.Error(1)
}

func (m *MockScope) GetRecentImages(ctx context.Context, galleryIDs []int64, limit int, slugs []string) ([]*models.Image, error) {
	args := m.Called(ctx, galleryIDs, limit, slugs)
	images, _ := args.Get(0).([]*models.Image)
	return images, args.Error(1)
}

func (m *MockScope) SaveImage(ctx context.Context, img *models.Image) (int64, error) {
	args := m.Called(ctx, img)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScope) AddImage(ctx context.Context, g *models.Gallery, img *models.Image) (int64, error) {
	args := m.Called(ctx, g, img)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScope) RemoveImage(ctx context.Context, g *models.Gallery, imageID int64, isStack bool) error {
	return m.Called(ctx, g, imageID, isStack).Error(0)
}

func (m *MockScope) SaveImageAttribute(ctx context.Context, imageID int64, name, value string) error {
	return m.Called(ctx, imageID, name, value).Error(0)
}

func (m *MockScope) GetImageAttributes(ctx context.Context, imageID int64) (map[string]string, error) {
	args := m.Called(ctx, imageID)
	a, _ := args.Get(0).(map[string]string)
	return a, args.Error(1)
}

func (m *MockScope) GetImageJSON(ctx context.Context, ids []int64, opts gallery.ImageJSONOptions) (string, error) {
	args := m.Called(ctx, ids, opts)
	return args.String(0), args.Error(1)
}

func (m *MockScope) AddComment(ctx context.Context, imageID int64, text string) (int64, error) {
	args := m.Called(ctx, imageID, text)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScope) GetImagesGeodata(ctx context.Context, ids []int64, galleryID int64) ([]models.GeoData, error) {
	args := m.Called(ctx, ids, galleryID)
	g, _ := args.Get(0).([]models.GeoData)
	return g, args.Error(1)
}

func (m *MockScope) GetRecentImagesGeodata(ctx context.Context, user string, start, count int) ([]models.GeoData, error) {
	args := m.Called(ctx, user, start, count)
	g, _ := args.Get(0).([]models.GeoData)
	return g, args.Error(1)
}

func (m *MockScope) SearchLocations(ctx context.Context, prefix string) ([]models.Location, error) {
	args := m.Called(ctx, prefix)
	l, _ := args.Get(0).([]models.Location)
	return l, args.Error(1)
}

// stubRenderer points every view at a fixed relative path.
type stubRenderer struct {
	err error
}

func (s *stubRenderer) Render(ctx context.Context, img *models.Image, view string, style models.Style) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	return "views/" + view + "_" + style.Name + ".jpg", nil
}

func (s *stubRenderer) RenderStack(ctx context.Context, galleryID int64, images []*models.Image, style models.Style) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	return "stacks/key.jpg", nil
}
