package services

import (
	"context"

	"ansel/internal/domain/models"
	"ansel/internal/repository"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/mock"
)

type MockShareRepository struct {
	mock.Mock
}

func (m *MockShareRepository) NewShare(owner, name string) *models.Gallery {
	return &models.Gallery{
		Owner:       owner,
		Name:        name,
		ViewMode:    models.DefaultViewMode,
		DefaultType: models.DefaultType,
		Perm:        models.NewPermission(),
	}
}

func (m *MockShareRepository) AddShare(ctx context.Context, g *models.Gallery) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockShareRepository) SaveShare(ctx context.Context, g *models.Gallery) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockShareRepository) SetPermission(ctx context.Context, g *models.Gallery, perm models.Permission) error {
	args := m.Called(ctx, g, perm)
	return args.Error(0)
}

func (m *MockShareRepository) RemoveShare(ctx context.Context, g *models.Gallery) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockShareRepository) Descendants(ctx context.Context, g *models.Gallery) ([]*models.Gallery, error) {
	args := m.Called(ctx, g)
	return galleriesArg(args, 0), args.Error(1)
}

func (m *MockShareRepository) GetShareByID(ctx context.Context, id int64) (*models.Gallery, error) {
	args := m.Called(ctx, id)
	g, _ := args.Get(0).(*models.Gallery)
	return g, args.Error(1)
}

func (m *MockShareRepository) GetShares(ctx context.Context, ids []int64) ([]*models.Gallery, error) {
	args := m.Called(ctx, ids)
	return galleriesArg(args, 0), args.Error(1)
}

func (m *MockShareRepository) ListShares(ctx context.Context, user string, groups []string, q repository.ShareQuery) ([]*models.Gallery, error) {
	args := m.Called(ctx, user, groups, q)
	return galleriesArg(args, 0), args.Error(1)
}

func (m *MockShareRepository) CountShares(ctx context.Context, user string, groups []string, q repository.ShareQuery) (int, error) {
	args := m.Called(ctx, user, groups, q)
	return args.Int(0), args.Error(1)
}

func (m *MockShareRepository) SlugOwner(ctx context.Context, slug string) (int64, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockShareRepository) IDsBySlugs(ctx context.Context, slugs []string) ([]int64, error) {
	args := m.Called(ctx, slugs)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *MockShareRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockShareRepository) Categories(ctx context.Context, user string, groups []string, perm models.Perm, from, count int) ([]string, error) {
	args := m.Called(ctx, user, groups, perm, from, count)
	c, _ := args.Get(0).([]string)
	return c, args.Error(1)
}

func (m *MockShareRepository) CountCategories(ctx context.Context, user string, groups []string, perm models.Perm) (int, error) {
	args := m.Called(ctx, user, groups, perm)
	return args.Int(0), args.Error(1)
}

func (m *MockShareRepository) SetTags(ctx context.Context, id int64, tags []string) error {
	args := m.Called(ctx, id, tags)
	return args.Error(0)
}

func (m *MockShareRepository) GetTags(ctx context.Context, id int64) ([]string, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).([]string)
	return t, args.Error(1)
}

func (m *MockShareRepository) SharesByTags(ctx context.Context, user string, groups []string, tags []string, matchAll bool) ([]*models.Gallery, error) {
	args := m.Called(ctx, user, groups, tags, matchAll)
	return galleriesArg(args, 0), args.Error(1)
}

func (m *MockShareRepository) Table() string {
	return "ansel_shares"
}

func (m *MockShareRepository) Criteria(user string, groups []string, perm models.Perm) sq.Sqlizer {
	args := m.Called(user, groups, perm)
	return args.Get(0).(sq.Sqlizer)
}

type MockImageRepository struct {
	mock.Mock
}

func (m *MockImageRepository) NextID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockImageRepository) Insert(ctx context.Context, img *models.Image) error {
	args := m.Called(ctx, img)
	return args.Error(0)
}

func (m *MockImageRepository) Update(ctx context.Context, img *models.Image) (int64, error) {
	args := m.Called(ctx, img)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockImageRepository) GetImage(ctx context.Context, id int64) (*models.Image, error) {
	args := m.Called(ctx, id)
	img, _ := args.Get(0).(*models.Image)
	return img, args.Error(1)
}

func (m *MockImageRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Image, error) {
	args := m.Called(ctx, ids)
	return imagesArg(args, 0), args.Error(1)
}

func (m *MockImageRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockImageRepository) SaveAttribute(ctx context.Context, imageID int64, name, value string) error {
	args := m.Called(ctx, imageID, name, value)
	return args.Error(0)
}

func (m *MockImageRepository) Attributes(ctx context.Context, imageID int64) (map[string]string, error) {
	args := m.Called(ctx, imageID)
	a, _ := args.Get(0).(map[string]string)
	return a, args.Error(1)
}

func (m *MockImageRepository) ListImages(ctx context.Context, q repository.ListImagesQuery) ([]*models.Image, error) {
	args := m.Called(ctx, q)
	return imagesArg(args, 0), args.Error(1)
}

func (m *MockImageRepository) Recent(ctx context.Context, q repository.RecentImagesQuery) ([]*models.Image, error) {
	args := m.Called(ctx, q)
	return imagesArg(args, 0), args.Error(1)
}

func (m *MockImageRepository) Geodata(ctx context.Context, ids []int64, galleryID int64) ([]models.GeoData, error) {
	args := m.Called(ctx, ids, galleryID)
	d, _ := args.Get(0).([]models.GeoData)
	return d, args.Error(1)
}

func (m *MockImageRepository) RecentGeodata(ctx context.Context, visible sq.Sqlizer, owner string, start, count int) ([]models.GeoData, error) {
	args := m.Called(ctx, visible, owner, start, count)
	d, _ := args.Get(0).([]models.GeoData)
	return d, args.Error(1)
}

func (m *MockImageRepository) SearchLocations(ctx context.Context, prefix string) ([]models.Location, error) {
	args := m.Called(ctx, prefix)
	l, _ := args.Get(0).([]models.Location)
	return l, args.Error(1)
}

type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Memberships(ctx context.Context, user string) ([]string, error) {
	args := m.Called(ctx, user)
	g, _ := args.Get(0).([]string)
	return g, args.Error(1)
}

type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) CountByImages(ctx context.Context, ids []int64) (map[int64]int, error) {
	args := m.Called(ctx, ids)
	c, _ := args.Get(0).(map[int64]int)
	return c, args.Error(1)
}

func (m *MockCommentRepository) AddComment(ctx context.Context, imageID int64, author, text string) (int64, error) {
	args := m.Called(ctx, imageID, author, text)
	return args.Get(0).(int64), args.Error(1)
}

func galleriesArg(args mock.Arguments, i int) []*models.Gallery {
	g, _ := args.Get(i).([]*models.Gallery)
	return g
}

func imagesArg(args mock.Arguments, i int) []*models.Image {
	img, _ := args.Get(i).([]*models.Image)
	return img
}
