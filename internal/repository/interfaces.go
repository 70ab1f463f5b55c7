package repository

import (
	"context"

	"ansel/internal/domain/models"

	sq "github.com/Masterminds/squirrel"
)

// ShareQuery filters a listing of galleries visible to a user.
type ShareQuery struct {
	Perm models.Perm
	// Attributes are equality filters keyed by attribute name, "owner"
	// included.
	Attributes map[string]any
	// Parent restricts the listing to descendants of a gallery. Nil means
	// the whole tree.
	Parent *int64
	// AllLevels includes every descendant instead of direct children only.
	// Without a parent and without all levels only root galleries match.
	AllLevels bool
	From      int
	Count     int
	SortBy    string
	Direction int
}

// ListImagesQuery is a low-level image row fetch. An explicit Where replaces
// the gallery filter.
type ListImagesQuery struct {
	GalleryID int64
	From      int
	Count     int
	Fields    []string
	Where     sq.Sqlizer
	GroupBy   []string
	Sort      string
}

// RecentImagesQuery selects the newest images of explicit galleries, of
// galleries named by slug, or of every gallery matching Visible.
type RecentImagesQuery struct {
	GalleryIDs []int64
	Slugs      []string
	Visible    sq.Sqlizer
	Limit      int
}

type ShareRepository interface {
	NewShare(owner, name string) *models.Gallery
	AddShare(ctx context.Context, g *models.Gallery) error
	SaveShare(ctx context.Context, g *models.Gallery) error
	SetPermission(ctx context.Context, g *models.Gallery, perm models.Permission) error
	RemoveShare(ctx context.Context, g *models.Gallery) error
	Descendants(ctx context.Context, g *models.Gallery) ([]*models.Gallery, error)
	GetShareByID(ctx context.Context, id int64) (*models.Gallery, error)
	GetShares(ctx context.Context, ids []int64) ([]*models.Gallery, error)
	ListShares(ctx context.Context, user string, groups []string, q ShareQuery) ([]*models.Gallery, error)
	CountShares(ctx context.Context, user string, groups []string, q ShareQuery) (int, error)
	SlugOwner(ctx context.Context, slug string) (int64, error)
	IDsBySlugs(ctx context.Context, slugs []string) ([]int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Categories(ctx context.Context, user string, groups []string, perm models.Perm, from, count int) ([]string, error)
	CountCategories(ctx context.Context, user string, groups []string, perm models.Perm) (int, error)
	SetTags(ctx context.Context, id int64, tags []string) error
	GetTags(ctx context.Context, id int64) ([]string, error)
	SharesByTags(ctx context.Context, user string, groups []string, tags []string, matchAll bool) ([]*models.Gallery, error)
	Table() string
	Criteria(user string, groups []string, perm models.Perm) sq.Sqlizer
}

type ImageRepository interface {
	NextID(ctx context.Context) (int64, error)
	Insert(ctx context.Context, img *models.Image) error
	Update(ctx context.Context, img *models.Image) (int64, error)
	GetImage(ctx context.Context, id int64) (*models.Image, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Image, error)
	Delete(ctx context.Context, id int64) error
	SaveAttribute(ctx context.Context, imageID int64, name, value string) error
	Attributes(ctx context.Context, imageID int64) (map[string]string, error)
	ListImages(ctx context.Context, q ListImagesQuery) ([]*models.Image, error)
	Recent(ctx context.Context, q RecentImagesQuery) ([]*models.Image, error)
	Geodata(ctx context.Context, ids []int64, galleryID int64) ([]models.GeoData, error)
	RecentGeodata(ctx context.Context, visible sq.Sqlizer, owner string, start, count int) ([]models.GeoData, error)
	SearchLocations(ctx context.Context, prefix string) ([]models.Location, error)
}

type GroupRepository interface {
	Memberships(ctx context.Context, user string) ([]string, error)
}

// CommentRepository is optional. It reports comment totals per image.
type CommentRepository interface {
	CountByImages(ctx context.Context, ids []int64) (map[int64]int, error)
	AddComment(ctx context.Context, imageID int64, author, text string) (int64, error)
}
