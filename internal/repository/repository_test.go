package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ansel/internal/domain/models"
	"ansel/internal/lib/charset"
	"ansel/internal/repository"
	"ansel/internal/storage"
	"ansel/internal/storage/postgresql"

	sq "github.com/Masterminds/squirrel"
	"github.com/brianvoe/gofakeit"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testCtx = context.Background()

type RepositorySuite struct {
	suite.Suite
	db   *pgxpool.Pool
	repo *repository.Repository
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}

	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.db = setupTestDB(s.T())
	s.repo = repository.New(s.db, charset.MustNew("UTF-8"))
}

func (s *RepositorySuite) SetupTest() {
	_, err := s.db.Exec(testCtx, `TRUNCATE ansel_shares, ansel_shares_users, ansel_shares_groups,
		ansel_group_members, ansel_images, ansel_image_attributes, ansel_comments RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	pool, err := pgxpool.Connect(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, postgresql.Migrate(ctx, pool))

	t.Cleanup(func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	})

	return pool
}

func (s *RepositorySuite) addGallery(owner, name string, mutate func(g *models.Gallery)) *models.Gallery {
	g := s.repo.Shares.NewShare(owner, name)
	g.DateCreated = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	g.LastModified = g.DateCreated
	if mutate != nil {
		mutate(g)
	}
	s.Require().NoError(s.repo.Shares.AddShare(testCtx, g))
	s.Require().NotZero(g.ID)

	return g
}

func (s *RepositorySuite) addImage(galleryID int64, mutate func(img *models.Image)) *models.Image {
	id, err := s.repo.Images.NextID(testCtx)
	s.Require().NoError(err)

	img := &models.Image{
		ID:       id,
		Gallery:  galleryID,
		Filename: fmt.Sprintf("img%d.jpg", id),
		Type:     "image/jpeg",
		Caption:  gofakeit.Sentence(4),
		Uploaded: time.Unix(1_700_000_000+id, 0).UTC(),
	}
	if mutate != nil {
		mutate(img)
	}
	s.Require().NoError(s.repo.Images.Insert(testCtx, img))

	return img
}

func (s *RepositorySuite) TestShareRoundTrip() {
	g := s.addGallery("alice", "Holidays", func(g *models.Gallery) {
		g.Desc = gofakeit.Sentence(6)
		g.Slug = "holidays"
		g.Category = "travel"
		g.Tags = []string{"sea", "sun"}
		g.Perm.AddUserPermission("bob", models.PermShow|models.PermRead)
		g.Perm.AddGroupPermission("family", models.PermAll)
		g.Perm.AddGuestPermission(models.PermShow)
	})

	got, err := s.repo.Shares.GetShareByID(testCtx, g.ID)
	s.Require().NoError(err)

	s.Equal("alice", got.Owner)
	s.Equal("Holidays", got.Name)
	s.Equal(g.Desc, got.Desc)
	s.Equal("holidays", got.Slug)
	s.Equal("travel", got.Category)
	s.Equal([]string{"sea", "sun"}, got.Tags)
	s.Equal(models.DefaultViewMode, got.ViewMode)
	s.Equal(g.DateCreated, got.DateCreated)
	s.Equal(models.PermShow|models.PermRead, got.Perm.Users["bob"])
	s.Equal(models.PermAll, got.Perm.Groups["family"])
	s.Equal(models.PermShow, got.Perm.Guest)

	s.Run("save", func() {
		got.Images = 3
		got.HasSubgalleries = true
		s.Require().NoError(s.repo.Shares.SaveShare(testCtx, got))

		again, err := s.repo.Shares.GetShareByID(testCtx, g.ID)
		s.Require().NoError(err)
		s.Equal(3, again.Images)
		s.True(again.HasSubgalleries)
	})

	s.Run("set permission", func() {
		perm := models.NewPermission()
		perm.AddDefaultPermission(models.PermShow)
		s.Require().NoError(s.repo.Shares.SetPermission(testCtx, got, perm))

		again, err := s.repo.Shares.GetShareByID(testCtx, g.ID)
		s.Require().NoError(err)
		s.Empty(again.Perm.Users)
		s.Empty(again.Perm.Groups)
		s.Equal(models.PermShow, again.Perm.Default)
		s.Equal(models.Perm(0), again.Perm.Guest)
	})

	s.Run("missing", func() {
		_, err := s.repo.Shares.GetShareByID(testCtx, g.ID+100)
		s.ErrorIs(err, storage.ErrGalleryNotFound)

		exists, err := s.repo.Shares.Exists(testCtx, g.ID+100)
		s.NoError(err)
		s.False(exists)
	})
}

func (s *RepositorySuite) TestSlugs() {
	g := s.addGallery("alice", "Summer", func(g *models.Gallery) { g.Slug = "summer-2024" })
	other := s.addGallery("alice", "Winter", func(g *models.Gallery) { g.Slug = "winter" })
	s.addGallery("alice", "No slug", nil)
	s.addGallery("bob", "No slug either", nil)

	id, err := s.repo.Shares.SlugOwner(testCtx, "summer-2024")
	s.Require().NoError(err)
	s.Equal(g.ID, id)

	id, err = s.repo.Shares.SlugOwner(testCtx, "")
	s.Require().NoError(err)
	s.Zero(id)

	id, err = s.repo.Shares.SlugOwner(testCtx, "nope")
	s.Require().NoError(err)
	s.Zero(id)

	ids, err := s.repo.Shares.IDsBySlugs(testCtx, []string{"winter", "nope", "summer-2024"})
	s.Require().NoError(err)
	s.Equal([]int64{other.ID, g.ID}, ids)

	dup := s.repo.Shares.NewShare("bob", "Copy")
	dup.Slug = "summer-2024"
	s.ErrorIs(s.repo.Shares.AddShare(testCtx, dup), storage.ErrSlugExists)
}

func (s *RepositorySuite) TestVisibility() {
	public := s.addGallery("alice", "A public", func(g *models.Gallery) {
		g.Perm.AddGuestPermission(models.PermShow | models.PermRead)
		g.Perm.AddDefaultPermission(models.PermShow | models.PermRead)
	})
	private := s.addGallery("alice", "B private", nil)
	shared := s.addGallery("alice", "C shared", func(g *models.Gallery) {
		g.Perm.AddUserPermission("bob", models.PermShow)
	})
	family := s.addGallery("alice", "D family", func(g *models.Gallery) {
		g.Perm.AddGroupPermission("family", models.PermShow)
	})
	s.Require().NoError(s.repo.Groups.AddMember(testCtx, "family", "carol"))

	names := func(user string, groups []string) []int64 {
		list, err := s.repo.Shares.ListShares(testCtx, user, groups, repository.ShareQuery{Perm: models.PermShow, AllLevels: true})
		s.Require().NoError(err)
		ids := make([]int64, 0, len(list))
		for _, g := range list {
			ids = append(ids, g.ID)
		}
		return ids
	}

	s.Equal([]int64{public.ID}, names("", nil))
	s.Equal([]int64{public.ID, private.ID, shared.ID, family.ID}, names("alice", nil))
	s.Equal([]int64{public.ID, shared.ID}, names("bob", nil))
	s.Equal([]int64{public.ID, family.ID}, names("carol", nil))
	s.Equal([]int64{public.ID, family.ID}, names("dave", []string{"family"}))

	count, err := s.repo.Shares.CountShares(testCtx, "bob", nil, repository.ShareQuery{Perm: models.PermShow, AllLevels: true})
	s.Require().NoError(err)
	s.Equal(2, count)

	s.Run("edit perm", func() {
		count, err := s.repo.Shares.CountShares(testCtx, "bob", nil, repository.ShareQuery{Perm: models.PermEdit, AllLevels: true})
		s.Require().NoError(err)
		s.Zero(count)
	})

	s.Run("attribute filter", func() {
		list, err := s.repo.Shares.ListShares(testCtx, "alice", nil, repository.ShareQuery{
			Perm:       models.PermShow,
			AllLevels:  true,
			Attributes: map[string]any{"name": "C shared"},
		})
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(shared.ID, list[0].ID)
	})

	s.Run("unknown attribute", func() {
		_, err := s.repo.Shares.ListShares(testCtx, "alice", nil, repository.ShareQuery{
			Attributes: map[string]any{"passwd": "x"},
		})
		s.ErrorIs(err, storage.ErrInvalidAttribute)
	})

	s.Run("sorting and paging", func() {
		list, err := s.repo.Shares.ListShares(testCtx, "alice", nil, repository.ShareQuery{
			Perm:      models.PermShow,
			AllLevels: true,
			SortBy:    "name",
			Direction: 1,
			From:      1,
			Count:     2,
		})
		s.Require().NoError(err)
		s.Require().Len(list, 2)
		s.Equal(shared.ID, list[0].ID)
		s.Equal(private.ID, list[1].ID)
	})
}

func (s *RepositorySuite) TestHierarchy() {
	root := s.addGallery("alice", "Root", nil)
	child := s.addGallery("alice", "Child", func(g *models.Gallery) { g.SetParent(root) })
	grandchild := s.addGallery("alice", "Grandchild", func(g *models.Gallery) { g.SetParent(child) })
	other := s.addGallery("alice", "Other", nil)

	list := func(q repository.ShareQuery) []int64 {
		q.Perm = models.PermShow
		galleries, err := s.repo.Shares.ListShares(testCtx, "alice", nil, q)
		s.Require().NoError(err)
		ids := make([]int64, 0, len(galleries))
		for _, g := range galleries {
			ids = append(ids, g.ID)
		}
		return ids
	}

	parent := root.ID
	s.Equal([]int64{child.ID}, list(repository.ShareQuery{Parent: &parent}))
	s.ElementsMatch([]int64{child.ID, grandchild.ID}, list(repository.ShareQuery{Parent: &parent, AllLevels: true}))
	s.ElementsMatch([]int64{root.ID, other.ID}, list(repository.ShareQuery{}))

	s.Equal(root.ID, child.ParentID())
	s.Equal(child.ID, grandchild.ParentID())

	below, err := s.repo.Shares.Descendants(testCtx, root)
	s.Require().NoError(err)
	s.Require().Len(below, 2)
	s.Equal(grandchild.ID, below[0].ID)
	s.Equal(child.ID, below[1].ID)

	s.Require().NoError(s.repo.Shares.RemoveShare(testCtx, child))

	for _, id := range []int64{child.ID, grandchild.ID} {
		exists, err := s.repo.Shares.Exists(testCtx, id)
		s.Require().NoError(err)
		s.False(exists)
	}
	exists, err := s.repo.Shares.Exists(testCtx, root.ID)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *RepositorySuite) TestCategoriesAndTags() {
	s.addGallery("alice", "One", func(g *models.Gallery) { g.Category = "travel"; g.Tags = []string{"sea"} })
	s.addGallery("alice", "Two", func(g *models.Gallery) { g.Category = "family"; g.Tags = []string{"sea", "kids"} })
	three := s.addGallery("alice", "Three", func(g *models.Gallery) { g.Category = "travel" })

	categories, err := s.repo.Shares.Categories(testCtx, "alice", nil, models.PermShow, 0, 0)
	s.Require().NoError(err)
	s.Equal([]string{"family", "travel"}, categories)

	count, err := s.repo.Shares.CountCategories(testCtx, "alice", nil, models.PermShow)
	s.Require().NoError(err)
	s.Equal(2, count)

	anyTag, err := s.repo.Shares.SharesByTags(testCtx, "alice", nil, []string{"sea", "kids"}, false)
	s.Require().NoError(err)
	s.Len(anyTag, 2)

	all, err := s.repo.Shares.SharesByTags(testCtx, "alice", nil, []string{"sea", "kids"}, true)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal("Two", all[0].Name)

	s.Require().NoError(s.repo.Shares.SetTags(testCtx, three.ID, []string{"mountains"}))
	tags, err := s.repo.Shares.GetTags(testCtx, three.ID)
	s.Require().NoError(err)
	s.Equal([]string{"mountains"}, tags)

	s.Require().NoError(s.repo.Shares.SetTags(testCtx, three.ID, nil))
	tags, err = s.repo.Shares.GetTags(testCtx, three.ID)
	s.Require().NoError(err)
	s.Empty(tags)
}

func (s *RepositorySuite) TestImages() {
	g := s.addGallery("alice", "Photos", nil)
	first := s.addImage(g.ID, func(img *models.Image) { img.Sort = 2 })
	second := s.addImage(g.ID, func(img *models.Image) { img.Sort = 1 })

	got, err := s.repo.Images.GetImage(testCtx, first.ID)
	s.Require().NoError(err)
	s.Equal(first.Filename, got.Filename)
	s.Equal(first.Caption, got.Caption)
	s.Equal(first.Uploaded, got.Uploaded)
	s.True(got.OriginalDate.IsZero())

	s.Run("update", func() {
		got.Caption = "new caption"
		n, err := s.repo.Images.Update(testCtx, got)
		s.Require().NoError(err)
		s.Equal(int64(1), n)

		again, err := s.repo.Images.GetImage(testCtx, first.ID)
		s.Require().NoError(err)
		s.Equal("new caption", again.Caption)
	})

	s.Run("list by gallery sorted", func() {
		images, err := s.repo.Images.ListImages(testCtx, repository.ListImagesQuery{GalleryID: g.ID})
		s.Require().NoError(err)
		s.Require().Len(images, 2)
		s.Equal(second.ID, images[0].ID)
		s.Equal(first.ID, images[1].ID)
	})

	s.Run("list ids only", func() {
		images, err := s.repo.Images.ListImages(testCtx, repository.ListImagesQuery{
			GalleryID: g.ID,
			Fields:    []string{"image_id"},
			Sort:      "image_id",
		})
		s.Require().NoError(err)
		s.Require().Len(images, 2)
		s.Equal(first.ID, images[0].ID)
		s.Empty(images[0].Filename)
	})

	s.Run("explicit where", func() {
		images, err := s.repo.Images.ListImages(testCtx, repository.ListImagesQuery{
			Where: sq.Eq{"image_id": second.ID},
		})
		s.Require().NoError(err)
		s.Require().Len(images, 1)
		s.Equal(second.ID, images[0].ID)
	})

	s.Run("unknown field", func() {
		_, err := s.repo.Images.ListImages(testCtx, repository.ListImagesQuery{Fields: []string{"nope"}})
		s.ErrorIs(err, storage.ErrInvalidAttribute)
	})

	s.Run("attributes keep duplicates", func() {
		s.Require().NoError(s.repo.Images.SaveAttribute(testCtx, first.ID, "camera", "old"))
		s.Require().NoError(s.repo.Images.SaveAttribute(testCtx, first.ID, "camera", "new"))
		s.Require().NoError(s.repo.Images.SaveAttribute(testCtx, first.ID, "lens", "50mm"))

		var rows int
		err := s.db.QueryRow(testCtx, `SELECT COUNT(*) FROM ansel_image_attributes WHERE image_id = $1`, first.ID).Scan(&rows)
		s.Require().NoError(err)
		s.Equal(3, rows)

		attrs, err := s.repo.Images.Attributes(testCtx, first.ID)
		s.Require().NoError(err)
		s.Equal("50mm", attrs["lens"])
		s.Contains([]string{"old", "new"}, attrs["camera"])
	})

	s.Run("delete", func() {
		s.Require().NoError(s.repo.Images.Delete(testCtx, second.ID))
		_, err := s.repo.Images.GetImage(testCtx, second.ID)
		s.ErrorIs(err, storage.ErrImageNotFound)
	})
}

func (s *RepositorySuite) TestRecentImages() {
	mine := s.addGallery("alice", "Mine", func(g *models.Gallery) { g.Slug = "mine" })
	public := s.addGallery("bob", "Public", func(g *models.Gallery) {
		g.Perm.AddGuestPermission(models.PermShow)
	})

	old := s.addImage(mine.ID, func(img *models.Image) { img.Uploaded = time.Unix(1_000, 0).UTC() })
	newer := s.addImage(mine.ID, func(img *models.Image) { img.Uploaded = time.Unix(3_000, 0).UTC() })
	pub := s.addImage(public.ID, func(img *models.Image) { img.Uploaded = time.Unix(2_000, 0).UTC() })

	ids := func(images []*models.Image) []int64 {
		out := make([]int64, 0, len(images))
		for _, img := range images {
			out = append(out, img.ID)
		}
		return out
	}

	images, err := s.repo.Images.Recent(testCtx, repository.RecentImagesQuery{GalleryIDs: []int64{mine.ID}, Limit: 10})
	s.Require().NoError(err)
	s.Equal([]int64{newer.ID, old.ID}, ids(images))

	images, err = s.repo.Images.Recent(testCtx, repository.RecentImagesQuery{Slugs: []string{"mine"}, Limit: 1})
	s.Require().NoError(err)
	s.Equal([]int64{newer.ID}, ids(images))

	images, err = s.repo.Images.Recent(testCtx, repository.RecentImagesQuery{
		Visible: s.repo.Shares.Criteria("", nil, models.PermShow),
		Limit:   10,
	})
	s.Require().NoError(err)
	s.Equal([]int64{pub.ID}, ids(images))

	images, err = s.repo.Images.Recent(testCtx, repository.RecentImagesQuery{
		Visible: s.repo.Shares.Criteria("alice", nil, models.PermShow),
		Limit:   10,
	})
	s.Require().NoError(err)
	s.Equal([]int64{newer.ID, old.ID}, ids(images))
}

func (s *RepositorySuite) TestGeodata() {
	g := s.addGallery("alice", "Trips", nil)
	paris := s.addImage(g.ID, func(img *models.Image) {
		img.Latitude, img.Longitude, img.Location = "48.85", "2.35", "Paris"
		img.GeotagDate = time.Unix(1_000, 0).UTC()
	})
	parisAgain := s.addImage(g.ID, func(img *models.Image) {
		img.Latitude, img.Longitude, img.Location = "48.85", "2.35", "Paris"
		img.GeotagDate = time.Unix(3_000, 0).UTC()
	})
	porto := s.addImage(g.ID, func(img *models.Image) {
		img.Latitude, img.Longitude, img.Location = "41.15", "-8.61", "Porto"
		img.GeotagDate = time.Unix(2_000, 0).UTC()
	})
	plain := s.addImage(g.ID, nil)

	data, err := s.repo.Images.Geodata(testCtx, nil, g.ID)
	s.Require().NoError(err)
	s.Len(data, 3)

	data, err = s.repo.Images.Geodata(testCtx, []int64{porto.ID, plain.ID}, 0)
	s.Require().NoError(err)
	s.Require().Len(data, 1)
	s.Equal(porto.ID, data[0].ImageID)
	s.Equal("Porto", data[0].Location)

	elsewhere := s.addGallery("carol", "Elsewhere", nil)
	lisbon := s.addImage(elsewhere.ID, func(img *models.Image) {
		img.Latitude, img.Longitude, img.Location = "38.72", "-9.14", "Lisbon"
		img.GeotagDate = time.Unix(4_000, 0).UTC()
	})

	// the gallery filter wins over ids
	data, err = s.repo.Images.Geodata(testCtx, []int64{lisbon.ID, porto.ID}, g.ID)
	s.Require().NoError(err)
	s.Len(data, 3)
	for _, d := range data {
		s.Equal(g.ID, d.GalleryID)
	}

	data, err = s.repo.Images.Geodata(testCtx, nil, 0)
	s.Require().NoError(err)
	s.NotNil(data)
	s.Empty(data)

	recent, err := s.repo.Images.RecentGeodata(testCtx, s.repo.Shares.Criteria("alice", nil, models.PermEdit), "", 0, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("Paris", recent[0].Location)
	s.Equal(parisAgain.ID, recent[0].ImageID)
	s.Equal("Porto", recent[1].Location)
	s.NotEqual(paris.ID, recent[0].ImageID)

	recent, err = s.repo.Images.RecentGeodata(testCtx, s.repo.Shares.Criteria("alice", nil, models.PermEdit), "carol", 0, 10)
	s.Require().NoError(err)
	s.Empty(recent)

	recent, err = s.repo.Images.RecentGeodata(testCtx, s.repo.Shares.Criteria("carol", nil, models.PermEdit), "carol", 0, 10)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal("Lisbon", recent[0].Location)

	recent, err = s.repo.Images.RecentGeodata(testCtx, s.repo.Shares.Criteria("bob", nil, models.PermEdit), "", 0, 10)
	s.Require().NoError(err)
	s.Empty(recent)

	locations, err := s.repo.Images.SearchLocations(testCtx, "Pa")
	s.Require().NoError(err)
	s.Require().Len(locations, 1)
	s.Equal("Paris", locations[0].Location)

	// prefix search is case sensitive
	locations, err = s.repo.Images.SearchLocations(testCtx, "pa")
	s.Require().NoError(err)
	s.Empty(locations)
}

func (s *RepositorySuite) TestCommentsAndGroups() {
	g := s.addGallery("alice", "Talk", nil)
	img := s.addImage(g.ID, nil)
	quiet := s.addImage(g.ID, nil)

	for i := 0; i < 2; i++ {
		_, err := s.repo.Comments.AddComment(testCtx, img.ID, gofakeit.Name(), gofakeit.Sentence(5))
		s.Require().NoError(err)
	}

	counts, err := s.repo.Comments.CountByImages(testCtx, []int64{img.ID, quiet.ID})
	s.Require().NoError(err)
	s.Equal(2, counts[img.ID])
	s.Zero(counts[quiet.ID])

	s.Require().NoError(s.repo.Groups.AddMember(testCtx, "family", "alice"))
	s.Require().NoError(s.repo.Groups.AddMember(testCtx, "friends", "alice"))
	s.Require().NoError(s.repo.Groups.AddMember(testCtx, "friends", "alice"))

	groups, err := s.repo.Groups.Memberships(testCtx, "alice")
	s.Require().NoError(err)
	s.Equal([]string{"family", "friends"}, groups)

	groups, err = s.repo.Groups.Memberships(testCtx, "")
	s.Require().NoError(err)
	s.Empty(groups)
}
