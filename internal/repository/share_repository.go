package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"ansel/internal/domain/models"
	"ansel/internal/lib/charset"
	"ansel/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"
)

const (
	sharesTable      = "ansel_shares"
	shareUsersTable  = "ansel_shares_users"
	shareGroupsTable = "ansel_shares_groups"

	uniqueViolation = "23505"
)

var shareColumns = []string{
	"share_id",
	"share_owner",
	"share_parents",
	"share_tags",
	"perm_creator",
	"perm_default",
	"perm_guest",
	"attribute_name",
	"attribute_desc",
	"attribute_style",
	"attribute_category",
	"attribute_date_created",
	"attribute_last_modified",
	"attribute_images",
	"attribute_slug",
	"attribute_age",
	"attribute_passwd",
	"attribute_view_mode",
	"attribute_default",
	"attribute_default_type",
	"attribute_default_prettythumb",
	"attribute_download",
	"attribute_faces",
	"attribute_has_subgalleries",
}

// attributeColumns maps attribute names usable in filters and sorting to
// their columns. The password is deliberately absent.
var attributeColumns = map[string]string{
	"id":                  "share_id",
	"owner":               "share_owner",
	"name":                "attribute_name",
	"desc":                "attribute_desc",
	"style":               "attribute_style",
	"category":            "attribute_category",
	"date_created":        "attribute_date_created",
	"last_modified":       "attribute_last_modified",
	"images":              "attribute_images",
	"slug":                "attribute_slug",
	"age":                 "attribute_age",
	"view_mode":           "attribute_view_mode",
	"default":             "attribute_default",
	"default_type":        "attribute_default_type",
	"download":            "attribute_download",
	"faces":               "attribute_faces",
	"has_subgalleries":    "attribute_has_subgalleries",
	"default_prettythumb": "attribute_default_prettythumb",
}

type ShareRepo struct {
	db   *pgxpool.Pool
	sb   sq.StatementBuilderType
	conv *charset.Converter
}

func NewShareRepo(db *pgxpool.Pool, conv *charset.Converter) *ShareRepo {
	return &ShareRepo{
		db:   db,
		sb:   builder(),
		conv: conv,
	}
}

func (r *ShareRepo) Table() string {
	return sharesTable
}

// NewShare returns an unsaved gallery owned by owner.
func (r *ShareRepo) NewShare(owner, name string) *models.Gallery {
	return &models.Gallery{
		Owner:       owner,
		Name:        name,
		ViewMode:    models.DefaultViewMode,
		DefaultType: models.DefaultType,
		Perm:        models.NewPermission(),
	}
}

func (r *ShareRepo) AddShare(ctx context.Context, g *models.Gallery) error {
	const op = "repository.ShareRepo.AddShare"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	query, args, err := r.sb.Insert(sharesTable).
		SetMap(r.values(g)).
		Suffix("RETURNING share_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&g.ID); err != nil {
		return fmt.Errorf("%s: %w", op, mapShareError(err))
	}

	if err := r.writeGrants(ctx, tx, g.ID, g.Perm); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveShare writes owner, parents and every attribute of g. Permissions
// and tags are saved separately.
func (r *ShareRepo) SaveShare(ctx context.Context, g *models.Gallery) error {
	const op = "repository.ShareRepo.SaveShare"

	values := r.values(g)
	delete(values, "share_tags")
	delete(values, "perm_creator")
	delete(values, "perm_default")
	delete(values, "perm_guest")

	query, args, err := r.sb.Update(sharesTable).
		SetMap(values).
		Where(sq.Eq{"share_id": g.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapShareError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
	}

	return nil
}

// SetPermission replaces every grant of g.
func (r *ShareRepo) SetPermission(ctx context.Context, g *models.Gallery, perm models.Permission) error {
	const op = "repository.ShareRepo.SetPermission"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	query, args, err := r.sb.Update(sharesTable).
		Set("perm_creator", int(perm.Creator)).
		Set("perm_default", int(perm.Default)).
		Set("perm_guest", int(perm.Guest)).
		Where(sq.Eq{"share_id": g.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
	}

	if err := r.writeGrants(ctx, tx, g.ID, perm); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	g.SetPermission(perm.Clone())

	return nil
}

// RemoveShare deletes g and every gallery below it. Grants go with them.
func (r *ShareRepo) RemoveShare(ctx context.Context, g *models.Gallery) error {
	const op = "repository.ShareRepo.RemoveShare"

	child := g.ChildParents()
	query, args, err := r.sb.Delete(sharesTable).
		Where(sq.Or{
			sq.Eq{"share_id": g.ID},
			sq.Eq{"share_parents": child},
			sq.Like{"share_parents": child + ":%"},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
	}

	return nil
}

// Descendants returns every gallery below g regardless of permissions,
// deepest first.
func (r *ShareRepo) Descendants(ctx context.Context, g *models.Gallery) ([]*models.Gallery, error) {
	const op = "repository.ShareRepo.Descendants"

	child := g.ChildParents()
	qb := r.sb.Select(shareColumns...).
		From(sharesTable).
		Where(sq.Or{
			sq.Eq{"share_parents": child},
			sq.Like{"share_parents": child + ":%"},
		}).
		OrderBy("LENGTH(share_parents) DESC", "share_id")

	galleries, err := r.query(ctx, qb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return galleries, nil
}

func (r *ShareRepo) GetShareByID(ctx context.Context, id int64) (*models.Gallery, error) {
	const op = "repository.ShareRepo.GetShareByID"

	query, args, err := r.sb.Select(shareColumns...).
		From(sharesTable).
		Where(sq.Eq{"share_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	g, err := r.scan(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.loadGrants(ctx, []*models.Gallery{g}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return g, nil
}

// GetShares returns the galleries with the given ids, ordered by id.
// Unknown ids are skipped.
func (r *ShareRepo) GetShares(ctx context.Context, ids []int64) ([]*models.Gallery, error) {
	const op = "repository.ShareRepo.GetShares"

	if len(ids) == 0 {
		return nil, nil
	}

	qb := r.sb.Select(shareColumns...).
		From(sharesTable).
		Where(sq.Eq{"share_id": ids}).
		OrderBy("share_id")

	galleries, err := r.query(ctx, qb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return galleries, nil
}

func (r *ShareRepo) ListShares(ctx context.Context, user string, groups []string, q ShareQuery) ([]*models.Gallery, error) {
	const op = "repository.ShareRepo.ListShares"

	qb := r.sb.Select(shareColumns...).
		From(sharesTable).
		Where(r.Criteria(user, groups, q.Perm))

	qb, err := r.applyFilters(ctx, qb, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sortCol, ok := attributeColumns[q.SortBy]
	if !ok {
		sortCol = "attribute_name"
	}
	dir := "ASC"
	if q.Direction != 0 {
		dir = "DESC"
	}
	qb = qb.OrderBy(sortCol+" "+dir, "share_id "+dir)

	if q.Count > 0 {
		qb = qb.Limit(uint64(q.Count))
	}
	if q.From > 0 {
		qb = qb.Offset(uint64(q.From))
	}

	galleries, err := r.query(ctx, qb)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return galleries, nil
}

func (r *ShareRepo) CountShares(ctx context.Context, user string, groups []string, q ShareQuery) (int, error) {
	const op = "repository.ShareRepo.CountShares"

	qb := r.sb.Select("COUNT(*)").
		From(sharesTable).
		Where(r.Criteria(user, groups, q.Perm))

	qb, err := r.applyFilters(ctx, qb, q)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// SlugOwner returns the id of the gallery using slug, or 0.
func (r *ShareRepo) SlugOwner(ctx context.Context, slug string) (int64, error) {
	const op = "repository.ShareRepo.SlugOwner"

	if slug == "" {
		return 0, nil
	}

	query, args, err := r.sb.Select("share_id").
		From(sharesTable).
		Where(sq.Eq{"attribute_slug": slug}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// IDsBySlugs resolves slugs to ids in input order. Unknown slugs are
// skipped.
func (r *ShareRepo) IDsBySlugs(ctx context.Context, slugs []string) ([]int64, error) {
	const op = "repository.ShareRepo.IDsBySlugs"

	if len(slugs) == 0 {
		return nil, nil
	}

	query, args, err := r.sb.Select("share_id", "attribute_slug").
		From(sharesTable).
		Where(sq.Eq{"attribute_slug": slugs}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	bySlug := make(map[string]int64, len(slugs))
	for rows.Next() {
		var (
			id   int64
			slug string
		)
		if err := rows.Scan(&id, &slug); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		bySlug[slug] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ids := make([]int64, 0, len(bySlug))
	for _, slug := range slugs {
		if id, ok := bySlug[slug]; ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (r *ShareRepo) Exists(ctx context.Context, id int64) (bool, error) {
	const op = "repository.ShareRepo.Exists"

	query, args, err := r.sb.Select("1").
		From(sharesTable).
		Where(sq.Eq{"share_id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	var one int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// Categories lists the distinct non-empty categories of galleries visible
// to user.
func (r *ShareRepo) Categories(ctx context.Context, user string, groups []string, perm models.Perm, from, count int) ([]string, error) {
	const op = "repository.ShareRepo.Categories"

	qb := r.sb.Select("DISTINCT attribute_category").
		From(sharesTable).
		Where(r.Criteria(user, groups, perm)).
		Where(sq.NotEq{"attribute_category": ""}).
		OrderBy("attribute_category")
	if count > 0 {
		qb = qb.Limit(uint64(count))
	}
	if from > 0 {
		qb = qb.Offset(uint64(from))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		categories = append(categories, r.conv.FromStorage(c))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return categories, nil
}

func (r *ShareRepo) CountCategories(ctx context.Context, user string, groups []string, perm models.Perm) (int, error) {
	const op = "repository.ShareRepo.CountCategories"

	query, args, err := r.sb.Select("COUNT(DISTINCT attribute_category)").
		From(sharesTable).
		Where(r.Criteria(user, groups, perm)).
		Where(sq.NotEq{"attribute_category": ""}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// SetTags replaces the tags of a gallery.
func (r *ShareRepo) SetTags(ctx context.Context, id int64, tags []string) error {
	const op = "repository.ShareRepo.SetTags"

	if tags == nil {
		tags = []string{}
	}

	query, args, err := r.sb.Update(sharesTable).
		Set("share_tags", pq.Array(tags)).
		Where(sq.Eq{"share_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
	}

	return nil
}

func (r *ShareRepo) GetTags(ctx context.Context, id int64) ([]string, error) {
	const op = "repository.ShareRepo.GetTags"

	query, args, err := r.sb.Select("share_tags").
		From(sharesTable).
		Where(sq.Eq{"share_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var tags []string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&tags); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrGalleryNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tags, nil
}

// SharesByTags lists visible galleries carrying all (matchAll) or any of
// the tags.
func (r *ShareRepo) SharesByTags(ctx context.Context, user string, groups []string, tags []string, matchAll bool) ([]*models.Gallery, error) {
	const op = "repository.ShareRepo.SharesByTags"

	qb := r.sb.Select(shareColumns...).
		From(sharesTable).
		Where(r.Criteria(user, groups, models.PermShow))

	if len(tags) > 0 {
		if matchAll {
			qb = qb.Where("share_tags @> ?", pq.Array(tags))
		} else {
			qb = qb.Where("share_tags && ?", pq.Array(tags))
		}
	}

	galleries, err := r.query(ctx, qb.OrderBy("attribute_name", "share_id"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return galleries, nil
}

// Criteria is the visibility predicate of galleries for user holding perm.
// Columns are qualified with the share table so the predicate can be
// reused in joins.
func (r *ShareRepo) Criteria(user string, groups []string, perm models.Perm) sq.Sqlizer {
	t := sharesTable

	if user == "" {
		return sq.Expr(t+".perm_guest & ? <> 0", int(perm))
	}

	return sq.Or{
		sq.Eq{t + ".share_owner": user},
		sq.Expr(t+".perm_default & ? <> 0", int(perm)),
		sq.Expr("EXISTS (SELECT 1 FROM "+shareUsersTable+" su WHERE su.share_id = "+t+".share_id"+
			" AND su.user_uid = ? AND su.perm & ? <> 0)", user, int(perm)),
		sq.Expr("EXISTS (SELECT 1 FROM "+shareGroupsTable+" sg WHERE sg.share_id = "+t+".share_id"+
			" AND sg.perm & ? <> 0"+
			" AND (sg.group_uid = ANY(?) OR sg.group_uid IN"+
			" (SELECT gm.group_uid FROM "+groupMembersTable+" gm WHERE gm.user_uid = ?)))",
			int(perm), pq.Array(groups), user),
	}
}

func (r *ShareRepo) applyFilters(ctx context.Context, qb sq.SelectBuilder, q ShareQuery) (sq.SelectBuilder, error) {
	keys := make([]string, 0, len(q.Attributes))
	for k := range q.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		col, ok := attributeColumns[k]
		if !ok {
			return qb, fmt.Errorf("%w: %q", storage.ErrInvalidAttribute, k)
		}
		v := q.Attributes[k]
		if s, ok := v.(string); ok && r.converted(k) {
			v = r.conv.ToStorage(s)
		}
		qb = qb.Where(sq.Eq{sharesTable + "." + col: v})
	}

	switch {
	case q.Parent != nil && *q.Parent != 0:
		parents, err := r.parentsOf(ctx, *q.Parent)
		if err != nil {
			return qb, err
		}
		child := parents + ":" + strconv.FormatInt(*q.Parent, 10)
		if q.AllLevels {
			qb = qb.Where(sq.Or{
				sq.Eq{sharesTable + ".share_parents": child},
				sq.Like{sharesTable + ".share_parents": child + ":%"},
			})
		} else {
			qb = qb.Where(sq.Eq{sharesTable + ".share_parents": child})
		}
	case !q.AllLevels:
		qb = qb.Where(sq.Eq{sharesTable + ".share_parents": ""})
	}

	return qb, nil
}

func (r *ShareRepo) parentsOf(ctx context.Context, id int64) (string, error) {
	query, args, err := r.sb.Select("share_parents").
		From(sharesTable).
		Where(sq.Eq{"share_id": id}).
		ToSql()
	if err != nil {
		return "", err
	}

	var parents string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&parents); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", storage.ErrGalleryNotFound
		}
		return "", err
	}

	return parents, nil
}

func (r *ShareRepo) query(ctx context.Context, qb sq.SelectBuilder) ([]*models.Gallery, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var galleries []*models.Gallery
	for rows.Next() {
		g, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		galleries = append(galleries, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadGrants(ctx, galleries); err != nil {
		return nil, err
	}

	return galleries, nil
}

func (r *ShareRepo) scan(row pgx.Row) (*models.Gallery, error) {
	var (
		g                     models.Gallery
		creator, def, guest   int
		created, lastModified int64
	)

	err := row.Scan(
		&g.ID,
		&g.Owner,
		&g.Parents,
		&g.Tags,
		&creator,
		&def,
		&guest,
		&g.Name,
		&g.Desc,
		&g.Style,
		&g.Category,
		&created,
		&lastModified,
		&g.Images,
		&g.Slug,
		&g.Age,
		&g.Passwd,
		&g.ViewMode,
		&g.Default,
		&g.DefaultType,
		&g.DefaultPrettyThumb,
		&g.Download,
		&g.Faces,
		&g.HasSubgalleries,
	)
	if err != nil {
		return nil, err
	}

	g.Name = r.conv.FromStorage(g.Name)
	g.Desc = r.conv.FromStorage(g.Desc)
	g.Category = r.conv.FromStorage(g.Category)
	g.DateCreated = fromUnix(created)
	g.LastModified = fromUnix(lastModified)
	g.Perm = models.NewPermission()
	g.Perm.Creator = models.Perm(creator)
	g.Perm.Default = models.Perm(def)
	g.Perm.Guest = models.Perm(guest)

	return &g, nil
}

// loadGrants fills the user and group grants of galleries.
func (r *ShareRepo) loadGrants(ctx context.Context, galleries []*models.Gallery) error {
	if len(galleries) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Gallery, len(galleries))
	ids := make([]int64, 0, len(galleries))
	for _, g := range galleries {
		byID[g.ID] = g
		ids = append(ids, g.ID)
	}

	load := func(table, col string, add func(g *models.Gallery, who string, perm models.Perm)) error {
		query, args, err := r.sb.Select("share_id", col, "perm").
			From(table).
			Where(sq.Eq{"share_id": ids}).
			ToSql()
		if err != nil {
			return err
		}

		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id   int64
				who  string
				perm int
			)
			if err := rows.Scan(&id, &who, &perm); err != nil {
				return err
			}
			if g, ok := byID[id]; ok {
				add(g, who, models.Perm(perm))
			}
		}

		return rows.Err()
	}

	err := load(shareUsersTable, "user_uid", func(g *models.Gallery, who string, perm models.Perm) {
		g.Perm.AddUserPermission(who, perm)
	})
	if err != nil {
		return err
	}

	return load(shareGroupsTable, "group_uid", func(g *models.Gallery, who string, perm models.Perm) {
		g.Perm.AddGroupPermission(who, perm)
	})
}

func (r *ShareRepo) writeGrants(ctx context.Context, tx pgx.Tx, id int64, perm models.Permission) error {
	for _, table := range []string{shareUsersTable, shareGroupsTable} {
		query, args, err := r.sb.Delete(table).Where(sq.Eq{"share_id": id}).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
	}

	if len(perm.Users) > 0 {
		ib := r.sb.Insert(shareUsersTable).Columns("share_id", "user_uid", "perm")
		for user, p := range perm.Users {
			ib = ib.Values(id, user, int(p))
		}
		query, args, err := ib.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
	}

	if len(perm.Groups) > 0 {
		ib := r.sb.Insert(shareGroupsTable).Columns("share_id", "group_uid", "perm")
		for group, p := range perm.Groups {
			ib = ib.Values(id, group, int(p))
		}
		query, args, err := ib.ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return err
		}
	}

	return nil
}

func (r *ShareRepo) values(g *models.Gallery) map[string]interface{} {
	tags := g.Tags
	if tags == nil {
		tags = []string{}
	}

	return map[string]interface{}{
		"share_owner":                   g.Owner,
		"share_parents":                 g.Parents,
		"share_tags":                    pq.Array(tags),
		"perm_creator":                  int(g.Perm.Creator),
		"perm_default":                  int(g.Perm.Default),
		"perm_guest":                    int(g.Perm.Guest),
		"attribute_name":                r.conv.ToStorage(g.Name),
		"attribute_desc":                r.conv.ToStorage(g.Desc),
		"attribute_style":               g.Style,
		"attribute_category":            r.conv.ToStorage(g.Category),
		"attribute_date_created":        toUnix(g.DateCreated),
		"attribute_last_modified":       toUnix(g.LastModified),
		"attribute_images":              g.Images,
		"attribute_slug":                g.Slug,
		"attribute_age":                 g.Age,
		"attribute_passwd":              g.Passwd,
		"attribute_view_mode":           g.ViewMode,
		"attribute_default":             g.Default,
		"attribute_default_type":        g.DefaultType,
		"attribute_default_prettythumb": g.DefaultPrettyThumb,
		"attribute_download":            g.Download,
		"attribute_faces":               g.Faces,
		"attribute_has_subgalleries":    g.HasSubgalleries,
	}
}

func (r *ShareRepo) converted(attribute string) bool {
	return attribute == "name" || attribute == "desc" || attribute == "category"
}

func mapShareError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrSlugExists
	}

	return err
}
