package repository

import (
	"context"
	"errors"
	"fmt"

	"ansel/internal/domain/models"
	"ansel/internal/lib/charset"
	"ansel/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	imagesTable     = "ansel_images"
	attributesTable = "ansel_image_attributes"
	imagesSequence  = "ansel_images_seq"
)

var imageColumns = []string{
	"image_id",
	"gallery_id",
	"image_filename",
	"image_type",
	"image_caption",
	"image_uploaded_date",
	"image_sort",
	"image_faces",
	"image_original_date",
	"image_latitude",
	"image_longitude",
	"image_location",
	"image_geotag_date",
}

var knownImageColumns = func() map[string]bool {
	m := make(map[string]bool, len(imageColumns))
	for _, c := range imageColumns {
		m[c] = true
	}
	return m
}()

type ImageRepo struct {
	db   *pgxpool.Pool
	sb   sq.StatementBuilderType
	conv *charset.Converter
}

func NewImageRepo(db *pgxpool.Pool, conv *charset.Converter) *ImageRepo {
	return &ImageRepo{
		db:   db,
		sb:   builder(),
		conv: conv,
	}
}

// NextID allocates a new image id from the sequence.
func (r *ImageRepo) NextID(ctx context.Context) (int64, error) {
	const op = "repository.ImageRepo.NextID"

	var id int64
	if err := r.db.QueryRow(ctx, "SELECT nextval('"+imagesSequence+"')").Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// Insert writes a full image row. img.ID must already be allocated.
func (r *ImageRepo) Insert(ctx context.Context, img *models.Image) error {
	const op = "repository.ImageRepo.Insert"

	query, args, err := r.sb.Insert(imagesTable).
		Columns(imageColumns...).
		Values(
			img.ID,
			img.Gallery,
			r.conv.ToStorage(img.Filename),
			img.Type,
			r.conv.ToStorage(img.Caption),
			toUnix(img.Uploaded),
			img.Sort,
			img.Faces,
			toUnix(img.OriginalDate),
			img.Latitude,
			img.Longitude,
			img.Location,
			toUnix(img.GeotagDate),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Update rewrites the row of img and returns the number of rows affected.
func (r *ImageRepo) Update(ctx context.Context, img *models.Image) (int64, error) {
	const op = "repository.ImageRepo.Update"

	query, args, err := r.sb.Update(imagesTable).
		Set("gallery_id", img.Gallery).
		Set("image_filename", r.conv.ToStorage(img.Filename)).
		Set("image_type", img.Type).
		Set("image_caption", r.conv.ToStorage(img.Caption)).
		Set("image_sort", img.Sort).
		Set("image_faces", img.Faces).
		Set("image_original_date", toUnix(img.OriginalDate)).
		Set("image_latitude", img.Latitude).
		Set("image_longitude", img.Longitude).
		Set("image_location", img.Location).
		Set("image_geotag_date", toUnix(img.GeotagDate)).
		Where(sq.Eq{"image_id": img.ID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *ImageRepo) GetImage(ctx context.Context, id int64) (*models.Image, error) {
	const op = "repository.ImageRepo.GetImage"

	query, args, err := r.sb.Select(imageColumns...).
		From(imagesTable).
		Where(sq.Eq{"image_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	img, err := r.scan(r.db.QueryRow(ctx, query, args...), imageColumns)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrImageNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return img, nil
}

// GetByIDs returns the images with the given ids in no particular order.
func (r *ImageRepo) GetByIDs(ctx context.Context, ids []int64) ([]*models.Image, error) {
	const op = "repository.ImageRepo.GetByIDs"

	if len(ids) == 0 {
		return nil, nil
	}

	images, err := r.query(ctx, r.sb.Select(imageColumns...).
		From(imagesTable).
		Where(sq.Eq{"image_id": ids}), imageColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return images, nil
}

// Delete removes an image row with its attributes.
func (r *ImageRepo) Delete(ctx context.Context, id int64) error {
	const op = "repository.ImageRepo.Delete"

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{attributesTable, imagesTable} {
		query, args, err := r.sb.Delete(table).Where(sq.Eq{"image_id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// SaveAttribute appends a name/value pair. Existing pairs with the same
// name are kept.
func (r *ImageRepo) SaveAttribute(ctx context.Context, imageID int64, name, value string) error {
	const op = "repository.ImageRepo.SaveAttribute"

	query, args, err := r.sb.Insert(attributesTable).
		Columns("image_id", "attr_name", "attr_value").
		Values(imageID, name, r.conv.ToStorage(value)).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Attributes returns the attributes of an image. With duplicate names the
// last stored value wins.
func (r *ImageRepo) Attributes(ctx context.Context, imageID int64) (map[string]string, error) {
	const op = "repository.ImageRepo.Attributes"

	query, args, err := r.sb.Select("attr_name", "attr_value").
		From(attributesTable).
		Where(sq.Eq{"image_id": imageID}).
		OrderBy("attr_seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	attrs := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		attrs[name] = r.conv.FromStorage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return attrs, nil
}

func (r *ImageRepo) ListImages(ctx context.Context, q ListImagesQuery) ([]*models.Image, error) {
	const op = "repository.ImageRepo.ListImages"

	fields := q.Fields
	if len(fields) == 0 {
		fields = imageColumns
	}
	for _, f := range fields {
		if !knownImageColumns[f] {
			return nil, fmt.Errorf("%s: %w: %q", op, storage.ErrInvalidAttribute, f)
		}
	}

	qb := r.sb.Select(fields...).From(imagesTable)
	if q.Where != nil {
		qb = qb.Where(q.Where)
	} else {
		qb = qb.Where(sq.Eq{"gallery_id": q.GalleryID})
	}
	if len(q.GroupBy) > 0 {
		qb = qb.GroupBy(q.GroupBy...)
	}

	sortCol := q.Sort
	if sortCol == "" {
		sortCol = "image_sort"
	}
	if !knownImageColumns[sortCol] {
		return nil, fmt.Errorf("%s: %w: %q", op, storage.ErrInvalidAttribute, sortCol)
	}
	qb = qb.OrderBy(sortCol)
	if len(q.GroupBy) == 0 && sortCol != "image_id" {
		qb = qb.OrderBy("image_id")
	}

	if q.Count > 0 {
		qb = qb.Limit(uint64(q.Count))
	}
	if q.From > 0 {
		qb = qb.Offset(uint64(q.From))
	}

	images, err := r.query(ctx, qb, fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return images, nil
}

func (r *ImageRepo) Recent(ctx context.Context, q RecentImagesQuery) ([]*models.Image, error) {
	const op = "repository.ImageRepo.Recent"

	cols := make([]string, len(imageColumns))
	for i, c := range imageColumns {
		cols[i] = imagesTable + "." + c
	}

	qb := r.sb.Select(cols...).From(imagesTable)
	switch {
	case len(q.GalleryIDs) > 0:
		qb = qb.Where(sq.Eq{imagesTable + ".gallery_id": q.GalleryIDs})
	case len(q.Slugs) > 0:
		qb = qb.Join(sharesTable + " ON " + sharesTable + ".share_id = " + imagesTable + ".gallery_id").
			Where(sq.Eq{sharesTable + ".attribute_slug": q.Slugs})
	case q.Visible != nil:
		qb = qb.Join(sharesTable + " ON " + sharesTable + ".share_id = " + imagesTable + ".gallery_id").
			Where(q.Visible)
	}

	qb = qb.OrderBy(imagesTable+".image_uploaded_date DESC", imagesTable+".image_id DESC")
	if q.Limit > 0 {
		qb = qb.Limit(uint64(q.Limit))
	}

	images, err := r.query(ctx, qb, imageColumns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return images, nil
}

// Geodata returns the geotagged images of a gallery, or among ids when no
// gallery is given. With neither it returns an empty list.
func (r *ImageRepo) Geodata(ctx context.Context, ids []int64, galleryID int64) ([]models.GeoData, error) {
	const op = "repository.ImageRepo.Geodata"

	if len(ids) == 0 && galleryID == 0 {
		return []models.GeoData{}, nil
	}

	qb := r.sb.Select("image_id", "gallery_id", "image_latitude", "image_longitude", "image_location").
		From(imagesTable).
		Where(sq.NotEq{"image_latitude": ""})
	if galleryID != 0 {
		qb = qb.Where(sq.Eq{"gallery_id": galleryID})
	} else {
		qb = qb.Where(sq.Eq{"image_id": ids})
	}
	qb = qb.OrderBy("image_sort", "image_id")

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	data := []models.GeoData{}
	for rows.Next() {
		var d models.GeoData
		if err := rows.Scan(&d.ImageID, &d.GalleryID, &d.Latitude, &d.Longitude, &d.Location); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.ID = d.ImageID
		data = append(data, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

// RecentGeodata returns one record per distinct coordinate among images of
// galleries matching visible, newest geotag first. A non-empty owner also
// restricts the galleries to that owner.
func (r *ImageRepo) RecentGeodata(ctx context.Context, visible sq.Sqlizer, owner string, start, count int) ([]models.GeoData, error) {
	const op = "repository.ImageRepo.RecentGeodata"

	i := imagesTable
	qb := r.sb.Select(
		"MAX("+i+".image_id)",
		i+".image_latitude",
		i+".image_longitude",
		"MAX("+i+".image_location)",
	).
		From(i).
		Join(sharesTable + " ON " + sharesTable + ".share_id = " + i + ".gallery_id").
		Where(sq.NotEq{i + ".image_latitude": ""}).
		Where(visible).
		GroupBy(i+".image_latitude", i+".image_longitude").
		OrderBy("MAX(" + i + ".image_geotag_date) DESC")
	if owner != "" {
		qb = qb.Where(sq.Eq{sharesTable + ".share_owner": owner})
	}
	if count > 0 {
		qb = qb.Limit(uint64(count))
	}
	if start > 0 {
		qb = qb.Offset(uint64(start))
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

	var data []models.GeoData
	for rows.Next() {
		var d models.GeoData
		if err := rows.Scan(&d.ImageID, &d.Latitude, &d.Longitude, &d.Location); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		d.ID = d.ImageID
		data = append(data, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return data, nil
}

// SearchLocations returns distinct locations starting with prefix. The
// match is case sensitive.
func (r *ImageRepo) SearchLocations(ctx context.Context, prefix string) ([]models.Location, error) {
	const op = "repository.ImageRepo.SearchLocations"

	query, args, err := r.sb.Select("DISTINCT image_location", "image_latitude", "image_longitude").
		From(imagesTable).
		Where(sq.NotEq{"image_location": ""}).
		Where(sq.Like{"image_location": escapeLike(prefix) + "%"}).
		OrderBy("image_location").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var l models.Location
		if err := rows.Scan(&l.Location, &l.Latitude, &l.Longitude); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return locations, nil
}

func (r *ImageRepo) query(ctx context.Context, qb sq.SelectBuilder, cols []string) ([]*models.Image, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []*models.Image
	for rows.Next() {
		img, err := r.scan(rows, cols)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return images, nil
}

// scan reads one row holding cols, which are unqualified image columns.
func (r *ImageRepo) scan(row pgx.Row, cols []string) (*models.Image, error) {
	var (
		img                        models.Image
		uploaded, original, geotag int64
	)

	dest := make([]interface{}, len(cols))
	for i, c := range cols {
		switch c {
		case "image_id":
			dest[i] = &img.ID
		case "gallery_id":
			dest[i] = &img.Gallery
		case "image_filename":
			dest[i] = &img.Filename
		case "image_type":
			dest[i] = &img.Type
		case "image_caption":
			dest[i] = &img.Caption
		case "image_uploaded_date":
			dest[i] = &uploaded
		case "image_sort":
			dest[i] = &img.Sort
		case "image_faces":
			dest[i] = &img.Faces
		case "image_original_date":
			dest[i] = &original
		case "image_latitude":
			dest[i] = &img.Latitude
		case "image_longitude":
			dest[i] = &img.Longitude
		case "image_location":
			dest[i] = &img.Location
		case "image_geotag_date":
			dest[i] = &geotag
		default:
			return nil, fmt.Errorf("%w: %q", storage.ErrInvalidAttribute, c)
		}
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	img.Filename = r.conv.FromStorage(img.Filename)
	img.Caption = r.conv.FromStorage(img.Caption)
	img.Uploaded = fromUnix(uploaded)
	img.OriginalDate = fromUnix(original)
	img.GeotagDate = fromUnix(geotag)

	return &img, nil
}

func escapeLike(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}

	return string(b)
}
