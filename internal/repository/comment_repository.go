package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4/pgxpool"
)

const commentsTable = "ansel_comments"

type CommentRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewCommentRepo(db *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{
		db: db,
		sb: builder(),
	}
}

// CountByImages returns the number of comments per image. Images without
// comments are absent from the map.
func (r *CommentRepo) CountByImages(ctx context.Context, ids []int64) (map[int64]int, error) {
	const op = "repository.CommentRepo.CountByImages"

	counts := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	query, args, err := r.sb.Select("image_id", "COUNT(*)").
		From(commentsTable).
		Where(sq.Eq{"image_id": ids}).
		GroupBy("image_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    int64
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return counts, nil
}

func (r *CommentRepo) AddComment(ctx context.Context, imageID int64, author, text string) (int64, error) {
	const op = "repository.CommentRepo.AddComment"

	query, args, err := r.sb.Insert(commentsTable).
		Columns("image_id", "comment_author", "comment_text", "comment_date").
		Values(imageID, author, text, time.Now().Unix()).
		Suffix("RETURNING comment_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}
