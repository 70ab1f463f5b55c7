package repository

import (
	"time"

	"ansel/internal/lib/charset"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4/pgxpool"
)

type Repository struct {
	Shares   *ShareRepo
	Images   *ImageRepo
	Groups   *GroupRepo
	Comments *CommentRepo
}

// New builds every repository on an existing pool.
func New(db *pgxpool.Pool, conv *charset.Converter) *Repository {
	return &Repository{
		Shares:   NewShareRepo(db, conv),
		Images:   NewImageRepo(db, conv),
		Groups:   NewGroupRepo(db),
		Comments: NewCommentRepo(db),
	}
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.Unix()
}

func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}

	return time.Unix(v, 0).UTC()
}
