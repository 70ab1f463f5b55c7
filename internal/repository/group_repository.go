package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4/pgxpool"
)

const groupMembersTable = "ansel_group_members"

type GroupRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewGroupRepo(db *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{
		db: db,
		sb: builder(),
	}
}

// Memberships lists the groups user belongs to.
func (r *GroupRepo) Memberships(ctx context.Context, user string) ([]string, error) {
	const op = "repository.GroupRepo.Memberships"

	if user == "" {
		return nil, nil
	}

	query, args, err := r.sb.Select("group_uid").
		From(groupMembersTable).
		Where(sq.Eq{"user_uid": user}).
		OrderBy("group_uid").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return groups, nil
}

func (r *GroupRepo) AddMember(ctx context.Context, group, user string) error {
	const op = "repository.GroupRepo.AddMember"

	query, args, err := r.sb.Insert(groupMembersTable).
		Columns("group_uid", "user_uid").
		Values(group, user).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
