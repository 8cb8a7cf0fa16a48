package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"groupman/internal/domain"
)

const groupColumns = `id, version, created_by, created_at, modified_at, source, name, description`

const groupOrder = ` ORDER BY name COLLATE NOCASE, created_by COLLATE NOCASE`

const (
	ownerPredicate  = `id IN (SELECT group_id FROM group_owners WHERE user_name = ?)`
	memberPredicate = `id IN (SELECT group_id FROM group_members WHERE user_name = ?)`
)

// GroupRepo is the SQLite record store for INTERNAL groups.
type GroupRepo struct {
	db *sql.DB
}

// NewGroupRepo creates a GroupRepo on db. Use the write pool so that reads
// observe the caller's own writes.
func NewGroupRepo(db *sql.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

var _ domain.GroupStore = (*GroupRepo)(nil)

// FindByID returns the group with id or a NotFoundError.
func (r *GroupRepo) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	groups, err := r.query(ctx, `id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, domain.ErrNotFound("group %q not found", id)
	}
	return &groups[0], nil
}

// FindByIDs returns the groups whose id is in ids. Unknown ids are skipped.
func (r *GroupRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.Group, error) {
	ids = domain.NormalizeSet(ids)
	out := make([]domain.Group, 0, len(ids))
	for _, part := range chunk(ids, maxInParams) {
		args := make([]any, len(part))
		for i, id := range part {
			args[i] = id
		}
		groups, err := r.query(ctx, `id IN (`+placeholders(len(part))+`)`, args...)
		if err != nil {
			return nil, err
		}
		out = append(out, groups...)
	}
	domain.SortGroups(out)
	return out, nil
}

// FindAll returns every stored group.
func (r *GroupRepo) FindAll(ctx context.Context) ([]domain.Group, error) {
	return r.query(ctx, "")
}

// FindByOwnerContains returns the groups user owns.
func (r *GroupRepo) FindByOwnerContains(ctx context.Context, user string) ([]domain.Group, error) {
	return r.query(ctx, ownerPredicate, user)
}

// FindByMemberContains returns the groups user is a member of.
func (r *GroupRepo) FindByMemberContains(ctx context.Context, user string) ([]domain.Group, error) {
	return r.query(ctx, memberPredicate, user)
}

// FindByOwnerOrMemberContains returns the groups user owns or is a member of.
func (r *GroupRepo) FindByOwnerOrMemberContains(ctx context.Context, user string) ([]domain.Group, error) {
	return r.query(ctx, ownerPredicate+` OR `+memberPredicate, user, user)
}

// CountOwned counts the groups user owns.
func (r *GroupRepo) CountOwned(ctx context.Context, user string) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM group_owners WHERE user_name = ?`, user)
}

// CountMembership counts the groups user is a member of.
func (r *GroupRepo) CountMembership(ctx context.Context, user string) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM group_members WHERE user_name = ?`, user)
}

// Count returns the total number of stored groups.
func (r *GroupRepo) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM user_groups`)
}

// Save inserts g when it has no id and otherwise updates it, provided the
// stored version still equals g.Version. The stored state is returned.
func (r *GroupRepo) Save(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	saved := *g
	saved.Normalize()
	if saved.Source == "" {
		saved.Source = domain.SourceInternal
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	if saved.ID == "" {
		saved.ID = domain.NewID()
		saved.Version = 0
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			saved.ID, saved.Version, saved.CreatedBy, formatTime(saved.CreatedAt), formatTime(saved.ModifiedAt),
			string(saved.Source), saved.Name, saved.Description)
		if err != nil {
			return nil, uniqueConflict(err, &saved)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE user_groups
			 SET version = version + 1, created_by = ?, created_at = ?, modified_at = ?, source = ?, name = ?, description = ?
			 WHERE id = ? AND version = ?`,
			saved.CreatedBy, formatTime(saved.CreatedAt), formatTime(saved.ModifiedAt), string(saved.Source),
			saved.Name, saved.Description, saved.ID, saved.Version)
		if err != nil {
			return nil, uniqueConflict(err, &saved)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, r.missedUpdate(ctx, tx, &saved)
		}
		saved.Version++
		for _, table := range []string{"group_owners", "group_members"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE group_id = ?`, saved.ID); err != nil {
				return nil, err
			}
		}
	}

	if err := insertSet(ctx, tx, "group_owners", saved.ID, saved.Owners); err != nil {
		return nil, err
	}
	if err := insertSet(ctx, tx, "group_members", saved.ID, saved.Members); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Delete removes g. Owner and member rows cascade.
func (r *GroupRepo) Delete(ctx context.Context, g *domain.Group) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_groups WHERE id = ?`, g.ID)
	return err
}

func (r *GroupRepo) missedUpdate(ctx context.Context, tx *sql.Tx, g *domain.Group) error {
	var version int64
	err := tx.QueryRowContext(ctx, `SELECT version FROM user_groups WHERE id = ?`, g.ID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("group %q not found", g.ID)
	}
	if err != nil {
		return err
	}
	return domain.ErrConflict("version mismatch for group %q: expected %d, stored %d", g.ID, g.Version, version)
}

func uniqueConflict(err error, g *domain.Group) error {
	var conflict *domain.ConflictError
	if errors.As(mapDBError(err), &conflict) {
		return domain.ErrConflict("group %q already exists for %q", g.Name, g.CreatedBy)
	}
	return err
}

func insertSet(ctx context.Context, tx *sql.Tx, table, groupID string, users []string) error {
	for _, u := range users {
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+table+` (group_id, user_name) VALUES (?, ?)`, groupID, u); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func (r *GroupRepo) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// query loads the groups matching where (empty for all) together with their
// owner and member sets, in index order.
func (r *GroupRepo) query(ctx context.Context, where string, args ...any) ([]domain.Group, error) {
	q := `SELECT ` + groupColumns + ` FROM user_groups`
	sub := `SELECT id FROM user_groups`
	if where != "" {
		q += ` WHERE ` + where
		sub += ` WHERE ` + where
	}

	rows, err := r.db.QueryContext(ctx, q+groupOrder, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	groups := make([]domain.Group, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			g                     domain.Group
			source                string
			createdAt, modifiedAt sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.Version, &g.CreatedBy, &createdAt, &modifiedAt, &source, &g.Name, &g.Description); err != nil {
			return nil, err
		}
		g.Source = domain.Source(source)
		g.CreatedAt = parseTime(createdAt)
		g.ModifiedAt = parseTime(modifiedAt)
		g.Owners = []string{}
		g.Members = []string{}
		index[g.ID] = len(groups)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return groups, nil
	}

	if err := r.loadSet(ctx, "group_owners", sub, args, func(i int, u string) {
		groups[i].Owners = append(groups[i].Owners, u)
	}, index); err != nil {
		return nil, err
	}
	if err := r.loadSet(ctx, "group_members", sub, args, func(i int, u string) {
		groups[i].Members = append(groups[i].Members, u)
	}, index); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *GroupRepo) loadSet(ctx context.Context, table, sub string, args []any, add func(int, string), index map[string]int) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT group_id, user_name FROM `+table+` WHERE group_id IN (`+sub+`) ORDER BY user_name`, args...)
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var groupID, user string
		if err := rows.Scan(&groupID, &user); err != nil {
			return err
		}
		if i, ok := index[groupID]; ok {
			add(i, user)
		}
	}
	return rows.Err()
}
