package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendance/internal/database"
)

// GroupRepository provides PostgreSQL-backed group storage.
type GroupRepository struct {
	pool *Pool
}

// NewGroupRepository creates a new PostgreSQL group repository.
func NewGroupRepository(pool *Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

func scanGroup(scanner interface{ Scan(...any) error }) (database.Group, error) {
	var g database.Group
	if err := scanner.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt); err != nil {
		return g, fmt.Errorf("scan group: %w", err)
	}
	return g, nil
}

// getGroupWhere retrieves a single group matching the condition, returns nil if not found.
func (r *GroupRepository) getGroupWhere(ctx context.Context, cond string, arg any) (*database.Group, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at FROM groups WHERE `+cond, arg)
	g, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return &g, nil
}

// GetGroup retrieves a group by ID, returns nil if not found.
func (r *GroupRepository) GetGroup(ctx context.Context, id int64) (*database.Group, error) {
	return r.getGroupWhere(ctx, "id = $1", id)
}

// GetGroupByName retrieves a group by its unique name, returns nil if not found.
func (r *GroupRepository) GetGroupByName(ctx context.Context, name string) (*database.Group, error) {
	return r.getGroupWhere(ctx, "name = $1", name)
}

// ListGroups returns all groups ordered by name.
func (r *GroupRepository) ListGroups(ctx context.Context) ([]database.Group, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name, description, created_at FROM groups ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []database.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// CreateGroup inserts a group and fills in its ID and creation time.
func (r *GroupRepository) CreateGroup(ctx context.Context, group *database.Group) error {
	err := r.pool.QueryRow(ctx,
		"INSERT INTO groups (name, description) VALUES ($1, $2) RETURNING id, created_at",
		group.Name, group.Description,
	).Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert group: %w", mapError(err))
	}
	return nil
}

// UpdateGroup changes name and description of a group.
func (r *GroupRepository) UpdateGroup(ctx context.Context, group *database.Group) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE groups SET name = $2, description = $3 WHERE id = $1",
		group.ID, group.Name, group.Description)
	if err != nil {
		return fmt.Errorf("update group: %w", mapError(err))
	}
	return requireRow(result, fmt.Sprintf("group %d", group.ID))
}

// DeleteGroup removes a group; students keep their registration with group_id set to NULL.
func (r *GroupRepository) DeleteGroup(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM groups WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return requireRow(result, fmt.Sprintf("group %d", id))
}
