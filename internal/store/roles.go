package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"trackwave/internal/models"
)

// CreateRole adds a new role label.
func (s *Store) CreateRole(ctx context.Context, name, description string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name", ErrValidation)
	}

	role := models.Role{Name: name, Description: description}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO roles (name, description)
		VALUES ($1, $2)
		RETURNING id
	`, name, nullIfEmpty(description)).Scan(&role.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrRoleExists
		}
		return nil, fmt.Errorf("insert role: %w", err)
	}
	return &role, nil
}

// RoleByName returns the role with the given name.
func (s *Store) RoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description, '')
		FROM roles
		WHERE name = $1
	`, name).Scan(&role.ID, &role.Name, &role.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	return &role, nil
}

// ListRoles returns all roles.
func (s *Store) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, '')
		FROM roles
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}
