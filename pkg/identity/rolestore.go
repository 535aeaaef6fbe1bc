package identity

import (
	"context"
	"database/sql"
	"fmt"
)

// RoleStore supplies static role assignments persisted outside the
// identity provider.
type RoleStore interface {
	// RolesFor returns the role strings assigned to a subject. Both
	// coarse tags and legacy compound strings may appear.
	RolesFor(ctx context.Context, subject string) ([]string, error)
}

// SQLRoleStore reads role assignments from a relational table.
type SQLRoleStore struct {
	db *sql.DB
}

// NewSQLRoleStore creates a store over the given database handle.
func NewSQLRoleStore(db *sql.DB) *SQLRoleStore {
	return &SQLRoleStore{db: db}
}

// RolesFor returns the assigned roles for a subject, most recent first.
func (s *SQLRoleStore) RolesFor(ctx context.Context, subject string) ([]string, error) {
	query := `
		SELECT role
		FROM role_assignments
		WHERE subject = $1
		ORDER BY granted_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to query role assignments: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role assignment: %w", err)
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}

// Grant inserts a role assignment, ignoring duplicates.
func (s *SQLRoleStore) Grant(ctx context.Context, subject, role string, grantedBy string) error {
	query := `
		INSERT INTO role_assignments (subject, role, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject, role) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query, subject, role, grantedBy)
	if err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}
	return nil
}

// Revoke removes a role assignment.
func (s *SQLRoleStore) Revoke(ctx context.Context, subject, role string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM role_assignments WHERE subject = $1 AND role = $2`, subject, role)
	if err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("role assignment not found")
	}
	return nil
}
