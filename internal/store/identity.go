package store

import (
	"context"
	"fmt"

	"github.com/harrowgate/sitrep/internal/models"
)

func (s *Store) CreateOrganization(ctx context.Context, o *models.Organization) error {
	_, err := s.DB.NamedExecContext(ctx, `INSERT INTO organizations (id, name) VALUES (:id, :name)`, o)
	if err != nil {
		return fmt.Errorf("store: create organization: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO users (id, email, password_hash, display_name) VALUES (:id, :email, :password_hash, :display_name)
`, u)
	if err != nil {
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.DB.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, email); err != nil {
		return nil, fmt.Errorf("store: get user by email: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

func (s *Store) CreateMembership(ctx context.Context, m *models.Membership) error {
	_, err := s.DB.NamedExecContext(ctx, `
INSERT INTO memberships (id, org_id, user_id, role) VALUES (:id, :org_id, :user_id, :role)
`, m)
	if err != nil {
		return fmt.Errorf("store: create membership: %w", err)
	}
	return nil
}

// MembershipFor returns a user's membership in orgID, used to authorize
// org-scoped requests and to resolve the caller's Role.
func (s *Store) MembershipFor(ctx context.Context, orgID, userID string) (*models.Membership, error) {
	var m models.Membership
	err := s.DB.GetContext(ctx, &m, `SELECT * FROM memberships WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("store: membership lookup: %w", err)
	}
	return &m, nil
}

// DeleteUser removes a user account. Audit rows they authored are not
// deleted: the user_id foreign key is ON DELETE SET NULL, and the
// user_email snapshot taken at write time (see internal/audit) keeps the
// trail legible, satisfying spec.md §3 invariant 7 ("deleting a user
// anonymizes their audit rows but does not delete them").
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete user: %w", err)
	}
	return nil
}

// OrgAdminEmails returns the email addresses of an organization's admins,
// used to resolve where dossier-driven alerts get sent.
func (s *Store) OrgAdminEmails(ctx context.Context, orgID string) ([]string, error) {
	var emails []string
	err := s.DB.SelectContext(ctx, &emails, `
SELECT u.email FROM users u
JOIN memberships m ON m.user_id = u.id
WHERE m.org_id = $1 AND m.role = $2
`, orgID, models.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("store: org admin emails: %w", err)
	}
	return emails, nil
}
