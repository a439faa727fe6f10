package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"securetask.org/internal/audit"
	"securetask.org/internal/auth"
	"securetask.org/internal/org"
)

// Service provides account operations. It owns password handling and token
// issuance; handlers never see hashes or the signing secret.
type Service struct {
	users    Store
	orgs     org.Store
	recorder *audit.Recorder
}

func NewService(users Store, orgs org.Store, recorder *audit.Recorder) (*Service, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if orgs == nil {
		return nil, errors.New("org store is required")
	}
	if recorder == nil {
		return nil, errors.New("audit recorder is required")
	}
	return &Service{users: users, orgs: orgs, recorder: recorder}, nil
}

// RegisterParams is the self-service signup payload.
type RegisterParams struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// CreateParams is the administrative account-creation payload.
type CreateParams struct {
	Email          string    `json:"email"`
	Password       string    `json:"password"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Role           auth.Role `json:"role"`
	OrganizationID int64     `json:"organizationId"`
}

// Register creates a self-service account. The very first account becomes an
// admin with its own organization; later signups join the earliest existing
// organization as viewers.
func (s *Service) Register(ctx context.Context, p RegisterParams) (User, string, error) {
	u, err := s.newAccount(ctx, p)
	if err != nil {
		return User{}, "", err
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return User{}, "", err
	}
	return s.finishRegister(ctx, u, total == 0)
}

func (s *Service) newAccount(ctx context.Context, p RegisterParams) (User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if !validEmail(email) {
		return User{}, fmt.Errorf("%w: invalid email address", auth.ErrInvalidInput)
	}
	if len(p.Password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", auth.ErrInvalidInput, minPasswordLength)
	}
	first := strings.TrimSpace(p.FirstName)
	last := strings.TrimSpace(p.LastName)
	if first == "" || last == "" {
		return User{}, fmt.Errorf("%w: first and last name are required", auth.ErrInvalidInput)
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return User{}, fmt.Errorf("%w: email already registered", auth.ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	hash, err := auth.HashPassword(p.Password)
	if err != nil {
		return User{}, err
	}
	return User{Email: email, FirstName: first, LastName: last, PasswordHash: hash}, nil
}

func (s *Service) finishRegister(ctx context.Context, u User, first bool) (User, string, error) {
	if first {
		u.Role = auth.RoleAdmin
		home := org.Organization{Name: fmt.Sprintf("%s %s's Organization", u.FirstName, u.LastName)}
		if err := s.orgs.Create(ctx, &home); err != nil {
			return User{}, "", err
		}
		u.OrganizationID = home.ID
	} else {
		u.Role = auth.RoleViewer
		orgID, err := s.orgs.EarliestID(ctx)
		if errors.Is(err, org.ErrNotFound) {
			fallback := org.Organization{Name: "Default Organization"}
			if err := s.orgs.Create(ctx, &fallback); err != nil {
				return User{}, "", err
			}
			orgID = fallback.ID
		} else if err != nil {
			return User{}, "", err
		}
		u.OrganizationID = orgID
	}

	if err := s.users.Create(ctx, &u); err != nil {
		return User{}, "", err
	}
	token, err := auth.GenerateToken(u.Principal(), auth.DefaultTokenTTL)
	if err != nil {
		return User{}, "", err
	}
	s.recorder.Record(ctx, audit.Entry{
		Action:     audit.ActionCreate,
		Resource:   audit.ResourceUser,
		ResourceID: &u.ID,
		UserID:     u.ID,
		Details:    "account registered",
	})
	u.PasswordHash = ""
	return u, token, nil
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, "", fmt.Errorf("%w: invalid credentials", auth.ErrUnauthorized)
	} else if err != nil {
		return User{}, "", err
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		return User{}, "", fmt.Errorf("%w: invalid credentials", auth.ErrUnauthorized)
	}
	token, err := auth.GenerateToken(u.Principal(), auth.DefaultTokenTTL)
	if err != nil {
		return User{}, "", err
	}
	s.recorder.Record(ctx, audit.Entry{
		Action:   audit.ActionLogin,
		Resource: audit.ResourceAuth,
		UserID:   u.ID,
		Details:  "user logged in",
	})
	u.PasswordHash = ""
	return u, token, nil
}

// Get returns one account without its password hash.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	u, err := s.users.Find(ctx, id)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

// List returns accounts inside the given organization scope.
func (s *Service) List(ctx context.Context, orgIDs []int64) ([]User, error) {
	users, err := s.users.List(ctx, orgIDs)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// ListForAssignment returns the reduced user view used by assignee pickers.
func (s *Service) ListForAssignment(ctx context.Context, orgIDs []int64) ([]AssignmentOption, error) {
	users, err := s.users.List(ctx, orgIDs)
	if err != nil {
		return nil, err
	}
	options := make([]AssignmentOption, 0, len(users))
	for _, u := range users {
		options = append(options, AssignmentOption{
			ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName,
		})
	}
	return options, nil
}

// Create adds an account on behalf of an administrator. Role defaults to
// viewer and the organization defaults to the caller's.
func (s *Service) Create(ctx context.Context, principal auth.Principal, p CreateParams) (User, error) {
	u, err := s.newAccount(ctx, RegisterParams{
		Email: p.Email, Password: p.Password, FirstName: p.FirstName, LastName: p.LastName,
	})
	if err != nil {
		return User{}, err
	}
	u.Role = p.Role
	if u.Role == "" {
		u.Role = auth.RoleViewer
	}
	if !u.Role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", auth.ErrInvalidInput, p.Role)
	}
	u.OrganizationID = p.OrganizationID
	if u.OrganizationID == 0 {
		u.OrganizationID = principal.OrganizationID
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

// Apply updates an account. Email changes are checked for uniqueness and a
// new password is rehashed before storage.
func (s *Service) Apply(ctx context.Context, id int64, upd Update) (User, error) {
	if _, err := s.users.Find(ctx, id); err != nil {
		return User{}, err
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if !validEmail(email) {
			return User{}, fmt.Errorf("%w: invalid email address", auth.ErrInvalidInput)
		}
		existing, err := s.users.FindByEmail(ctx, email)
		if err == nil && existing.ID != id {
			return User{}, fmt.Errorf("%w: email already registered", auth.ErrConflict)
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return User{}, err
		}
		upd.Email = &email
	}
	if upd.Role != nil && !upd.Role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", auth.ErrInvalidInput, *upd.Role)
	}
	if upd.Password != nil {
		if len(*upd.Password) < minPasswordLength {
			return User{}, fmt.Errorf("%w: password must be at least %d characters", auth.ErrInvalidInput, minPasswordLength)
		}
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return User{}, err
		}
		upd.Password = &hash
	}
	u, err := s.users.Update(ctx, id, upd)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

// Delete removes an account. Principals cannot delete themselves.
func (s *Service) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	if principal.UserID == id {
		return fmt.Errorf("%w: you cannot delete your own account", auth.ErrForbidden)
	}
	return s.users.Delete(ctx, id)
}

// Promote raises the account with the given email to admin.
func (s *Service) Promote(ctx context.Context, actor auth.Principal, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	role := auth.RoleAdmin
	promoted, err := s.users.Update(ctx, u.ID, Update{Role: &role})
	if err != nil {
		return User{}, err
	}
	s.recorder.Record(ctx, audit.Entry{
		Action:     audit.ActionUpdate,
		Resource:   audit.ResourceUser,
		ResourceID: &u.ID,
		UserID:     actor.UserID,
		Details:    fmt.Sprintf("promoted %s to admin", email),
	})
	promoted.PasswordHash = ""
	return promoted, nil
}

// SetRole changes the role of the account with the given id.
func (s *Service) SetRole(ctx context.Context, id int64, role auth.Role) (User, error) {
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", auth.ErrInvalidInput, role)
	}
	u, err := s.users.Update(ctx, id, Update{Role: &role})
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = ""
	return u, nil
}

// BootstrapAdmin promotes the calling account to owner and reissues its
// token. It refuses to run once any admin or owner exists, so only the very
// first operator of a fresh install can claim ownership.
func (s *Service) BootstrapAdmin(ctx context.Context, principal auth.Principal) (User, string, error) {
	elevated, err := s.users.HasElevated(ctx)
	if err != nil {
		return User{}, "", err
	}
	if elevated {
		return User{}, "", fmt.Errorf("%w: an administrator already exists", auth.ErrForbidden)
	}
	role := auth.RoleOwner
	u, err := s.users.Update(ctx, principal.UserID, Update{Role: &role})
	if err != nil {
		return User{}, "", err
	}
	token, err := auth.GenerateToken(u.Principal(), auth.DefaultTokenTTL)
	if err != nil {
		return User{}, "", err
	}
	s.recorder.Record(ctx, audit.Entry{
		Action:     audit.ActionUpdate,
		Resource:   audit.ResourceUser,
		ResourceID: &u.ID,
		UserID:     u.ID,
		Details:    "bootstrap owner claimed",
	})
	u.PasswordHash = ""
	return u, token, nil
}

// Stats reports account totals and role distribution.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return Stats{}, err
	}
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{TotalUsers: total, UsersByRole: byRole, TotalOrganizations: len(orgs)}, nil
}
