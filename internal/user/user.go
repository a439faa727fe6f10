// Package user manages accounts: registration, login, directory listings
// and role administration.
package user

import (
	"context"
	"errors"
	"regexp"
	"time"

	"securetask.org/internal/auth"
)

var ErrNotFound = errors.New("user: not found")

// User is one account. The password hash never leaves the service: it is
// excluded from JSON and cleared before users are returned to handlers.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Role           auth.Role `json:"role"`
	OrganizationID int64     `json:"organizationId"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Principal converts the account into the identity carried by tokens and
// request contexts.
func (u User) Principal() auth.Principal {
	return auth.Principal{
		UserID:         u.ID,
		Email:          u.Email,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}
}

// Update carries optional field changes; nil means "leave unchanged".
type Update struct {
	Email          *string
	FirstName      *string
	LastName       *string
	Password       *string
	Role           *auth.Role
	OrganizationID *int64
}

// Stats summarizes the account population.
type Stats struct {
	TotalUsers         int               `json:"totalUsers"`
	UsersByRole        map[auth.Role]int `json:"usersByRole"`
	TotalOrganizations int               `json:"totalOrganizations"`
}

// AssignmentOption is the reduced user view exposed to assignee pickers.
type AssignmentOption struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Store describes persistence operations required by the user subsystem.
type Store interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, orgIDs []int64) ([]User, error)
	Update(ctx context.Context, id int64, upd Update) (User, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	CountByRole(ctx context.Context) (map[auth.Role]int, error)
	Recent(ctx context.Context, limit int) ([]User, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	HasElevated(ctx context.Context) (bool, error)
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLength = 6

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}
