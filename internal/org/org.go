// Package org manages the organization tree and the visibility scope it
// grants. Organizations form a forest: each has at most one parent and
// parent-less organizations are roots.
package org

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"securetask.org/internal/auth"
)

var (
	ErrNotFound   = errors.New("org: not found")
	ErrHasMembers = errors.New("org: organization has members")
)

// Organization is one node of the tenant tree.
type Organization struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ParentID    *int64    `json:"parentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Node is an organization with its direct children, used by the hierarchy
// endpoints.
type Node struct {
	Organization
	UserCount int    `json:"userCount"`
	Children  []Node `json:"children,omitempty"`
}

// Update carries optional field changes; nil means "leave unchanged".
type Update struct {
	Name        *string
	Description *string
	ParentID    *int64
}

// Stats summarizes the tenant population.
type Stats struct {
	TotalOrganizations int          `json:"totalOrganizations"`
	Organizations      []OrgMembers `json:"organizations"`
	AverageUsersPerOrg float64      `json:"averageUsersPerOrg"`
}

// OrgMembers is one row of the stats report.
type OrgMembers struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	UserCount int    `json:"userCount"`
}

// Store describes persistence operations required by the org subsystem.
type Store interface {
	Create(ctx context.Context, o *Organization) error
	Find(ctx context.Context, id int64) (Organization, error)
	List(ctx context.Context) ([]Organization, error)
	ListRoots(ctx context.Context) ([]Organization, error)
	ListChildren(ctx context.Context, parentID int64) ([]Organization, error)
	Update(ctx context.Context, id int64, upd Update) (Organization, error)
	Delete(ctx context.Context, id int64) error
	EarliestID(ctx context.Context) (int64, error)
	CountMembers(ctx context.Context, id int64) (int, error)
	MemberCounts(ctx context.Context) (map[int64]int, error)
}

// Service provides organization operations and the hierarchy resolver.
type Service struct {
	store Store
}

func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("org store is required")
	}
	return &Service{store: store}, nil
}

// Accessible returns the set of organization ids visible from orgID: the id
// itself followed by its direct children. Expansion is one level deep only;
// grandchildren are not included. An unknown id yields just {orgID} rather
// than an error so callers degrade to their own scope.
func (s *Service) Accessible(ctx context.Context, orgID int64) ([]int64, error) {
	if _, err := s.store.Find(ctx, orgID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []int64{orgID}, nil
		}
		return nil, err
	}
	children, err := s.store.ListChildren(ctx, orgID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(children)+1)
	ids = append(ids, orgID)
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	return ids, nil
}

// List returns every organization ordered by creation time.
func (s *Service) List(ctx context.Context) ([]Organization, error) {
	return s.store.List(ctx)
}

// Get returns a single organization.
func (s *Service) Get(ctx context.Context, id int64) (Organization, error) {
	return s.store.Find(ctx, id)
}

// Hierarchy returns all root organizations with their direct children
// attached.
func (s *Service) Hierarchy(ctx context.Context) ([]Node, error) {
	roots, err := s.store.ListRoots(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.MemberCounts(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(roots))
	for _, root := range roots {
		node, err := s.node(ctx, root, counts)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Children returns one organization with its direct children attached.
func (s *Service) Children(ctx context.Context, id int64) (Node, error) {
	o, err := s.store.Find(ctx, id)
	if err != nil {
		return Node{}, err
	}
	counts, err := s.store.MemberCounts(ctx)
	if err != nil {
		return Node{}, err
	}
	return s.node(ctx, o, counts)
}

func (s *Service) node(ctx context.Context, o Organization, counts map[int64]int) (Node, error) {
	children, err := s.store.ListChildren(ctx, o.ID)
	if err != nil {
		return Node{}, err
	}
	node := Node{Organization: o, UserCount: counts[o.ID]}
	for _, child := range children {
		node.Children = append(node.Children, Node{Organization: child, UserCount: counts[child.ID]})
	}
	return node, nil
}

// Stats reports totals and per-organization member counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	orgs, err := s.store.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	counts, err := s.store.MemberCounts(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{TotalOrganizations: len(orgs)}
	total := 0
	for _, o := range orgs {
		stats.Organizations = append(stats.Organizations, OrgMembers{
			ID: o.ID, Name: o.Name, UserCount: counts[o.ID],
		})
		total += counts[o.ID]
	}
	if len(orgs) > 0 {
		stats.AverageUsersPerOrg = float64(total) / float64(len(orgs))
	}
	return stats, nil
}

// Create adds an organization, optionally under a parent.
func (s *Service) Create(ctx context.Context, name, description string, parentID *int64) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, fmt.Errorf("%w: organization name is required", auth.ErrInvalidInput)
	}
	if parentID != nil {
		if _, err := s.store.Find(ctx, *parentID); err != nil {
			return Organization{}, fmt.Errorf("parent organization: %w", err)
		}
	}
	o := Organization{Name: name, Description: strings.TrimSpace(description), ParentID: parentID}
	if err := s.store.Create(ctx, &o); err != nil {
		return Organization{}, err
	}
	return o, nil
}

// Update applies partial changes to an organization.
func (s *Service) Update(ctx context.Context, id int64, upd Update) (Organization, error) {
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return Organization{}, fmt.Errorf("%w: organization name is required", auth.ErrInvalidInput)
		}
		upd.Name = &trimmed
	}
	return s.store.Update(ctx, id, upd)
}

// Delete removes an organization. Organizations that still have members
// cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.Find(ctx, id); err != nil {
		return err
	}
	members, err := s.store.CountMembers(ctx, id)
	if err != nil {
		return err
	}
	if members > 0 {
		return ErrHasMembers
	}
	return s.store.Delete(ctx, id)
}
