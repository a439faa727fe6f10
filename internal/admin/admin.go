// Package admin aggregates cross-tenant statistics for the administrative
// endpoints. It reads from the other subsystems' stores and owns no data of
// its own.
package admin

import (
	"context"
	"errors"
	"time"

	"securetask.org/internal/auth"
	"securetask.org/internal/org"
	"securetask.org/internal/task"
	"securetask.org/internal/user"
)

const recentLimit = 5

// SystemStats is the system-wide snapshot returned by the stats endpoint.
type SystemStats struct {
	TotalUsers         int                 `json:"totalUsers"`
	TotalOrganizations int                 `json:"totalOrganizations"`
	TotalTasks         int                 `json:"totalTasks"`
	UsersByRole        map[auth.Role]int   `json:"usersByRole"`
	TasksByStatus      map[task.Status]int `json:"tasksByStatus"`
	RecentUsers        []user.User         `json:"recentUsers"`
	RecentTasks        []task.Task         `json:"recentTasks"`
}

// Activity counts objects created inside a trailing window.
type Activity struct {
	WindowDays int `json:"windowDays"`
	NewUsers   int `json:"newUsers"`
	NewTasks   int `json:"newTasks"`
}

// Dashboard extends the snapshot with tenant stats and recent activity.
type Dashboard struct {
	SystemStats
	Organizations org.Stats `json:"organizations"`
	Activity      Activity  `json:"activity"`
}

// Service computes administrative reports.
type Service struct {
	users user.Store
	tasks task.Store
	orgs  *org.Service
}

func NewService(users user.Store, tasks task.Store, orgs *org.Service) (*Service, error) {
	if users == nil || tasks == nil || orgs == nil {
		return nil, errors.New("admin service requires user, task and org backends")
	}
	return &Service{users: users, tasks: tasks, orgs: orgs}, nil
}

// Stats returns the system-wide snapshot.
func (s *Service) Stats(ctx context.Context) (SystemStats, error) {
	stats := SystemStats{}

	var err error
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return SystemStats{}, err
	}
	if stats.TotalTasks, err = s.tasks.Count(ctx); err != nil {
		return SystemStats{}, err
	}
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		return SystemStats{}, err
	}
	stats.TotalOrganizations = len(orgs)

	if stats.UsersByRole, err = s.users.CountByRole(ctx); err != nil {
		return SystemStats{}, err
	}
	if stats.TasksByStatus, err = s.tasks.CountByStatus(ctx); err != nil {
		return SystemStats{}, err
	}
	if stats.RecentUsers, err = s.users.Recent(ctx, recentLimit); err != nil {
		return SystemStats{}, err
	}
	for i := range stats.RecentUsers {
		stats.RecentUsers[i].PasswordHash = ""
	}
	if stats.RecentTasks, err = s.tasks.Recent(ctx, recentLimit); err != nil {
		return SystemStats{}, err
	}
	return stats, nil
}

// DashboardData returns the snapshot plus tenant stats and a seven-day
// activity window.
func (s *Service) DashboardData(ctx context.Context) (Dashboard, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	orgStats, err := s.orgs.Stats(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	const windowDays = 7
	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	newUsers, err := s.users.CountSince(ctx, since)
	if err != nil {
		return Dashboard{}, err
	}
	newTasks, err := s.tasks.CountSince(ctx, since)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		SystemStats:   stats,
		Organizations: orgStats,
		Activity:      Activity{WindowDays: windowDays, NewUsers: newUsers, NewTasks: newTasks},
	}, nil
}
