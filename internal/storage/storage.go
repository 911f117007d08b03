// Package storage persists users, projects and project snapshots. A snapshot is the
// JSON project file at one point in time; the newest snapshot is the project's content.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("already exists")
	ErrQuotaExceeded = errors.New("snapshot exceeds storage quota")
)

// Drivers accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// snapshotRetention is how many snapshots are kept per project.
const snapshotRetention = 20

type User struct {
	ID          string
	Email       string
	Password    string // bcrypt hash
	DisplayName string
	CreatedAt   time.Time
}

type Project struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Snapshot struct {
	ID        string
	ProjectID string
	Version   int
	Document  []byte
	CreatedAt time.Time
}

// Repository is implemented by the postgres and sqlite backends. Lookups of missing rows
// return ErrNotFound; unique violations return ErrDuplicate.
type Repository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)

	CreateProject(ctx context.Context, p Project) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjectsForOwner(ctx context.Context, ownerID string) ([]Project, error)
	RenameProject(ctx context.Context, id, name string) error
	DeleteProject(ctx context.Context, id string) error

	// SaveSnapshot stores doc as the project's next version. Documents larger than the
	// quota are rejected with ErrQuotaExceeded and nothing is written.
	SaveSnapshot(ctx context.Context, projectID string, doc []byte) (Snapshot, error)
	GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error)

	Close() error
}

// Open connects to the configured backend and creates the schema if needed. A quota of
// zero or less disables the snapshot size limit.
func Open(ctx context.Context, driver, dsn string, quotaBytes int) (Repository, error) {
	switch driver {
	case DriverPostgres:
		pg, err := OpenPostgres(ctx, dsn, quotaBytes)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case DriverSQLite:
		lite, err := OpenSQLite(ctx, dsn, quotaBytes)
		if err != nil {
			return nil, err
		}
		return lite, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func checkQuota(doc []byte, quotaBytes int) error {
	if quotaBytes > 0 && len(doc) > quotaBytes {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrQuotaExceeded, len(doc), quotaBytes)
	}
	return nil
}
