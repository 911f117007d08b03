package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mythic3d/particle-drawer/internal/typeid"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	password     TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS projects_owner_idx ON projects(owner_id);
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (project_id, version)
);
`

// Postgres is the server backend.
type Postgres struct {
	pool  *pgxpool.Pool
	quota int
}

func OpenPostgres(ctx context.Context, dsn string, quotaBytes int) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool, quota: quotaBytes}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func pgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return ErrDuplicate
	}
	return err
}

func (p *Postgres) CreateUser(ctx context.Context, u User) (User, error) {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password, display_name) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		u.ID, u.Email, u.Password, u.DisplayName,
	).Scan(&u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", pgError(err))
	}
	return u, nil
}

func (p *Postgres) getUser(ctx context.Context, where string, arg string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE `+where+` = $1`, arg,
	).Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", pgError(err))
	}
	return u, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return p.getUser(ctx, "email", email)
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (User, error) {
	return p.getUser(ctx, "id", id)
}

func (p *Postgres) CreateProject(ctx context.Context, pr Project) (Project, error) {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO projects (id, name, owner_id) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
		pr.ID, pr.Name, pr.OwnerID,
	).Scan(&pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", pgError(err))
	}
	return pr, nil
}

func (p *Postgres) GetProject(ctx context.Context, id string) (Project, error) {
	var pr Project
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM projects WHERE id = $1`, id,
	).Scan(&pr.ID, &pr.Name, &pr.OwnerID, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", pgError(err))
	}
	return pr, nil
}

func (p *Postgres) ListProjectsForOwner(ctx context.Context, ownerID string) ([]Project, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM projects
		 WHERE owner_id = $1 ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Project, error) {
		var pr Project
		err := row.Scan(&pr.ID, &pr.Name, &pr.OwnerID, &pr.CreatedAt, &pr.UpdatedAt)
		return pr, err
	})
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (p *Postgres) RenameProject(ctx context.Context, id, name string) error {
	tag, err := p.pool.Exec(ctx, `UPDATE projects SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	if err != nil {
		return fmt.Errorf("rename project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteProject(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SaveSnapshot(ctx context.Context, projectID string, doc []byte) (Snapshot, error) {
	if err := checkQuota(doc, p.quota); err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{ID: typeid.NewSnapshotID(), ProjectID: projectID, Document: doc}
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		// Lock the project row so concurrent saves get distinct versions.
		var id string
		if err := tx.QueryRow(ctx, `SELECT id FROM projects WHERE id = $1 FOR UPDATE`, projectID).Scan(&id); err != nil {
			return pgError(err)
		}
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE project_id = $1`, projectID,
		).Scan(&snap.Version); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx,
			`INSERT INTO snapshots (id, project_id, version, document) VALUES ($1, $2, $3, $4) RETURNING created_at`,
			snap.ID, projectID, snap.Version, doc,
		).Scan(&snap.CreatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM snapshots WHERE project_id = $1 AND version <= $2`,
			projectID, snap.Version-snapshotRetention,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE projects SET updated_at = now() WHERE id = $1`, projectID)
		return err
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	return snap, nil
}

func (p *Postgres) GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	var s Snapshot
	err := p.pool.QueryRow(ctx,
		`SELECT id, project_id, version, document, created_at FROM snapshots
		 WHERE project_id = $1 ORDER BY version DESC LIMIT 1`, projectID,
	).Scan(&s.ID, &s.ProjectID, &s.Version, &s.Document, &s.CreatedAt)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", pgError(err))
	}
	return s, nil
}
