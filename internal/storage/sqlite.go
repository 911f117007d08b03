package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mythic3d/particle-drawer/internal/typeid"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	password     TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS projects_owner_idx ON projects(owner_id);
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	document   BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE (project_id, version)
);
`

// SQLite is the single-user local backend. Timestamps are stored as unix milliseconds.
type SQLite struct {
	db    *sql.DB
	quota int
}

// OpenSQLite opens (creating if needed) the database file at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(ctx context.Context, path string, quotaBytes int) (*SQLite, error) {
	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db, quota: quotaBytes}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func sqliteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var serr *sqlite3.Error
	if errors.As(err, &serr) && serr.ExtendedCode() == sqlite3.CONSTRAINT_UNIQUE {
		return ErrDuplicate
	}
	return err
}

func now() int64 { return time.Now().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func (s *SQLite) CreateUser(ctx context.Context, u User) (User, error) {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password, display_name, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Password, u.DisplayName, ts)
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", sqliteError(err))
	}
	u.CreatedAt = fromMillis(ts)
	return u, nil
}

func (s *SQLite) getUser(ctx context.Context, where, arg string) (User, error) {
	var u User
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE `+where+` = ?`, arg,
	).Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &created)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", sqliteError(err))
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLite) CreateProject(ctx context.Context, p Project) (Project, error) {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.OwnerID, ts, ts)
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", sqliteError(err))
	}
	p.CreatedAt, p.UpdatedAt = fromMillis(ts), fromMillis(ts)
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (Project, error) {
	var p Project
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &created, &updated); err != nil {
		return Project{}, err
	}
	p.CreatedAt, p.UpdatedAt = fromMillis(created), fromMillis(updated)
	return p, nil
}

func (s *SQLite) GetProject(ctx context.Context, id string) (Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM projects WHERE id = ?`, id))
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", sqliteError(err))
	}
	return p, nil
}

func (s *SQLite) ListProjectsForOwner(ctx context.Context, ownerID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM projects
		 WHERE owner_id = ? ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *SQLite) RenameProject(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, updated_at = ? WHERE id = ?`, name, now(), id)
	if err != nil {
		return fmt.Errorf("rename project: %w", err)
	}
	return requireRow(res)
}

func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) SaveSnapshot(ctx context.Context, projectID string, doc []byte) (Snapshot, error) {
	if err := checkQuota(doc, s.quota); err != nil {
		return Snapshot{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	res, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, ts, projectID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	if err := requireRow(res); err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}

	snap := Snapshot{ID: typeid.NewSnapshotID(), ProjectID: projectID, Document: doc, CreatedAt: fromMillis(ts)}
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE project_id = ?`, projectID,
	).Scan(&snap.Version); err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, project_id, version, document, created_at) VALUES (?, ?, ?, ?, ?)`,
		snap.ID, projectID, snap.Version, doc, ts,
	); err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", sqliteError(err))
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE project_id = ? AND version <= ?`,
		projectID, snap.Version-snapshotRetention,
	); err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLite) GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	var snap Snapshot
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, version, document, created_at FROM snapshots
		 WHERE project_id = ? ORDER BY version DESC LIMIT 1`, projectID,
	).Scan(&snap.ID, &snap.ProjectID, &snap.Version, &snap.Document, &created)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", sqliteError(err))
	}
	snap.CreatedAt = fromMillis(created)
	return snap, nil
}

