package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huzeyfeaktas/python-editor/internal/storage"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements storage.Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
		dsn = "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Every new connection to ":memory:" is a fresh, empty database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

const nodeColumns = `id, owner_id, project_id, kind, name, path, parent_id, content, language, created_at, updated_at`

func (s *SQLiteStore) InsertNode(ctx context.Context, n *storage.Node, project *storage.Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Failure("begin insert", err)
	}
	defer tx.Rollback()

	if project != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO projects (id, owner_id, name, language, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			project.ID, project.OwnerID, project.Name, project.Language,
			formatTime(project.CreatedAt), formatTime(project.UpdatedAt),
		)
		if err != nil {
			return storage.Failure("inserting project", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.OwnerID, nullable(n.ProjectID), string(n.Kind), n.Name, n.Path,
		nullable(n.ParentID), n.Content, n.Language,
		formatTime(n.CreatedAt), formatTime(n.UpdatedAt),
	)
	if isPathConflict(err) {
		return fmt.Errorf("%s: %w", n.Path, storage.ErrConflict)
	}
	if err != nil {
		return storage.Failure("inserting node", err)
	}

	if err := tx.Commit(); err != nil {
		return storage.Failure("commit insert", err)
	}
	return nil
}

func (s *SQLiteStore) GetNode(ctx context.Context, id string) (*storage.Node, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Failure("querying node", err)
	}
	return n, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*storage.Project, error) {
	var p storage.Project
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, language, created_at, updated_at
		FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.OwnerID, &p.Name, &p.Language, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, storage.Failure("querying project", err)
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (s *SQLiteStore) UpdateContent(ctx context.Context, id, content string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE nodes SET content = ?, updated_at = ? WHERE id = ?`,
		content, formatTime(at), id,
	)
	if err != nil {
		return storage.Failure("updating content", err)
	}
	return expectRow(res, id)
}

func (s *SQLiteStore) RenameNode(ctx context.Context, id, name string, paths []storage.PathUpdate, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Failure("begin rename", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE nodes SET name = ?, updated_at = ? WHERE id = ?`,
		name, formatTime(at), id,
	)
	if err != nil {
		return storage.Failure("renaming node", err)
	}
	if err := expectRow(res, id); err != nil {
		return err
	}

	for _, p := range paths {
		_, err := tx.ExecContext(ctx, `UPDATE nodes SET path = ? WHERE id = ?`, p.Path, p.ID)
		if isPathConflict(err) {
			return fmt.Errorf("%s: %w", p.Path, storage.ErrConflict)
		}
		if err != nil {
			return storage.Failure("updating path", err)
		}
	}

	// The registry keeps the project's display name in sync.
	if _, err := tx.ExecContext(ctx, `
		UPDATE projects SET name = ?, updated_at = ? WHERE id = ?`,
		name, formatTime(at), id,
	); err != nil {
		return storage.Failure("renaming project", err)
	}

	if err := tx.Commit(); err != nil {
		return storage.Failure("commit rename", err)
	}
	return nil
}

func (s *SQLiteStore) Descendants(ctx context.Context, id string) ([]storage.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE sub(id, depth) AS (
			SELECT id, 1 FROM nodes WHERE parent_id = ?
			UNION ALL
			SELECT n.id, sub.depth + 1 FROM nodes n JOIN sub ON n.parent_id = sub.id
		)
		SELECT `+prefixed("n", nodeColumns)+`
		FROM nodes n JOIN sub ON n.id = sub.id
		ORDER BY sub.depth, n.seq`, id)
	if err != nil {
		return nil, storage.Failure("querying descendants", err)
	}
	return collectNodes(rows)
}

func (s *SQLiteStore) DeleteNodes(ctx context.Context, ids []string, projectID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.Failure("begin delete", err)
	}
	defer tx.Rollback()

	if len(ids) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id IN (`+placeholders+`)`, args...); err != nil {
			return storage.Failure("deleting nodes", err)
		}
	}

	if projectID != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID); err != nil {
			return storage.Failure("deleting project", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.Failure("commit delete", err)
	}
	return nil
}

func (s *SQLiteStore) ListByOwner(ctx context.Context, ownerID string) ([]storage.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes WHERE owner_id = ? ORDER BY seq`, ownerID)
	if err != nil {
		return nil, storage.Failure("listing nodes", err)
	}
	return collectNodes(rows)
}

func (s *SQLiteStore) ListByProject(ctx context.Context, projectID string) ([]storage.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes WHERE project_id = ? ORDER BY seq`, projectID)
	if err != nil {
		return nil, storage.Failure("listing project nodes", err)
	}
	return collectNodes(rows)
}

func (s *SQLiteStore) ListProjects(ctx context.Context, ownerID string) ([]storage.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, language, created_at, updated_at
		FROM projects WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, storage.Failure("listing projects", err)
	}
	defer rows.Close()

	var projects []storage.Project
	for rows.Next() {
		var p storage.Project
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Language, &createdAt, &updatedAt); err != nil {
			return nil, storage.Failure("scanning project", err)
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Failure("listing projects", err)
	}
	return projects, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Scanner interface to work with both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanNode(s scanner) (*storage.Node, error) {
	var n storage.Node
	var kind, createdAt, updatedAt string
	var projectID, parentID sql.NullString
	err := s.Scan(&n.ID, &n.OwnerID, &projectID, &kind, &n.Name, &n.Path,
		&parentID, &n.Content, &n.Language, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	n.Kind = storage.Kind(kind)
	n.ProjectID = projectID.String
	n.ParentID = parentID.String
	n.CreatedAt = parseTime(createdAt)
	n.UpdatedAt = parseTime(updatedAt)
	return &n, nil
}

func collectNodes(rows *sql.Rows) ([]storage.Node, error) {
	defer rows.Close()

	var nodes []storage.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, storage.Failure("scanning node", err)
		}
		nodes = append(nodes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Failure("iterating nodes", err)
	}
	return nodes, nil
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Failure("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("node %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// isPathConflict reports whether err is a violation of the unique
// (owner_id, path) index.
func isPathConflict(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	return strings.Contains(se.Error(), "nodes.path")
}
