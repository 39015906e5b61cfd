// Package sqlite provides a contents.Manager backed by a single SQLite
// database file. Documents, directories, and checkpoints live in tables
// rather than on the filesystem, so a whole workspace travels as one file.
//
// The schema is managed with embedded golang-migrate migrations and applied
// on Open, so an old database upgrades in place.
package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/quirelabs/quire/internal/contents"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is how timestamps are stored. RFC 3339 text sorts and compares
// correctly inside SQL.
const timeLayout = time.RFC3339Nano

// Store is a Manager with checkpoint support over a SQLite database.
type Store struct {
	db *sql.DB
}

var (
	_ contents.Manager      = (*Store)(nil)
	_ contents.Checkpointer = (*Store)(nil)
)

// Open opens or creates the database at path and applies pending schema
// migrations.
func Open(path string) (*Store, error) {
	if err := migrateUp(path); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
}

// migrateUp applies pending migrations. The migrate driver closes the
// handle it is given, so this runs on a connection of its own and the
// store opens another one afterwards.
func migrateUp(path string) error {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		_ = db.Close()
		return err
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()

	err = m.Up()
	if err == migrate.ErrNoChange {
		return nil
	}
	return err
}

// Get implements Manager.
func (s *Store) Get(ctx context.Context, p string, opts contents.FetchOptions) (*contents.Model, error) {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return nil, err
	}

	if dir, err := isDir(ctx, s.db, cp); err != nil {
		return nil, pathErr("get", p, err)
	} else if dir {
		return dirModel(cp), nil
	}

	var (
		typ               string
		data              []byte
		created, modified string
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT type, data, created_at, updated_at FROM files WHERE path = ?`, cp).
		Scan(&typ, &data, &created, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pathErr("get", p, contents.ErrNotFound)
	}
	if err != nil {
		return nil, pathErr("get", p, err)
	}

	model := fileModel(cp, typ, int64(len(data)), created, modified)
	if !opts.IncludeContent {
		return model, nil
	}

	format := opts.Format
	if format == "" {
		format = contents.InferFormat(model.Type)
		if format == contents.FormatText && !utf8.Valid(data) {
			format = contents.FormatBase64
		}
	}

	switch format {
	case contents.FormatBase64:
		model.Content = base64.StdEncoding.EncodeToString(data)
	case contents.FormatText, contents.FormatJSON:
		if !utf8.Valid(data) {
			return nil, pathErr("get", p, contents.ErrUnsupportedFormat)
		}
		model.Content = string(data)
	default:
		return nil, pathErr("get", p, contents.ErrUnsupportedFormat)
	}
	model.Format = format
	if opts.Type != "" {
		model.Type = opts.Type
	}
	return model, nil
}

// Save implements Manager.
func (s *Store) Save(ctx context.Context, p string, opts contents.SaveOptions) (*contents.Model, error) {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return nil, err
	}
	if cp == "" {
		return nil, pathErr("save", p, contents.ErrIsDirectory)
	}

	var model *contents.Model
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if dir, err := isDir(ctx, tx, cp); err != nil {
			return pathErr("save", p, err)
		} else if dir {
			return pathErr("save", p, contents.ErrIsDirectory)
		}

		if opts.Type == contents.TypeDirectory {
			if err := mkdirs(ctx, tx, cp); err != nil {
				return pathErr("save", p, err)
			}
			model = dirModel(cp)
			return nil
		}

		var data []byte
		switch opts.Format {
		case contents.FormatBase64:
			var err error
			data, err = base64.StdEncoding.DecodeString(opts.Content)
			if err != nil {
				return pathErr("save", p, err)
			}
		default:
			data = []byte(opts.Content)
		}

		// An existing row keeps its type and creation time unless the
		// save overrides the type.
		var prevType, prevCreated string
		err := tx.QueryRowContext(ctx,
			`SELECT type, created_at FROM files WHERE path = ?`, cp).
			Scan(&prevType, &prevCreated)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return pathErr("save", p, err)
		}

		typ := string(opts.Type)
		if typ == "" {
			typ = prevType
		}
		if typ == "" {
			typ = string(contents.InferType(cp))
		}
		now := time.Now().UTC().Format(timeLayout)
		created := prevCreated
		if created == "" {
			created = now
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (path, type, data, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(path) DO UPDATE SET
				type = excluded.type,
				data = excluded.data,
				updated_at = excluded.updated_at`,
			cp, typ, data, created, now); err != nil {
			return pathErr("save", p, err)
		}
		if err := mkdirs(ctx, tx, contents.DirName(cp)); err != nil {
			return pathErr("save", p, err)
		}

		model = fileModel(cp, typ, int64(len(data)), created, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}

// Rename implements Manager. Renaming a directory moves its subtree, and
// checkpoints follow their file.
func (s *Store) Rename(ctx context.Context, oldPath, newPath string) (*contents.Model, error) {
	oldCP, err := contents.CleanPath(oldPath)
	if err != nil {
		return nil, err
	}
	newCP, err := contents.CleanPath(newPath)
	if err != nil {
		return nil, err
	}
	if oldCP == "" || newCP == "" {
		return nil, pathErr("rename", oldPath, contents.ErrInvalidPath)
	}

	var model *contents.Model
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if taken, err := pathTaken(ctx, tx, newCP); err != nil {
			return pathErr("rename", oldPath, err)
		} else if taken {
			return pathErr("rename", newPath, contents.ErrExists)
		}

		var (
			typ     string
			size    int64
			created string
		)
		err := tx.QueryRowContext(ctx,
			`SELECT type, length(data), created_at FROM files WHERE path = ?`, oldCP).
			Scan(&typ, &size, &created)
		switch {
		case err == nil:
			now := time.Now().UTC().Format(timeLayout)
			if _, err := tx.ExecContext(ctx,
				`UPDATE files SET path = ?, updated_at = ? WHERE path = ?`,
				newCP, now, oldCP); err != nil {
				return pathErr("rename", oldPath, err)
			}
			if err := mkdirs(ctx, tx, contents.DirName(newCP)); err != nil {
				return pathErr("rename", oldPath, err)
			}
			model = fileModel(newCP, typ, size, created, now)
			return nil

		case errors.Is(err, sql.ErrNoRows):
			m, err := s.renameDir(ctx, tx, oldCP, newCP, oldPath, newPath)
			if err != nil {
				return err
			}
			model = m
			return nil

		default:
			return pathErr("rename", oldPath, err)
		}
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}

// renameDir moves a directory subtree. Callers hold the transaction.
func (s *Store) renameDir(ctx context.Context, tx *sql.Tx, oldCP, newCP, oldPath, newPath string) (*contents.Model, error) {
	if dir, err := isDir(ctx, tx, oldCP); err != nil {
		return nil, pathErr("rename", oldPath, err)
	} else if !dir {
		return nil, pathErr("rename", oldPath, contents.ErrNotFound)
	}

	prefix := oldCP + "/"
	if strings.HasPrefix(newCP+"/", prefix) {
		return nil, pathErr("rename", newPath, contents.ErrInvalidPath)
	}

	files, err := allPaths(ctx, tx, `SELECT path FROM files`)
	if err != nil {
		return nil, pathErr("rename", oldPath, err)
	}
	dirs, err := allPaths(ctx, tx, `SELECT path FROM dirs`)
	if err != nil {
		return nil, pathErr("rename", oldPath, err)
	}

	for _, p := range files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		moved := newCP + "/" + strings.TrimPrefix(p, prefix)
		if _, err := tx.ExecContext(ctx,
			`UPDATE files SET path = ? WHERE path = ?`, moved, p); err != nil {
			return nil, pathErr("rename", oldPath, err)
		}
	}
	for _, d := range dirs {
		if d != oldCP && !strings.HasPrefix(d, prefix) {
			continue
		}
		moved := newCP + strings.TrimPrefix(d, oldCP)
		if _, err := tx.ExecContext(ctx,
			`UPDATE dirs SET path = ? WHERE path = ?`, moved, d); err != nil {
			return nil, pathErr("rename", oldPath, err)
		}
	}
	if err := mkdirs(ctx, tx, contents.DirName(newCP)); err != nil {
		return nil, pathErr("rename", oldPath, err)
	}

	return dirModel(newCP), nil
}

// Delete implements Manager. Directories must be empty.
func (s *Store) Delete(ctx context.Context, p string) error {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return err
	}
	if cp == "" {
		return pathErr("delete", p, contents.ErrInvalidPath)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, cp)
		if err != nil {
			return pathErr("delete", p, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return pathErr("delete", p, err)
		} else if n > 0 {
			return nil
		}

		if dir, err := isDir(ctx, tx, cp); err != nil {
			return pathErr("delete", p, err)
		} else if !dir {
			return pathErr("delete", p, contents.ErrNotFound)
		}

		prefix := cp + "/"
		files, err := allPaths(ctx, tx, `SELECT path FROM files`)
		if err != nil {
			return pathErr("delete", p, err)
		}
		dirs, err := allPaths(ctx, tx, `SELECT path FROM dirs`)
		if err != nil {
			return pathErr("delete", p, err)
		}
		for _, f := range files {
			if strings.HasPrefix(f, prefix) {
				return pathErr("delete", cp, errors.New("directory not empty"))
			}
		}
		for _, d := range dirs {
			if strings.HasPrefix(d, prefix) {
				return pathErr("delete", cp, errors.New("directory not empty"))
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM dirs WHERE path = ?`, cp); err != nil {
			return pathErr("delete", p, err)
		}
		return nil
	})
}

// List implements Manager.
func (s *Store) List(ctx context.Context, dir string) ([]*contents.Model, error) {
	cp, err := contents.CleanPath(dir)
	if err != nil {
		return nil, err
	}

	if d, err := isDir(ctx, s.db, cp); err != nil {
		return nil, pathErr("list", dir, err)
	} else if !d {
		return nil, pathErr("list", dir, contents.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path, type, length(data), created_at, updated_at FROM files`)
	if err != nil {
		return nil, pathErr("list", dir, err)
	}
	defer func() { _ = rows.Close() }()

	var models []*contents.Model
	for rows.Next() {
		var (
			p, typ            string
			size              int64
			created, modified string
		)
		if err := rows.Scan(&p, &typ, &size, &created, &modified); err != nil {
			return nil, pathErr("list", dir, err)
		}
		if contents.DirName(p) != cp || contents.IsHidden(p) {
			continue
		}
		models = append(models, fileModel(p, typ, size, created, modified))
	}
	if err := rows.Err(); err != nil {
		return nil, pathErr("list", dir, err)
	}

	dirPaths, err := allPaths(ctx, s.db, `SELECT path FROM dirs`)
	if err != nil {
		return nil, pathErr("list", dir, err)
	}
	for _, d := range dirPaths {
		if d != "" && contents.DirName(d) == cp && !contents.IsHidden(d) {
			models = append(models, dirModel(d))
		}
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// CreateCheckpoint implements Checkpointer.
func (s *Store) CreateCheckpoint(ctx context.Context, p string) (contents.Checkpoint, error) {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return contents.Checkpoint{}, err
	}

	var ckpt contents.Checkpoint
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var data []byte
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM files WHERE path = ?`, cp).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return pathErr("checkpoint", p, contents.ErrNotFound)
		}
		if err != nil {
			return pathErr("checkpoint", p, err)
		}

		id := ulid.MustNew(ulid.Now(), rand.Reader)
		taken := ulid.Time(id.Time())
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoints (path, id, data, created_at) VALUES (?, ?, ?, ?)`,
			cp, id.String(), data, taken.Format(timeLayout)); err != nil {
			return pathErr("checkpoint", p, err)
		}

		ckpt = contents.Checkpoint{ID: id.String(), LastModified: taken}
		return nil
	})
	if err != nil {
		return contents.Checkpoint{}, err
	}
	return ckpt, nil
}

// ListCheckpoints implements Checkpointer.
func (s *Store) ListCheckpoints(ctx context.Context, p string) ([]contents.Checkpoint, error) {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at FROM checkpoints WHERE path = ? ORDER BY id ASC`, cp)
	if err != nil {
		return nil, pathErr("checkpoint", p, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]contents.Checkpoint, 0, 4)
	for rows.Next() {
		var id, created string
		if err := rows.Scan(&id, &created); err != nil {
			return nil, pathErr("checkpoint", p, err)
		}
		out = append(out, contents.Checkpoint{ID: id, LastModified: parseTime(created)})
	}
	if err := rows.Err(); err != nil {
		return nil, pathErr("checkpoint", p, err)
	}
	return out, nil
}

// RestoreCheckpoint implements Checkpointer.
func (s *Store) RestoreCheckpoint(ctx context.Context, p, checkpointID string) error {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM files WHERE path = ?`, cp).Scan(&n); err != nil {
			return pathErr("restore", p, err)
		}
		if n == 0 {
			return pathErr("restore", p, contents.ErrNotFound)
		}

		var data []byte
		err := tx.QueryRowContext(ctx,
			`SELECT data FROM checkpoints WHERE path = ? AND id = ?`,
			cp, checkpointID).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return pathErr("restore", p, contents.ErrCheckpointNotFound)
		}
		if err != nil {
			return pathErr("restore", p, err)
		}

		now := time.Now().UTC().Format(timeLayout)
		if _, err := tx.ExecContext(ctx,
			`UPDATE files SET data = ?, updated_at = ? WHERE path = ?`,
			data, now, cp); err != nil {
			return pathErr("restore", p, err)
		}
		return nil
	})
}

// DeleteCheckpoint implements Checkpointer.
func (s *Store) DeleteCheckpoint(ctx context.Context, p, checkpointID string) error {
	cp, err := contents.CleanPath(p)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM checkpoints WHERE path = ? AND id = ?`, cp, checkpointID)
	if err != nil {
		return pathErr("checkpoint", p, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pathErr("checkpoint", p, err)
	}
	if n == 0 {
		return pathErr("checkpoint", p, contents.ErrCheckpointNotFound)
	}
	return nil
}

// withTx runs fn in a transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// querier is the query surface shared by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// isDir reports whether cp names a directory. The root always is one.
func isDir(ctx context.Context, q querier, cp string) (bool, error) {
	if cp == "" {
		return true, nil
	}
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dirs WHERE path = ?`, cp).Scan(&n)
	return n > 0, err
}

// pathTaken reports whether cp names an existing file or directory.
func pathTaken(ctx context.Context, q querier, cp string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM files WHERE path = ?)
		     OR EXISTS (SELECT 1 FROM dirs WHERE path = ?)`,
		cp, cp).Scan(&n)
	return n != 0, err
}

// mkdirs records cp and its ancestors as directories.
func mkdirs(ctx context.Context, q querier, cp string) error {
	for cp != "" {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO dirs (path) VALUES (?) ON CONFLICT(path) DO NOTHING`, cp); err != nil {
			return err
		}
		cp = contents.DirName(cp)
	}
	return nil
}

// allPaths runs a single-column path query and drains it. Rows are fully
// consumed before the caller issues the next statement on the connection.
func allPaths(ctx context.Context, q querier, query string) ([]string, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func fileModel(cp, typ string, size int64, created, modified string) *contents.Model {
	return &contents.Model{
		Path:         cp,
		Name:         contents.BaseName(cp),
		Type:         contents.Type(typ),
		Mimetype:     contents.DetectMimetype(cp),
		Size:         size,
		Created:      parseTime(created),
		LastModified: parseTime(modified),
		Writable:     true,
	}
}

func dirModel(cp string) *contents.Model {
	return &contents.Model{
		Path:     cp,
		Name:     contents.BaseName(cp),
		Type:     contents.TypeDirectory,
		Writable: true,
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func pathErr(op, path string, err error) error {
	return &contents.PathError{Op: op, Path: path, Err: err}
}
