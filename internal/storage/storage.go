// Package storage persists weddings and their guest lists in a relational
// database. SQLite is the default; PostgreSQL is used through pgx.
//
// Every entity operation takes the id of a wedding already resolved through
// FindWedding, and every query is filtered by it, so one wedding can never
// see or touch another's rows.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"wedding-planner/internal/apperr"
	"wedding-planner/internal/models"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Storage struct {
	db     *sql.DB
	driver string
	now    func() time.Time
	log    zerolog.Logger
}

type Option func(*Storage)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Storage) { s.log = log.With().Str("component", "storage").Logger() }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

// Open connects to the database and applies the schema
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Storage, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// one writer at a time; avoids SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := New(db, driver, opts...)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database handle
func New(db *sql.DB, driver string, opts ...Option) *Storage {
	s := &Storage{db: db, driver: driver, now: time.Now, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates missing tables and indexes
func (s *Storage) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.driver == DriverPostgres {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Weddings

// CreateWedding inserts a wedding. A taken code is a Conflict.
func (s *Storage) CreateWedding(ctx context.Context, code string, expiresAt time.Time) (models.Wedding, error) {
	w := models.Wedding{Code: code, ExpiresAt: expiresAt.UTC()}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO weddings (code, expires_at, created_at) VALUES ($1, $2, $3) RETURNING id`,
		w.Code, w.ExpiresAt, s.now().UTC(),
	).Scan(&w.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Wedding{}, apperr.New(apperr.Conflict, "code already in use")
		}
		return models.Wedding{}, fmt.Errorf("failed to create wedding: %w", err)
	}
	return w, nil
}

// FindWedding resolves a code to a live wedding. Missing weddings are
// NotFound, expired ones Expired.
func (s *Storage) FindWedding(ctx context.Context, code string) (models.Wedding, error) {
	w, err := s.weddingByCode(ctx, code)
	if err != nil {
		return models.Wedding{}, err
	}
	if w.Expired(s.now()) {
		return models.Wedding{}, apperr.New(apperr.Expired, "not found or expired")
	}
	return w, nil
}

// RenewWedding moves the expiry of an existing wedding, expired or not
func (s *Storage) RenewWedding(ctx context.Context, code string, expiresAt time.Time) (models.Wedding, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE weddings SET expires_at = $1 WHERE code = $2`, expiresAt.UTC(), code)
	if err != nil {
		return models.Wedding{}, fmt.Errorf("failed to renew wedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Wedding{}, apperr.New(apperr.NotFound, "not found")
	}
	return s.weddingByCode(ctx, code)
}

// DeleteWedding removes a wedding and everything it owns
func (s *Storage) DeleteWedding(ctx context.Context, code string) error {
	w, err := s.weddingByCode(ctx, code)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			`DELETE FROM checks WHERE guest_id IN (SELECT id FROM guests WHERE wedding_id = $1)`,
			`DELETE FROM checks WHERE category_id IN (SELECT id FROM categories WHERE wedding_id = $1)`,
			`DELETE FROM guests WHERE wedding_id = $1`,
			`DELETE FROM categories WHERE wedding_id = $1`,
			`DELETE FROM cities WHERE wedding_id = $1`,
			`DELETE FROM weddings WHERE id = $1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, w.ID); err != nil {
				return fmt.Errorf("failed to delete wedding: %w", err)
			}
		}
		return nil
	})
}

// Bootstrap returns the full dataset of a wedding
func (s *Storage) Bootstrap(ctx context.Context, weddingID int64) (models.Bootstrap, error) {
	out := models.EmptyBootstrap()
	out.Found = true

	var err error
	if out.Cities, err = s.ListCities(ctx, weddingID); err != nil {
		return models.Bootstrap{}, err
	}
	if out.Categories, err = s.ListCategories(ctx, weddingID); err != nil {
		return models.Bootstrap{}, err
	}
	if out.Guests, err = s.ListGuests(ctx, weddingID); err != nil {
		return models.Bootstrap{}, err
	}
	if out.Checks, err = s.ListChecks(ctx, weddingID); err != nil {
		return models.Bootstrap{}, err
	}
	return out, nil
}

func (s *Storage) weddingByCode(ctx context.Context, code string) (models.Wedding, error) {
	var w models.Wedding
	err := s.db.QueryRowContext(ctx, `SELECT id, code, expires_at FROM weddings WHERE code = $1`, code).
		Scan(&w.ID, &w.Code, &w.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Wedding{}, apperr.New(apperr.NotFound, "not found")
	}
	if err != nil {
		return models.Wedding{}, fmt.Errorf("failed to load wedding: %w", err)
	}
	w.ExpiresAt = w.ExpiresAt.UTC()
	return w, nil
}

// helpers

func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// owned reports NotFound unless row id of table belongs to the wedding.
// table is always one of the package's constant table names.
func owned(ctx context.Context, q queryer, table string, weddingID, id int64, what string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = $1 AND wedding_id = $2`, id, weddingID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Newf(apperr.NotFound, "%s not found", what)
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", what, err)
	}
	return nil
}

// nameTaken reports whether another row of table in the wedding already
// carries name, compared case-insensitively. exceptID is ignored when 0.
func nameTaken(ctx context.Context, q queryer, table string, weddingID int64, name string, exceptID int64) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE wedding_id = $1 AND lower(name) = lower($2) AND id <> $3`,
		weddingID, name, exceptID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check name: %w", err)
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.New(apperr.Validation, "name required")
	}
	return name, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

func nullable(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func pointer(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
