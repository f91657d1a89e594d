package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bebokaka99/truyenviethay-backend/pkg/logger"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrQuestKeyExists = errors.New("quest key already exists")
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

type Repository struct {
	db     *sqlx.DB
	driver string
	sb     squirrel.StatementBuilderType
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Driver() string {
	return r.driver
}

func (r *Repository) Transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	err = t(tx)
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return pkgerrors.Wrapf(err, "rollback error: %v", txErr)
		}
		return err
	}
	return tx.Commit()
}

type Config struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

func New(cfg Config) (*Repository, error) {
	driver := cfg.GetDriver()
	db, err := sqlx.Connect(driver, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	logger.Logger().Info("Connected to database successfully", zap.String("driver", driver))

	return NewWithDB(db, driver), nil
}

// NewWithDB wraps an open handle. SQLite handles are pinned to a single
// connection so that transactions serialize and in-memory databases are shared.
func NewWithDB(db *sqlx.DB, driver string) *Repository {
	sb := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	if driver == DriverSQLite {
		sb = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
		db.SetMaxOpenConns(1)
	}
	return &Repository{
		db:     db,
		driver: driver,
		sb:     sb,
	}
}

func (c *Config) GetDriver() string {
	if c.Driver == DriverSQLite {
		return DriverSQLite
	}
	return DriverPostgres
}

func (c *Config) GetDatabaseURL() string {
	if c.GetDriver() == DriverSQLite {
		name := c.DSN
		if name == "" {
			name = c.Name
		}
		return SQLiteDSN(name)
	}
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

// SQLiteDSN turns a file path (or ":memory:") into a DSN with foreign keys enabled.
func SQLiteDSN(path string) string {
	if path == "" {
		path = "quests.db"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// forUpdate appends a row lock on dialects that support it. SQLite
// serializes writers on its single connection instead.
func (r *Repository) forUpdate(b squirrel.SelectBuilder, of ...string) squirrel.SelectBuilder {
	if r.driver != DriverPostgres {
		return b
	}
	if len(of) > 0 {
		return b.Suffix("FOR UPDATE OF " + strings.Join(of, ", "))
	}
	return b.Suffix("FOR UPDATE")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
