package sqlx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	libsqlx "github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"xplist/core"
)

// Driver names a database/sql driver registered by this package.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
)

// Config holds SQL connection configuration.
// MySQL DSNs need parseTime=true and clientFoundRows=true.
type Config struct {
	Driver          Driver        `json:"driver" yaml:"driver" env:"XPLIST_SQL_DRIVER"`
	DSN             string        `json:"dsn,omitempty" yaml:"dsn" env:"XPLIST_SQL_DSN"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" env:"XPLIST_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"XPLIST_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"XPLIST_SQL_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `json:"auto_migrate" yaml:"auto_migrate" env:"XPLIST_SQL_AUTO_MIGRATE"`
}

// DefaultConfig returns defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	cfg := Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		AutoMigrate:     true,
	}
	if driver == DriverSQLite {
		cfg.DSN = "file:xplist.db?_pragma=busy_timeout(5000)"
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY.
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}
	return cfg
}

// Validate checks the driver name and DSN.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported driver %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("dsn cannot be empty")
	}
	return nil
}

// Store implements engine.Storage on top of a relational database.
// Tables:
// - user_levels: one row per user with the total and cached snapshot
// - tasks: one row per task
type Store struct {
	db     *libsqlx.DB
	driver Driver
}

// New opens a database connection and optionally migrates the schema.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sql config: %w", err)
	}
	db, err := libsqlx.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	s := NewWithDB(db, cfg.Driver)
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// NewWithDB wraps an existing connection (useful for testing).
func NewWithDB(db *libsqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	ts := "TIMESTAMP"
	boolean := "BOOLEAN"
	text := "TEXT"
	key := "VARCHAR(191)"
	switch s.driver {
	case DriverMySQL:
		ts = "DATETIME(6)"
		boolean = "TINYINT(1)"
	case DriverSQLite:
		key = "TEXT"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_levels (
			user_id ` + key + ` PRIMARY KEY,
			total_xp BIGINT NOT NULL DEFAULT 0,
			level INTEGER NOT NULL DEFAULT 0,
			current_level_xp BIGINT NOT NULL DEFAULT 0,
			xp_to_next_level BIGINT NOT NULL DEFAULT 0,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id ` + key + ` PRIMARY KEY,
			user_id ` + key + ` NOT NULL,
			title ` + text + ` NOT NULL,
			description ` + text + `,
			difficulty VARCHAR(32) NOT NULL,
			xp_reward BIGINT NULL,
			completed ` + boolean + ` NOT NULL DEFAULT FALSE,
			completed_at ` + ts + ` NULL,
			created_at ` + ts + ` NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// forUpdate returns the row-lock clause for drivers that support it.
func (s *Store) forUpdate() string {
	if s.driver == DriverSQLite {
		return ""
	}
	return " FOR UPDATE"
}

// ensureLevelRowQuery inserts an empty user_levels row unless one exists. A
// concurrent first write blocks on the key instead of failing with a duplicate.
func (s *Store) ensureLevelRowQuery() string {
	insert := `INSERT INTO user_levels (user_id, total_xp, level, current_level_xp, xp_to_next_level, created_at, updated_at) VALUES (?, 0, 0, 0, 0, ?, ?)`
	if s.driver == DriverMySQL {
		return insert + ` ON DUPLICATE KEY UPDATE user_id = user_id`
	}
	return insert + ` ON CONFLICT (user_id) DO NOTHING`
}

// lockLevelRow makes sure the user's row exists and returns its total, locked
// for the rest of tx where the driver supports row locks.
func (s *Store) lockLevelRow(ctx context.Context, tx *libsqlx.Tx, userID core.UserID, now time.Time) (int64, error) {
	if _, err := tx.ExecContext(ctx, tx.Rebind(s.ensureLevelRowQuery()), userID, now, now); err != nil {
		return 0, fmt.Errorf("insert level: %w", err)
	}
	var current int64
	err := tx.GetContext(ctx, &current,
		tx.Rebind(`SELECT total_xp FROM user_levels WHERE user_id = ?`+s.forUpdate()), userID)
	if err != nil {
		return 0, fmt.Errorf("select level: %w", err)
	}
	return current, nil
}

// AddXP atomically adds XP to the user's total
func (s *Store) AddXP(ctx context.Context, userID core.UserID, delta int64) (int64, error) {
	if delta == 0 {
		return 0, errors.New("delta cannot be zero")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	current, err := s.lockLevelRow(ctx, tx, userID, now)
	if err != nil {
		return 0, err
	}
	next, err := core.AddSafe(current, delta)
	if err != nil {
		return 0, err
	}
	if next < 0 {
		return 0, errors.New("total xp cannot go negative")
	}
	_, err = tx.ExecContext(ctx,
		tx.Rebind(`UPDATE user_levels SET total_xp = ?, updated_at = ? WHERE user_id = ?`),
		next, now, userID)
	if err != nil {
		return 0, fmt.Errorf("update level: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// SaveSnapshot writes the cached level fields if state.TotalXP is still the stored total.
// A stale snapshot rolls back, including the row a new user would have received.
func (s *Store) SaveSnapshot(ctx context.Context, userID core.UserID, state core.UserState) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	current, err := s.lockLevelRow(ctx, tx, userID, now)
	if err != nil {
		return err
	}
	if current != state.TotalXP {
		return nil
	}
	_, err = tx.ExecContext(ctx,
		tx.Rebind(`UPDATE user_levels SET level = ?, current_level_xp = ?, xp_to_next_level = ?, updated_at = ? WHERE user_id = ?`),
		state.Level, state.CurrentLevelXP, state.XPToNextLevel, now, userID)
	if err != nil {
		return fmt.Errorf("update level: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetState returns the stored level document, or an empty one for unknown users.
func (s *Store) GetState(ctx context.Context, userID core.UserID) (core.UserState, error) {
	var st core.UserState
	err := s.db.GetContext(ctx, &st,
		s.db.Rebind(`SELECT user_id, total_xp, level, current_level_xp, xp_to_next_level, updated_at FROM user_levels WHERE user_id = ?`),
		userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserState{UserID: userID, Updated: time.Now().UTC()}, nil
	}
	if err != nil {
		return core.UserState{}, fmt.Errorf("get state: %w", err)
	}
	return st, nil
}

const taskColumns = `id, user_id, title, description, difficulty, xp_reward, completed, completed_at, created_at`

func (s *Store) CreateTask(ctx context.Context, task core.Task) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (:id, :user_id, :title, :description, :difficulty, :xp_reward, :completed, :completed_at, :created_at)`,
		task)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *Store) GetTask(ctx context.Context, userID core.UserID, id string) (core.Task, error) {
	var task core.Task
	err := s.db.GetContext(ctx, &task,
		s.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND id = ?`), userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Task{}, core.ErrTaskNotFound
	}
	if err != nil {
		return core.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *Store) UpdateTask(ctx context.Context, task core.Task) error {
	res, err := s.db.NamedExecContext(ctx,
		`UPDATE tasks SET title = :title, description = :description, difficulty = :difficulty, xp_reward = :xp_reward, completed = :completed, completed_at = :completed_at WHERE user_id = :user_id AND id = :id`,
		task)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteTask(ctx context.Context, userID core.UserID, id string) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM tasks WHERE user_id = ? AND id = ?`), userID, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireRow(res)
}

// ListTasks returns the user's tasks by creation time, oldest first.
func (s *Store) ListTasks(ctx context.Context, userID core.UserID) ([]core.Task, error) {
	tasks := []core.Task{}
	err := s.db.SelectContext(ctx, &tasks,
		s.db.Rebind(`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// requireRow maps zero affected rows to ErrTaskNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrTaskNotFound
	}
	return nil
}
