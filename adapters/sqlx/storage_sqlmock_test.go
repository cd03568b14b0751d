package sqlx_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	libsqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	storage "xplist/adapters/sqlx"
	"xplist/core"
	"xplist/engine"
)

var _ engine.Storage = (*storage.Store)(nil)

var taskCols = []string{"id", "user_id", "title", "description", "difficulty", "xp_reward", "completed", "completed_at", "created_at"}

func newMockStore(t *testing.T) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	return newMockStoreFor(t, storage.DriverPostgres)
}

func newMockStoreFor(t *testing.T, driver storage.Driver) (*storage.Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	xdb := storage.NewWithDB(libsqlx.NewDb(db, string(driver)), driver)
	cleanup := func() {
		_ = db.Close()
	}
	return xdb, mock, cleanup
}

const ensureRowPostgres = `INSERT INTO user_levels .* VALUES \(\$1, 0, 0, 0, 0, \$2, \$3\) ON CONFLICT \(user_id\) DO NOTHING`

// expectLockedTotal expects the insert-if-missing and the locking select.
func expectLockedTotal(mock sqlmock.Sqlmock, user core.UserID, inserted bool, total int64) {
	affected := int64(0)
	if inserted {
		affected = 1
	}
	mock.ExpectExec(ensureRowPostgres).
		WithArgs(user, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, affected))
	mock.ExpectQuery(`SELECT total_xp FROM user_levels WHERE user_id = \$1 FOR UPDATE`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"total_xp"}).AddRow(total))
}

func TestSQLMock_AddXP_NewUser(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	user := core.UserID("u1")

	mock.ExpectBegin()
	expectLockedTotal(mock, user, true, 0)
	mock.ExpectExec(`UPDATE user_levels SET total_xp`).
		WithArgs(int64(10), sqlmock.AnyArg(), user).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	total, err := store.AddXP(ctx, user, 10)
	require.NoError(t, err)
	require.Equal(t, int64(10), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddXP_Update(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	user := core.UserID("u1")

	mock.ExpectBegin()
	expectLockedTotal(mock, user, false, 90)
	mock.ExpectExec(`UPDATE user_levels SET total_xp`).
		WithArgs(int64(140), sqlmock.AnyArg(), user).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	total, err := store.AddXP(ctx, user, 50)
	require.NoError(t, err)
	require.Equal(t, int64(140), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddXP_MySQL(t *testing.T) {
	store, mock, cleanup := newMockStoreFor(t, storage.DriverMySQL)
	defer cleanup()

	user := core.UserID("u1")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_levels .* VALUES \(\?, 0, 0, 0, 0, \?, \?\) ON DUPLICATE KEY UPDATE user_id = user_id`).
		WithArgs(user, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT total_xp FROM user_levels WHERE user_id = \? FOR UPDATE`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"total_xp"}).AddRow(0))
	mock.ExpectExec(`UPDATE user_levels SET total_xp = \?`).
		WithArgs(int64(25), sqlmock.AnyArg(), user).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	total, err := store.AddXP(context.Background(), user, 25)
	require.NoError(t, err)
	require.Equal(t, int64(25), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddXP_InsertError(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(ensureRowPostgres).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := store.AddXP(context.Background(), "u1", 10)
	require.ErrorContains(t, err, "insert level")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddXP_Overflow(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectBegin()
	expectLockedTotal(mock, "u1", false, int64(9223372036854775800))
	mock.ExpectRollback()

	_, err := store.AddXP(context.Background(), "u1", 100)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_AddXP_ZeroDelta(t *testing.T) {
	store, _, cleanup := newMockStore(t)
	defer cleanup()

	_, err := store.AddXP(context.Background(), "u1", 0)
	require.Error(t, err)
}

func TestSQLMock_SaveSnapshot_Update(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	user := core.UserID("u1")

	mock.ExpectBegin()
	expectLockedTotal(mock, user, false, 120)
	mock.ExpectExec(`UPDATE user_levels SET level`).
		WithArgs(2, int64(20), int64(150), sqlmock.AnyArg(), user).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveSnapshot(context.Background(), user, core.UserState{TotalXP: 120, Level: 2, CurrentLevelXP: 20, XPToNextLevel: 150})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveSnapshot_Stale(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	user := core.UserID("u1")

	mock.ExpectBegin()
	expectLockedTotal(mock, user, false, 130)
	mock.ExpectRollback()

	err := store.SaveSnapshot(context.Background(), user, core.UserState{TotalXP: 120, Level: 2})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveSnapshot_NewUser(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	user := core.UserID("u1")

	mock.ExpectBegin()
	expectLockedTotal(mock, user, true, 0)
	mock.ExpectExec(`UPDATE user_levels SET level`).
		WithArgs(1, int64(0), int64(100), sqlmock.AnyArg(), user).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SaveSnapshot(context.Background(), user, core.NewUserState(user, 100))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_SaveSnapshot_NewUserNonZeroTotal(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	user := core.UserID("u1")

	mock.ExpectBegin()
	expectLockedTotal(mock, user, true, 0)
	mock.ExpectRollback()

	err := store.SaveSnapshot(context.Background(), user, core.UserState{TotalXP: 50, Level: 1})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetState(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	ctx := context.Background()
	user := core.UserID("u1")
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT user_id, total_xp, level, current_level_xp, xp_to_next_level, updated_at FROM user_levels`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "total_xp", "level", "current_level_xp", "xp_to_next_level", "updated_at"}).
			AddRow("u1", 300, 3, 50, 225, updated))

	state, err := store.GetState(ctx, user)
	require.NoError(t, err)
	require.Equal(t, int64(300), state.TotalXP)
	require.Equal(t, 3, state.Level)
	require.Equal(t, int64(50), state.CurrentLevelXP)
	require.Equal(t, int64(225), state.XPToNextLevel)
	require.True(t, state.Updated.Equal(updated))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetState_Missing(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT user_id, total_xp`).
		WithArgs(core.UserID("ghost")).
		WillReturnError(sql.ErrNoRows)

	state, err := store.GetState(context.Background(), "ghost")
	require.NoError(t, err)
	require.Equal(t, core.UserID("ghost"), state.UserID)
	require.Equal(t, int64(0), state.TotalXP)
	require.Equal(t, 0, state.Level)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_CreateTask(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	reward := int64(25)
	task := core.Task{
		ID:         "t1",
		UserID:     "u1",
		Title:      "stretch",
		Difficulty: core.DifficultyMedium,
		XPReward:   &reward,
		CreatedAt:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO tasks`).
		WithArgs("t1", core.UserID("u1"), "stretch", "", core.DifficultyMedium, sqlmock.AnyArg(), false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.CreateTask(context.Background(), task))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetTask(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	done := created.Add(time.Hour)

	mock.ExpectQuery(`SELECT id, user_id, title`).
		WithArgs(core.UserID("u1"), "t1").
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow("t1", "u1", "stretch", "", "hard", int64(50), true, done, created))

	task, err := store.GetTask(context.Background(), "u1", "t1")
	require.NoError(t, err)
	require.Equal(t, core.DifficultyHard, task.Difficulty)
	require.NotNil(t, task.XPReward)
	require.Equal(t, int64(50), *task.XPReward)
	require.True(t, task.Completed)
	require.NotNil(t, task.CompletedAt)
	require.True(t, task.CompletedAt.Equal(done))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_GetTask_NotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, user_id, title`).
		WithArgs(core.UserID("u1"), "nope").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetTask(context.Background(), "u1", "nope")
	require.ErrorIs(t, err, core.ErrTaskNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_UpdateAndDeleteTask_NotFound(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE tasks SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM tasks`).
		WithArgs(core.UserID("u1"), "t9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, store.UpdateTask(context.Background(), core.Task{ID: "t9", UserID: "u1"}), core.ErrTaskNotFound)
	require.ErrorIs(t, store.DeleteTask(context.Background(), "u1", "t9"), core.ErrTaskNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLMock_ListTasks(t *testing.T) {
	store, mock, cleanup := newMockStore(t)
	defer cleanup()

	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, user_id, title,.* ORDER BY created_at, id`).
		WithArgs(core.UserID("u1")).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow("a", "u1", "first", "", "easy", nil, false, nil, created).
			AddRow("b", "u1", "second", "notes", "medium", int64(25), false, nil, created.Add(time.Minute)))

	tasks, err := store.ListTasks(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, "a", tasks[0].ID)
	require.Nil(t, tasks[0].XPReward)
	require.Nil(t, tasks[0].CompletedAt)
	require.Equal(t, "notes", tasks[1].Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDefaultConfig(t *testing.T) {
	cfg := storage.DefaultConfig(storage.DriverSQLite)
	require.Equal(t, 1, cfg.MaxOpenConns)
	require.NotEmpty(t, cfg.DSN)
	require.NoError(t, cfg.Validate())

	pg := storage.DefaultConfig(storage.DriverPostgres)
	require.Error(t, pg.Validate(), "postgres has no default dsn")

	require.Error(t, storage.Config{Driver: "oracle", DSN: "x"}.Validate())
}
