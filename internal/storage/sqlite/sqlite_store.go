package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brk3/habitboard/internal/logger"
	"github.com/brk3/habitboard/internal/storage"
	"github.com/brk3/habitboard/pkg/habit"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// Store implements storage.Store on a local SQLite database.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

type habitRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Name      string `db:"name"`
	Type      string `db:"type"`
	Cycle     string `db:"cycle"`
	Message   string `db:"message"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

type completionRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	HabitID   string `db:"habit_id"`
	Date      string `db:"date"`
	CreatedAt string `db:"created_at"`
}

type accountRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
}

// Open opens (or creates) the database at path, enables WAL and foreign
// keys, and applies pending migrations.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	current := 0

	var tables int
	err := s.db.Get(&tables, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tables > 0 {
		if err := s.db.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.Beginx()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		logger.Debug("Applied migration", "version", m.version)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		logger.Warn("Unparseable timestamp in sqlite store", "value", s, "error", err)
	}
	return t
}

func (r habitRow) habit() habit.Habit {
	return habit.Habit{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Type:      r.Type,
		Cycle:     habit.Cycle(r.Cycle),
		Message:   r.Message,
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
}

func (r completionRow) completion() habit.Completion {
	return habit.Completion{
		ID:        r.ID,
		UserID:    r.UserID,
		HabitID:   r.HabitID,
		Date:      r.Date,
		CreatedAt: parseTime(r.CreatedAt),
	}
}

func completions(rows []completionRow) []habit.Completion {
	out := make([]habit.Completion, len(rows))
	for i, r := range rows {
		out[i] = r.completion()
	}
	return out
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

const habitColumns = "id, user_id, name, type, cycle, message, created_at, updated_at"

func (s *Store) ListHabits(userID string) ([]habit.Habit, error) {
	var rows []habitRow
	err := s.db.Select(&rows, "SELECT "+habitColumns+" FROM habits WHERE user_id = ? ORDER BY created_at, id", userID)
	if err != nil {
		return nil, fmt.Errorf("listing habits: %w", err)
	}
	out := make([]habit.Habit, len(rows))
	for i, r := range rows {
		out[i] = r.habit()
	}
	return out, nil
}

func getHabit(q sqlx.Queryer, userID, habitID string) (habit.Habit, error) {
	var r habitRow
	err := sqlx.Get(q, &r, "SELECT "+habitColumns+" FROM habits WHERE user_id = ? AND id = ?", userID, habitID)
	if err != nil {
		return habit.Habit{}, notFound(err)
	}
	return r.habit(), nil
}

func (s *Store) GetHabit(userID, habitID string) (habit.Habit, error) {
	return getHabit(s.db, userID, habitID)
}

func (s *Store) CreateHabit(userID string, in habit.HabitInput) (habit.Habit, error) {
	h := habit.NewHabit(userID, in, s.now())
	_, err := s.db.Exec(`
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Name, h.Type, string(h.Cycle), h.Message,
		formatTime(h.CreatedAt), formatTime(h.UpdatedAt),
	)
	if err != nil {
		return habit.Habit{}, fmt.Errorf("creating habit: %w", err)
	}
	return h, nil
}

func (s *Store) UpdateHabit(userID, habitID string, in habit.HabitInput) (habit.Habit, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return habit.Habit{}, err
	}
	defer tx.Rollback()

	h, err := getHabit(tx, userID, habitID)
	if err != nil {
		return habit.Habit{}, err
	}
	h.Apply(in, s.now())
	_, err = tx.Exec(`
		UPDATE habits SET name = ?, type = ?, cycle = ?, message = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		h.Name, h.Type, string(h.Cycle), h.Message, formatTime(h.UpdatedAt), userID, habitID,
	)
	if err != nil {
		return habit.Habit{}, fmt.Errorf("updating habit: %w", err)
	}
	return h, tx.Commit()
}

func (s *Store) DeleteHabit(userID, habitID string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM completions WHERE user_id = ? AND habit_id = ?", userID, habitID); err != nil {
		return fmt.Errorf("deleting completions: %w", err)
	}
	res, err := tx.Exec("DELETE FROM habits WHERE user_id = ? AND id = ?", userID, habitID)
	if err != nil {
		return fmt.Errorf("deleting habit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return tx.Commit()
}

const completionColumns = "id, user_id, habit_id, date, created_at"

func (s *Store) ListCompletions(userID, habitID string) ([]habit.Completion, error) {
	query := "SELECT " + completionColumns + " FROM completions WHERE user_id = ?"
	args := []any{userID}
	if habitID != "" {
		query += " AND habit_id = ?"
		args = append(args, habitID)
	}
	query += " ORDER BY date, habit_id"

	var rows []completionRow
	if err := s.db.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing completions: %w", err)
	}
	return completions(rows), nil
}

func (s *Store) ListCompletionsByRange(userID, start, end string) ([]habit.Completion, error) {
	var where strings.Builder
	where.WriteString("user_id = ?")
	args := []any{userID}
	if start != "" {
		where.WriteString(" AND date >= ?")
		args = append(args, start)
	}
	if end != "" {
		where.WriteString(" AND date <= ?")
		args = append(args, end)
	}

	var rows []completionRow
	err := s.db.Select(&rows, "SELECT "+completionColumns+" FROM completions WHERE "+where.String()+" ORDER BY date, habit_id", args...)
	if err != nil {
		return nil, fmt.Errorf("listing completions by range: %w", err)
	}
	return completions(rows), nil
}

func (s *Store) AddCompletion(userID, habitID, date string) (habit.Completion, bool, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return habit.Completion{}, false, err
	}
	defer tx.Rollback()

	if _, err := getHabit(tx, userID, habitID); err != nil {
		return habit.Completion{}, false, err
	}

	c := habit.NewCompletion(userID, habitID, date, s.now())
	res, err := tx.Exec(`
		INSERT INTO completions (`+completionColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, habit_id, date) DO NOTHING`,
		c.ID, c.UserID, c.HabitID, c.Date, formatTime(c.CreatedAt),
	)
	if err != nil {
		return habit.Completion{}, false, fmt.Errorf("adding completion: %w", err)
	}
	created := true
	if n, _ := res.RowsAffected(); n == 0 {
		created = false
		var r completionRow
		err := tx.Get(&r, "SELECT "+completionColumns+" FROM completions WHERE user_id = ? AND habit_id = ? AND date = ?", userID, habitID, date)
		if err != nil {
			return habit.Completion{}, false, fmt.Errorf("reading existing completion: %w", err)
		}
		c = r.completion()
	}
	return c, created, tx.Commit()
}

func (s *Store) RemoveCompletion(userID, habitID, completionID string) error {
	res, err := s.db.Exec("DELETE FROM completions WHERE user_id = ? AND habit_id = ? AND id = ?", userID, habitID, completionID)
	if err != nil {
		return fmt.Errorf("removing completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) RemoveCompletionByDate(userID, habitID, date string) (habit.Completion, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return habit.Completion{}, err
	}
	defer tx.Rollback()

	var r completionRow
	err = tx.Get(&r, "SELECT "+completionColumns+" FROM completions WHERE user_id = ? AND habit_id = ? AND date = ?", userID, habitID, date)
	if err != nil {
		return habit.Completion{}, notFound(err)
	}
	if _, err := tx.Exec("DELETE FROM completions WHERE id = ?", r.ID); err != nil {
		return habit.Completion{}, fmt.Errorf("removing completion: %w", err)
	}
	return r.completion(), tx.Commit()
}

func (s *Store) CreateAccount(username, passwordHash string) (habit.Account, error) {
	a := habit.Account{
		ID:           "user_" + uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	res, err := s.db.Exec(`
		INSERT INTO accounts (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING`,
		a.ID, a.Username, a.PasswordHash, formatTime(a.CreatedAt),
	)
	if err != nil {
		return habit.Account{}, fmt.Errorf("creating account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return habit.Account{}, storage.ErrAccountExists
	}
	return a, nil
}

func (s *Store) GetAccountByUsername(username string) (habit.Account, error) {
	var r accountRow
	if err := s.db.Get(&r, "SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?", username); err != nil {
		return habit.Account{}, notFound(err)
	}
	return habit.Account{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    parseTime(r.CreatedAt),
	}, nil
}

func (s *Store) PutAPIKey(keyHash, userID string) error {
	_, err := s.db.Exec(`
		INSERT INTO api_keys (key_hash, user_id) VALUES (?, ?)
		ON CONFLICT (key_hash) DO UPDATE SET user_id = excluded.user_id`, keyHash, userID)
	return err
}

func (s *Store) GetAPIKey(keyHash string) (string, bool, error) {
	var userID string
	err := s.db.Get(&userID, "SELECT user_id FROM api_keys WHERE key_hash = ?", keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *Store) ListAPIKeyHashes(userID string) ([]string, error) {
	out := []string{}
	if err := s.db.Select(&out, "SELECT key_hash FROM api_keys WHERE user_id = ? ORDER BY key_hash", userID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteAPIKey(keyHash string) error {
	_, err := s.db.Exec("DELETE FROM api_keys WHERE key_hash = ?", keyHash)
	return err
}

var _ storage.Store = (*Store)(nil)
