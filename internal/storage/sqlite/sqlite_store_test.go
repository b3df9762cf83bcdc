package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/brk3/habitboard/internal/storage"
	"github.com/brk3/habitboard/internal/storage/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "habits.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		return newTestStore(t)
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "habits.sqlite")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.Get(&version, "SELECT MAX(version) FROM schema_version"))
	assert.Equal(t, migrations[len(migrations)-1].version, version)

	var rows int
	require.NoError(t, s.db.Get(&rows, "SELECT COUNT(*) FROM schema_version"))
	assert.Equal(t, len(migrations), rows)
}

func TestUniqueCompletionPerDay(t *testing.T) {
	s := newTestStore(t)
	_, err := s.db.Exec(`INSERT INTO habits (id, user_id, name, created_at, updated_at) VALUES ('h1', 'alice', 'guitar', '', '')`)
	require.NoError(t, err)
	_, err = s.db.Exec(`INSERT INTO completions (id, user_id, habit_id, date, created_at) VALUES ('c1', 'alice', 'h1', '2024-03-01', '')`)
	require.NoError(t, err)

	_, err = s.db.Exec(`INSERT INTO completions (id, user_id, habit_id, date, created_at) VALUES ('c2', 'alice', 'h1', '2024-03-01', '')`)
	assert.Error(t, err, "schema must reject a second completion for the same day")
}
