package contacts

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telekom/bulkmail/pkg/apperrors"
)

func newContactsDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.db")
	createContactsDB(t, path)
	return path
}

func createContactsDB(t *testing.T, path string) {
	t.Helper()
	db, err := sqlx.Open("sqlite3", readWriteDSN(path))
	require.NoError(t, err)
	defer db.Close()

	db.MustExec(`CREATE TABLE contacts(
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		score REAL,
		active INTEGER NOT NULL
	)`)
	db.MustExec(`INSERT INTO contacts(id, name, email, score, active) VALUES
		(1, 'Alice', 'a@x.com', 9.5, 1),
		(2, 'Bob', 'b@x.com', NULL, 1),
		(3, 'Carol', 'c@x.com', 7, 0),
		(4, 'Dave', NULL, 1.25, 1)`)
}

// readWriteDSN expects an absolute path, as t.TempDir returns.
func readWriteDSN(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path), RawQuery: "mode=rwc"}
	return u.String()
}

func TestSQLiteSource_DefaultQuerySelectsActiveContacts(t *testing.T) {
	src := NewSQLiteSource(newContactsDB(t), "", "email")
	assert.Equal(t, DefaultQuery, src.Query())

	it, err := src.Open(context.Background())
	require.NoError(t, err)
	got, err := Collect(it)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, Contact{"id": "1", "name": "Alice", "email": "a@x.com", "score": "9.5", "active": "1"}, got[0])
	assert.Equal(t, "", got[1]["score"], "NULL becomes empty string")
	assert.Equal(t, "", got[2].Email("email"))
}

func TestSQLiteSource_CustomQuery(t *testing.T) {
	src := NewSQLiteSource(newContactsDB(t), "SELECT name AS prenom, email FROM contacts ORDER BY id DESC", "email")

	it, err := src.Open(context.Background())
	require.NoError(t, err)
	got, err := Collect(it)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "Dave", got[0]["prenom"])
	assert.Equal(t, "Alice", got[3]["prenom"])
}

func TestSQLiteSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		query   string
		wantMsg string
	}{
		{
			name:    "missing database",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.db") },
			wantMsg: "open sqlite database",
		},
		{
			name:    "not a database",
			path:    func(t *testing.T) string { return writeFile(t, "junk.db", []byte("this is not sqlite, just some text padding it out")) },
			wantMsg: "junk.db",
		},
		{
			name:    "bad query",
			path:    newContactsDB,
			query:   "SELECT * FROM nowhere",
			wantMsg: "query contacts",
		},
		{
			name:    "no email column",
			path:    newContactsDB,
			query:   "SELECT name FROM contacts",
			wantMsg: `no "email" column`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSQLiteSource(tt.path(t), tt.query, "email").Open(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.KindSource), "expected SourceError, got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSQLiteSource_ReadOnly(t *testing.T) {
	path := newContactsDB(t)
	src := NewSQLiteSource(path, "DELETE FROM contacts RETURNING email", "email")
	it, err := src.Open(context.Background())
	if err == nil {
		_, err = Collect(it)
	}
	require.Error(t, err)

	it, err = NewSQLiteSource(path, "SELECT * FROM contacts", "email").Open(context.Background())
	require.NoError(t, err)
	got, err := Collect(it)
	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestSQLiteSource_CloseIsIdempotent(t *testing.T) {
	it, err := NewSQLiteSource(newContactsDB(t), "", "email").Open(context.Background())
	require.NoError(t, err)
	assert.True(t, it.Next())
	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	assert.False(t, it.Next())
}

func TestSQLiteSource_SpecialCharactersInPath(t *testing.T) {
	for _, name := range []string{"mailing#2.db", "what?.db", "100% opt-in.db", "list #3 ?draft.db"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, name)
			createContactsDB(t, path)

			it, err := NewSQLiteSource(path, "", "email").Open(context.Background())
			require.NoError(t, err)
			got, err := Collect(it)
			require.NoError(t, err)
			assert.Len(t, got, 3)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			var names []string
			for _, e := range entries {
				names = append(names, e.Name())
			}
			assert.Equal(t, []string{name}, names, "no other database file is created")
		})
	}
}

func TestReadOnlyDSN(t *testing.T) {
	dsn, err := readOnlyDSN("/data/a#b?.db")
	require.NoError(t, err)
	assert.Equal(t, "file:///data/a%23b%3F.db?mode=ro", dsn)

	wd, err := os.Getwd()
	require.NoError(t, err)
	dsn, err = readOnlyDSN("contacts.db")
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(wd, "contacts.db"))+"?mode=ro", dsn)
}

func TestSQLiteSource_RelativePath(t *testing.T) {
	dir := t.TempDir()
	createContactsDB(t, filepath.Join(dir, "contacts.db"))
	oldWD, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWD) })

	it, err := NewSQLiteSource("contacts.db", "", "email").Open(context.Background())
	require.NoError(t, err)
	got, err := Collect(it)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
