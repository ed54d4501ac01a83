// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package contacts

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/telekom/bulkmail/pkg/apperrors"
)

// DefaultQuery selects the active rows of the contacts table.
const DefaultQuery = "SELECT * FROM contacts WHERE active = 1"

// SQLiteSource runs a query against a SQLite database file and turns every
// result row into a contact. The database is opened read-only.
type SQLiteSource struct {
	path       string
	query      string
	emailField string
}

func NewSQLiteSource(path, query, emailField string) *SQLiteSource {
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery
	}
	if emailField == "" {
		emailField = DefaultEmailField
	}
	return &SQLiteSource{path: path, query: query, emailField: emailField}
}

func (s *SQLiteSource) Describe() string { return "sqlite:" + s.path }

// Query returns the statement the source executes.
func (s *SQLiteSource) Query() string { return s.query }

// readOnlyDSN builds a SQLite URI for path. The path is made absolute, since
// a relative one would be read as the URI authority, and percent-encoded so
// that '#', '?' and '%' in file names stay part of the name.
func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro"}
	return u.String(), nil
}

func (s *SQLiteSource) Open(ctx context.Context) (Iterator, error) {
	// mode=ro refuses to create a missing file, but the error it gives is
	// vague, so check first.
	if _, err := os.Stat(s.path); err != nil {
		return nil, apperrors.Wrapf(apperrors.KindSource, err, "open sqlite database %s", s.path)
	}

	dsn, err := readOnlyDSN(s.path)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.KindSource, err, "resolve sqlite database path %s", s.path)
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.KindSource, err, "open sqlite database %s", s.path)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, apperrors.Wrapf(apperrors.KindSource, err, "connect to sqlite database %s", s.path)
	}

	rows, err := db.QueryxContext(ctx, s.query)
	if err != nil {
		_ = db.Close()
		return nil, apperrors.Wrapf(apperrors.KindSource, err, "query contacts from %s", s.path)
	}

	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = db.Close()
		return nil, apperrors.Wrap(apperrors.KindSource, err, "read query columns")
	}
	if !slices.Contains(columns, s.emailField) {
		_ = rows.Close()
		_ = db.Close()
		return nil, apperrors.Newf(apperrors.KindSource, "query result has no %q column (columns: %s)",
			s.emailField, strings.Join(columns, ", "))
	}

	return &sqliteIterator{db: db, rows: rows}, nil
}

type sqliteIterator struct {
	db      *sqlx.DB
	rows    *sqlx.Rows
	current Contact
	err     error
	closed  bool
}

func (it *sqliteIterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = apperrors.Wrap(apperrors.KindSource, err, "iterate contacts")
		}
		return false
	}

	row := make(map[string]interface{})
	if err := it.rows.MapScan(row); err != nil {
		it.err = apperrors.Wrap(apperrors.KindSource, err, "scan contact row")
		return false
	}

	c := make(Contact, len(row))
	for k, v := range row {
		c[k] = stringify(v)
	}
	it.current = c
	return true
}

func (it *sqliteIterator) Contact() Contact { return it.current }
func (it *sqliteIterator) Err() error       { return it.err }

func (it *sqliteIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	rowsErr := it.rows.Close()
	dbErr := it.db.Close()
	if rowsErr != nil {
		return errors.Wrap(rowsErr, "failed to close contact rows")
	}
	if dbErr != nil {
		return errors.Wrap(dbErr, "failed to close sqlite database")
	}
	return nil
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
