package contacts

import (
	"context"
	"strings"

	"github.com/telekom/bulkmail/pkg/apperrors"
	"github.com/telekom/bulkmail/pkg/config"
)

const (
	KindCSV    = "csv"
	KindSQLite = "sqlite"

	DefaultEmailField = "email"
)

// Contact holds one recipient's fields keyed by column name.
type Contact map[string]string

// Get returns the value of field and whether the contact has it.
func (c Contact) Get(field string) (string, bool) {
	v, ok := c[field]
	return v, ok
}

// Email returns the trimmed value of the email field, or "" when the
// contact does not carry one.
func (c Contact) Email(field string) string {
	if field == "" {
		field = DefaultEmailField
	}
	return strings.TrimSpace(c[field])
}

// Iterator walks a source one contact at a time. Next must be called before
// the first Contact. Err reports the error that stopped iteration, if any.
// Close releases the underlying file or database handle and is safe to call
// more than once.
type Iterator interface {
	Next() bool
	Contact() Contact
	Err() error
	Close() error
}

// Source opens an Iterator over its contacts.
type Source interface {
	Open(ctx context.Context) (Iterator, error)
	// Describe is a short human readable name for log lines.
	Describe() string
}

// New builds the source selected by cfg.Kind.
func New(cfg config.SourceConfig) (Source, error) {
	emailField := cfg.EmailField
	if emailField == "" {
		emailField = DefaultEmailField
	}
	switch cfg.Kind {
	case KindCSV:
		return NewCSVSource(cfg.Path, emailField, cfg.Encoding), nil
	case KindSQLite:
		return NewSQLiteSource(cfg.Path, cfg.Query, emailField), nil
	default:
		return nil, apperrors.Newf(apperrors.KindConfig, "unknown source kind %q (expected csv or sqlite)", cfg.Kind)
	}
}

// Collect drains it into a slice and closes it.
func Collect(it Iterator) ([]Contact, error) {
	defer it.Close()
	var out []Contact
	for it.Next() {
		out = append(out, it.Contact())
	}
	return out, it.Err()
}
