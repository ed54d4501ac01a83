package contacts

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/telekom/bulkmail/pkg/apperrors"
	"github.com/telekom/bulkmail/pkg/charset"
)

// CSVSource reads contacts from a CSV file whose first row names the fields.
type CSVSource struct {
	path       string
	emailField string
	encoding   string
}

func NewCSVSource(path, emailField, encoding string) *CSVSource {
	if emailField == "" {
		emailField = DefaultEmailField
	}
	return &CSVSource{path: path, emailField: emailField, encoding: encoding}
}

func (s *CSVSource) Describe() string { return "csv:" + s.path }

// Open reads the header row and checks that the email column is present.
func (s *CSVSource) Open(ctx context.Context) (Iterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.KindSource, err, "open csv file %s", s.path)
	}
	r, err := charset.NewReader(f, s.encoding)
	if err != nil {
		_ = f.Close()
		return nil, apperrors.Wrapf(apperrors.KindSource, err, "decode csv file %s", s.path)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		_ = f.Close()
		return nil, apperrors.Newf(apperrors.KindSource, "csv file %s has no header row", s.path)
	}
	if err != nil {
		_ = f.Close()
		return nil, apperrors.Wrapf(apperrors.KindSource, err, "read csv header of %s", s.path)
	}

	hasEmail := false
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == s.emailField {
			hasEmail = true
		}
	}
	if !hasEmail {
		_ = f.Close()
		return nil, apperrors.Newf(apperrors.KindSource, "csv file %s has no %q column (columns: %s)",
			s.path, s.emailField, strings.Join(header, ", "))
	}

	return &csvIterator{file: f, reader: cr, header: header, path: s.path}, nil
}

type csvIterator struct {
	file    *os.File
	reader  *csv.Reader
	header  []string
	path    string
	current Contact
	err     error
	done    bool
}

func (it *csvIterator) Next() bool {
	if it.done {
		return false
	}
	record, err := it.reader.Read()
	if err != nil {
		it.done = true
		if err != io.EOF {
			it.err = apperrors.Wrapf(apperrors.KindSource, err, "read csv file %s", it.path)
		}
		return false
	}

	c := make(Contact, len(it.header))
	for i, name := range it.header {
		if i < len(record) {
			c[name] = record[i]
		} else {
			c[name] = ""
		}
	}
	it.current = c
	return true
}

func (it *csvIterator) Contact() Contact { return it.current }
func (it *csvIterator) Err() error       { return it.err }

func (it *csvIterator) Close() error {
	it.done = true
	if it.file == nil {
		return nil
	}
	err := it.file.Close()
	it.file = nil
	return err
}
