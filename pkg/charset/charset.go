// Package charset decodes contact files and templates that are not UTF-8.
package charset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const Default = "utf-8"

// ErrInvalidUTF8 is returned when input read as UTF-8 holds bytes that are
// not UTF-8.
var ErrInvalidUTF8 = errors.New("input is not valid UTF-8, set the file's encoding (e.g. --encoding latin1)")

func isUTF8(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// Lookup resolves an encoding name. The empty name means UTF-8.
func Lookup(name string) (encoding.Encoding, error) {
	if isUTF8(name) {
		// UTF8BOM drops a leading byte order mark, which spreadsheet
		// exports like to add to the header row.
		return unicode.UTF8BOM, nil
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// Valid reports whether name is an encoding Lookup understands.
func Valid(name string) bool {
	_, err := Lookup(name)
	return err == nil
}

// NewReader wraps r so that reads yield UTF-8. In UTF-8 mode invalid bytes
// fail the read with ErrInvalidUTF8 instead of turning into U+FFFD.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if !isUTF8(name) {
		return transform.NewReader(r, enc.NewDecoder()), nil
	}
	return &utf8Reader{r: transform.NewReader(r, transform.Chain(encoding.UTF8Validator, enc.NewDecoder()))}, nil
}

type utf8Reader struct {
	r io.Reader
}

func (u *utf8Reader) Read(p []byte) (int, error) {
	n, err := u.r.Read(p)
	if errors.Is(err, encoding.ErrInvalidUTF8) {
		err = ErrInvalidUTF8
	}
	return n, err
}

// ReadFile reads a whole file and returns its content as UTF-8.
func ReadFile(path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r, err := NewReader(f, name)
	if err != nil {
		return "", err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
