package render

import (
	"bytes"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/telekom/bulkmail/pkg/apperrors"
	"github.com/telekom/bulkmail/pkg/charset"
)

// placeholderRE matches {{ field }} and {{ field | fn args... }}, with the
// optional "{{- " and " -}}" trim markers. Anything else between braces,
// such as {{ if ... }}, is left to text/template.
var placeholderRE = regexp.MustCompile(`\{\{(-\s)?\s*([A-Za-z_][A-Za-z0-9_\-]*?)\s*((?:\|[^{}]*?)?)(\s-)?\}\}`)

var headerNewlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Templates holds the raw template sources. Text is optional.
type Templates struct {
	Subject string
	HTML    string
	Text    string
}

type Options struct {
	// Strict fails a contact that lacks a field referenced by a placeholder.
	// Otherwise missing fields render as the empty string.
	Strict bool
}

// Message is the personalised result for one contact.
type Message struct {
	Subject  string `json:"subject" yaml:"subject"`
	HTMLBody string `json:"htmlBody" yaml:"htmlBody"`
	TextBody string `json:"textBody,omitempty" yaml:"textBody,omitempty"`
}

// Renderer is safe for repeated use; Render has no side effects.
type Renderer struct {
	subject *template.Template
	html    *template.Template
	text    *template.Template
	fields  []string
	strict  bool
}

// New parses the templates. A parse error is a RenderError and means no
// contact can be rendered.
func New(t Templates, opts Options) (*Renderer, error) {
	r := &Renderer{strict: opts.Strict}
	seen := map[string]struct{}{}

	var err error
	if r.subject, err = parse("subject", t.Subject, seen); err != nil {
		return nil, err
	}
	if r.html, err = parse("html", t.HTML, seen); err != nil {
		return nil, err
	}
	if t.Text != "" {
		if r.text, err = parse("text", t.Text, seen); err != nil {
			return nil, err
		}
	}

	for f := range seen {
		r.fields = append(r.fields, f)
	}
	sort.Strings(r.fields)
	return r, nil
}

// Fields lists the contact fields referenced by any template, sorted.
func (r *Renderer) Fields() []string {
	return append([]string(nil), r.fields...)
}

// Render substitutes the contact's fields into every template.
func (r *Renderer) Render(contact map[string]string) (Message, error) {
	if r.strict {
		var missing []string
		for _, f := range r.fields {
			if _, ok := contact[f]; !ok {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return Message{}, apperrors.Newf(apperrors.KindRender, "contact has no value for %s", strings.Join(missing, ", "))
		}
	}

	var (
		msg Message
		err error
	)
	if msg.Subject, err = execute(r.subject, contact); err != nil {
		return Message{}, err
	}
	// Header values must stay on one line.
	msg.Subject = headerNewlines.Replace(msg.Subject)
	if msg.HTMLBody, err = execute(r.html, contact); err != nil {
		return Message{}, err
	}
	if r.text != nil {
		if msg.TextBody, err = execute(r.text, contact); err != nil {
			return Message{}, err
		}
	}
	return msg, nil
}

// LoadFile reads a template file in the given encoding.
func LoadFile(path, encoding string) (string, error) {
	content, err := charset.ReadFile(path, encoding)
	if err != nil {
		return "", apperrors.Wrapf(apperrors.KindConfig, err, "load template %s", path)
	}
	return content, nil
}

// translate rewrites {{ field | f }} into {{ index . "field" | f }}, keeping
// trim markers, and records every referenced field.
func translate(src string, seen map[string]struct{}) string {
	return placeholderRE.ReplaceAllStringFunc(src, func(m string) string {
		sub := placeholderRE.FindStringSubmatch(m)
		field, pipeline := sub[2], strings.TrimSpace(sub[3])
		if isKeyword(field) {
			return m
		}
		seen[field] = struct{}{}
		open, closing := "{{ ", " }}"
		if sub[1] != "" {
			open = "{{- "
		}
		if sub[4] != "" {
			closing = " -}}"
		}
		if pipeline == "" {
			return open + "index . " + strconv.Quote(field) + closing
		}
		return open + "index . " + strconv.Quote(field) + " " + pipeline + closing
	})
}

func parse(name, src string, seen map[string]struct{}) (*template.Template, error) {
	t, err := template.New(name).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=zero").
		Parse(translate(src, seen))
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.KindRender, err, "parse %s template", name)
	}
	return t, nil
}

func execute(t *template.Template, contact map[string]string) (string, error) {
	if contact == nil {
		contact = map[string]string{}
	}
	var b bytes.Buffer
	if err := t.Execute(&b, contact); err != nil {
		return "", apperrors.Wrapf(apperrors.KindRender, err, "execute %s template", t.Name())
	}
	return b.String(), nil
}

// Words that start template actions rather than name a field.
var keywords = map[string]struct{}{
	"if": {}, "else": {}, "end": {}, "range": {}, "with": {}, "define": {},
	"template": {}, "block": {}, "break": {}, "continue": {}, "nil": {},
	"true": {}, "false": {},
}

func isKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}
