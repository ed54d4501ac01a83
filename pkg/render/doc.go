// Package render personalises subject and body templates for one contact.
//
// Placeholders have the form {{ field_name }} and may pipe the value through
// sprig helpers, e.g. {{ name | title }} or {{ city | default "Paris" }}.
// Values are inserted verbatim; HTML bodies are not escaped.
package render
