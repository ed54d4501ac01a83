// Package contacts loads mail recipients from a CSV file or a SQLite database.
//
// Sources are opened once per run and read lazily through an Iterator, in
// the order the rows appear in the file or query result. Every contact is a
// flat map from column name to value.
package contacts
