// Package database opens and supervises Bun connections for mysql, postgres
// and sqlite, creates the registered tables, applies versioned migration
// steps and maps driver errors onto docerr causes.
package database
