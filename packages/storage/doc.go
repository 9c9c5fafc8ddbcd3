// Package storage provides the persistence backends of the session stores and the
// dispatch history: JSON files, SQLite and memory.
package storage
