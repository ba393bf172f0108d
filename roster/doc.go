// Package roster defines the graduates, teams, and preferences over which
// allocation rounds operate, and the Store interface through which they're
// read and persisted.
//
// Store implementations live in sub-packages: sqlstore persists to a SQL
// database (SQLite or Postgres), and rostertest provides an in-memory Store
// for use in tests. CachedStore wraps any Store with an LRU cache of
// Preferences, and Fixture loads a roster from YAML.
package roster
