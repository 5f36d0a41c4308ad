// Package metadata stores the sealed operator session as key/value rows in
// the local SQLite database.
package metadata
