// Package stores provides the run-history persistence layer backed by
// SQLite. Schema changes are applied through embedded migrations.
package stores
