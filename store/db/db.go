// Package db dispatches store driver construction by configured backend.
package db

import (
	"github.com/pkg/errors"

	"github.com/lorekeep/lorekeep/internal/profile"
	"github.com/lorekeep/lorekeep/store"
	"github.com/lorekeep/lorekeep/store/db/postgres"
	"github.com/lorekeep/lorekeep/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on profile.
//
// PostgreSQL is the production backend: ranking happens in the database
// via pgvector. SQLite is supported for development and testing; vectors
// are stored as JSON and ranked in-process.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'postgres' and 'sqlite' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
