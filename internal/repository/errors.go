package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the
// repository. This abstracts away the underlying storage implementation
// (SQLite, Redis, in-memory) from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateID is returned when creating a session whose id already exists
// in the all-sessions collection.
var ErrDuplicateID = errors.New("session id already exists")
