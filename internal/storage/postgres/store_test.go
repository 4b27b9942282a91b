package postgres

import "arbScope/internal/storage"

// The store is one of the record sinks behind the shared interface.
var _ storage.Storage = (*Store)(nil)
