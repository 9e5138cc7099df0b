package ragask

import "errors"

var (
	// ErrUnknownStoreKind is returned when StoreConfig.Kind names no backend.
	ErrUnknownStoreKind = errors.New("unknown store kind")

	// ErrInvalidStoreConfig is returned when a store setting required by the
	// selected backend is missing.
	ErrInvalidStoreConfig = errors.New("invalid store config")

	// ErrNotRepository is returned when an operation needs full repository
	// access but the open store only supports search and insert.
	ErrNotRepository = errors.New("store does not support repository operations")

	// ErrSchemaUnsupported is returned when installing a schema on a store
	// that has none.
	ErrSchemaUnsupported = errors.New("store does not support schema installation")
)
