package storage

import pkgerrors "object-tracker/pkg/domain-errors"

var (
	// ErrNotFound keeps storage-specific 404s consistent across in-memory and
	// Postgres implementations.
	ErrNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "record not found")

	// ErrDuplicateExternalID surfaces the unique constraint on entity external
	// ids so the reconciler can recover from a lost create race.
	ErrDuplicateExternalID = pkgerrors.New(pkgerrors.CodeConflict, "record with this external id already exists")

	// ErrDuplicateName guards unique names (sources, type descriptors).
	ErrDuplicateName = pkgerrors.New(pkgerrors.CodeConflict, "record with this name already exists")
)
