// Package engine implements referential integrity and cascading mutation
// for the refgraph entity store.
//
// ARCHITECTURE:
//
// Components:
//   - Resolver: read-only reference checks (exists, owner exists, is subscribed)
//   - Relations: subscribe/unsubscribe over the subscriber's id set
//   - Cascade: deleteAccount (posts, profile, account, then edge purge)
//   - Engine: the operation surface; validation, locking, journaling, metrics
//
// None of the components hold record state; the store owns every record.
//
// Locking:
// The store makes each single-record operation atomic. Multi-step operations
// (subscribe, unsubscribe, the cascade) are serialized by Engine's write lock,
// which closes the race between deleteAccount(A) and subscribe(B, A): the
// subscribe either runs first and its edge is purged, or runs after and fails
// with INVALID_REFERENCE.
//
// Errors:
// Domain failures are *Error values (NOT_FOUND, INVALID_REFERENCE,
// EDGE_NOT_FOUND, VALIDATION, PROFILE_EXISTS). Cascade dependents are
// best-effort: failures are collected in CascadeReport.Failures and the
// journal entry lists them as "failed:kind:id". Nothing is rolled back.
package engine
