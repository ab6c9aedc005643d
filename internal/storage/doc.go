// Package storage persists NoCSRF sessions in an embedded Badger database.
//
// BadgerEngine owns the database handle, its value-log GC loop and the
// size gauges exported to Prometheus. SessionStore layers the session
// repository on top: one JSON record per session, optionally sealed with
// an AEAD cipher from pkg/crypto/adaptive, with Badger's per-entry TTL
// doing most of the expiry work.
//
// The in-process alternative lives in the memory subpackage.
package storage
