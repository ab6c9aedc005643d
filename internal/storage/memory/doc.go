// Package memory provides the in-process session repository.
//
// Sessions live in a sharded concurrent map and are lost on restart. Use it
// for single-instance deployments and tests; the badger-backed store in
// package storage survives restarts.
package memory
