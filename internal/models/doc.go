// Package models defines domain entities and persistence interfaces for
// the spotsync playlist mirror.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing remote catalog data
//   - [Playlist] : Basic playlist metadata from the remote catalog
//   - [Track] : Song metadata keyed by the stable remote identity
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedTrack] : Cached track metadata for cache reconciliation
//
// Persistent entities implement the Model interface providing ID generation,
// timestamps, validation, and soft delete support. The Repository[T]
// interface defines standard CRUD operations for database access.
package models
