// Package services contains remote catalog clients.
//
// The [Catalog] interface models the remote side of a sync: who owns
// which playlists and what tracks they currently contain. The sync
// engine treats the catalog as read-only and authoritative.
//
// The Spotify implementation authenticates with the client-credentials
// grant, paginates through the Web API, and rate-limits itself below
// Spotify's published request budget.
package services
