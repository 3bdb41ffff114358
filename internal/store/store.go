// Package store defines the persistence interfaces for the bot. The only
// durable state is the per-chat activation flag; there are standalone
// (sqlite) and managed (Postgres) backends.
package store

import "context"

// ActivationStore is the per-chat on/off flag. A chat with no recorded row
// is active: the bot starts describing media as soon as it can see it, and
// /stop records the opt-out.
type ActivationStore interface {
	// IsActive reports whether the bot should process media in chatID.
	// Backend errors degrade to inactive so a broken store never causes
	// surprise replies in opted-out chats.
	IsActive(ctx context.Context, chatID int64) bool

	Activate(ctx context.Context, chatID int64) error
	Deactivate(ctx context.Context, chatID int64) error

	Close() error
}
