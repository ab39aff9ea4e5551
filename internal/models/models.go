// Package models holds the persisted entities of the social core.
package models

// All lists every entity for auto-migration.
func All() []any {
	return []any{
		&Friendship{},
		&Message{},
		&Group{},
		&GroupMembership{},
		&GroupPost{},
		&GroupPostComment{},
		&GroupPostLike{},
	}
}
