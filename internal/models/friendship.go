package models

import (
	"time"

	"gorm.io/gorm"
)

// FriendshipStatus defines the state of a relationship between two users.
type FriendshipStatus string

const (
	// StatusPending means a friend request has been sent but not yet accepted.
	StatusPending FriendshipStatus = "pending"

	// StatusAccepted means the friend request was accepted, and the users are now friends.
	StatusAccepted FriendshipStatus = "accepted"

	// StatusDeclined is kept for wire compatibility. Declined requests are deleted, not stored.
	StatusDeclined FriendshipStatus = "declined"

	// StatusBlocked means the requester blocked the target.
	StatusBlocked FriendshipStatus = "blocked"
)

// Friendship represents the relationship between two users.
//
// RequesterID/TargetID keep the direction of the request. UserLowID/UserHighID
// hold the same pair in canonical order and carry the unique index, so only one
// row can ever exist for an unordered pair.
type Friendship struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RequesterID uint             `gorm:"not null;index" json:"requester_id"`
	TargetID    uint             `gorm:"not null;index" json:"target_id"`
	UserLowID   uint             `gorm:"not null;uniqueIndex:idx_friendship_pair" json:"-"`
	UserHighID  uint             `gorm:"not null;uniqueIndex:idx_friendship_pair" json:"-"`
	Status      FriendshipStatus `gorm:"type:varchar(20);not null" json:"status"`
	RequestedAt time.Time        `gorm:"not null" json:"requested_at"`
	AcceptedAt  *time.Time       `json:"accepted_at,omitempty"`
}

// PairKey returns the pair in canonical (low, high) order.
func PairKey(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// BeforeSave keeps the canonical pair in sync with the directed ids.
func (f *Friendship) BeforeSave(_ *gorm.DB) error {
	f.UserLowID, f.UserHighID = PairKey(f.RequesterID, f.TargetID)
	return nil
}

// Other returns the party of the friendship that is not userID.
func (f *Friendship) Other(userID uint) uint {
	if f.RequesterID == userID {
		return f.TargetID
	}
	return f.RequesterID
}

// Involves reports whether userID is one of the two parties.
func (f *Friendship) Involves(userID uint) bool {
	return f.RequesterID == userID || f.TargetID == userID
}
