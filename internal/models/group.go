package models

import "time"

// Group is a named community. The creator is always materialized as an
// approved admin membership row.
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatorID   uint      `gorm:"not null;index" json:"creator_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsPrivate   bool      `gorm:"not null;default:false" json:"is_private"`
	MaxMembers  *int      `json:"max_members,omitempty"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// GroupRole is a member's role within a single group.
type GroupRole string

const (
	RoleAdmin     GroupRole = "admin"
	RoleModerator GroupRole = "moderator"
	RoleMember    GroupRole = "member"
)

// Valid reports whether r is a known role.
func (r GroupRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

// MembershipStatus is the state of a membership row.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipApproved MembershipStatus = "approved"
	MembershipBlocked  MembershipStatus = "blocked"
)

// GroupMembership associates a user with a group. The composite primary key
// enforces one row per (group, user).
type GroupMembership struct {
	GroupID  uint             `gorm:"primaryKey" json:"group_id"`
	UserID   uint             `gorm:"primaryKey;index" json:"user_id"`
	Role     GroupRole        `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	Status   MembershipStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	JoinedAt *time.Time       `json:"joined_at,omitempty"`
}
