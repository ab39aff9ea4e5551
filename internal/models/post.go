package models

import "time"

// GroupPost is a post in a group feed. LikesCount and CommentsCount are
// denormalized caches of the child row sets and are only changed in the
// transaction that changes those sets.
type GroupPost struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	GroupID        uint      `gorm:"not null;index" json:"group_id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsPinned       bool      `gorm:"not null;default:false" json:"is_pinned"`
	IsAnnouncement bool      `gorm:"not null;default:false" json:"is_announcement"`
	LikesCount     int       `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount  int       `gorm:"not null;default:0" json:"comments_count"`
	CreatedAt      time.Time `gorm:"not null;index" json:"created_at"`
}

// GroupPostComment is a comment on a post.
type GroupPostComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// GroupPostLike records that a user likes a post. Presence is the fact;
// the pair (PostID, UserID) is unique.
type GroupPostLike struct {
	PostID    uint      `gorm:"primaryKey" json:"post_id"`
	UserID    uint      `gorm:"primaryKey;index" json:"user_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}
