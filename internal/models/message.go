package models

import "time"

// Message is a direct message between two friends.
// ReadAt is set once by the receiver and never cleared.
type Message struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	SenderID   uint       `gorm:"not null;index:idx_message_pair" json:"sender_id"`
	ReceiverID uint       `gorm:"not null;index:idx_message_pair;index:idx_message_unread" json:"receiver_id"`
	Body       string     `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"created_at"`
	ReadAt     *time.Time `gorm:"index:idx_message_unread" json:"read_at,omitempty"`
}
