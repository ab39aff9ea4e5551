// Package conversation persists direct messages between friends and their
// read state.
package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"matchsocial/backend/internal/apperr"
	"matchsocial/backend/internal/models"
)

// FriendChecker answers whether two users hold an accepted friendship.
type FriendChecker interface {
	AreFriends(ctx context.Context, a, b uint) (bool, error)
}

type Store struct {
	db      *gorm.DB
	friends FriendChecker
	now     func() time.Time
}

func NewStore(db *gorm.DB, friends FriendChecker) *Store {
	return &Store{db: db, friends: friends, now: time.Now}
}

// WithClock returns a copy of the store that reads time from now.
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, friends: s.friends, now: now}
}

// Send persists a message from sender to receiver. Non-friends are rejected
// with FORBIDDEN before anything is written.
func (s *Store) Send(ctx context.Context, sender, receiver uint, body string) (*models.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperr.InvalidArg("message body is empty")
	}
	ok, err := s.friends.AreFriends(ctx, sender, receiver)
	if err != nil {
		return nil, errors.Wrap(err, "conversation.Send.AreFriends")
	}
	if !ok {
		return nil, apperr.Forbidden("you can only message friends")
	}

	m := &models.Message{
		SenderID:   sender,
		ReceiverID: receiver,
		Body:       body,
		CreatedAt:  s.now(),
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, errors.Wrap(err, "conversation.Send.Create")
	}
	return m, nil
}

// MarkRead stamps every unread message from sender to receiver. Messages that
// are already read keep their original read time. It returns the number of
// messages it stamped and the time used.
func (s *Store) MarkRead(ctx context.Context, receiver, sender uint) (int64, time.Time, error) {
	now := s.now()
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND read_at IS NULL", receiver, sender).
		Update("read_at", now)
	if res.Error != nil {
		return 0, time.Time{}, errors.Wrap(res.Error, "conversation.MarkRead")
	}
	return res.RowsAffected, now, nil
}

// Conversation returns every message between a and b in canonical order:
// created_at ascending, ties broken by id.
func (s *Store) Conversation(ctx context.Context, a, b uint) ([]models.Message, error) {
	var out []models.Message
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "conversation.Conversation")
	}
	return out, nil
}

// UnreadCount counts messages addressed to user that have not been read.
func (s *Store) UnreadCount(ctx context.Context, user uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND read_at IS NULL", user).
		Count(&n).Error
	if err != nil {
		return 0, errors.Wrap(err, "conversation.UnreadCount")
	}
	return n, nil
}

// UnreadFrom counts unread messages addressed to user, grouped by sender.
func (s *Store) UnreadFrom(ctx context.Context, user uint) (map[uint]int64, error) {
	var rows []struct {
		SenderID uint
		Count    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND read_at IS NULL", user).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "conversation.UnreadFrom")
	}
	out := make(map[uint]int64, len(rows))
	for _, r := range rows {
		out[r.SenderID] = r.Count
	}
	return out, nil
}

// Delete hard-deletes a message. Either party may delete it.
func (s *Store) Delete(ctx context.Context, actor, messageID uint) (*models.Message, error) {
	var m models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND (sender_id = ? OR receiver_id = ?)", messageID, actor, actor).Take(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("message not found")
		}
		if err != nil {
			return errors.Wrap(err, "conversation.Delete.Take")
		}
		if err := tx.Delete(&m).Error; err != nil {
			return errors.Wrap(err, "conversation.Delete")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}
