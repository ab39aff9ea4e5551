// Package relationship persists friendship requests and enforces the
// one-row-per-unordered-pair rule.
//
// Per pair the states are: none -> pending -> accepted, with decline/cancel
// returning a pending pair to none and unfriend returning an accepted pair to
// none. A blocked row sits outside that cycle until the blocker removes it.
package relationship

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matchsocial/backend/internal/apperr"
	"matchsocial/backend/internal/database"
	"matchsocial/backend/internal/models"
)

// Direction filters pending requests relative to the viewing user.
type Direction string

const (
	Incoming Direction = "incoming"
	Outgoing Direction = "outgoing"
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock returns a copy of the store that reads time from now.
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, now: now}
}

func pairScope(a, b uint) func(*gorm.DB) *gorm.DB {
	low, high := models.PairKey(a, b)
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_low_id = ? AND user_high_id = ?", low, high)
	}
}

// Request creates a pending request from requester to target.
//
// If any row already exists for the pair, in either direction, the existing
// row is returned together with an ALREADY_EXISTS error. A lost insert race
// against the unique pair index is reported the same way.
func (s *Store) Request(ctx context.Context, requester, target uint) (*models.Friendship, error) {
	if requester == target {
		return nil, apperr.InvalidArg("cannot send a friend request to yourself")
	}

	var existing models.Friendship
	err := s.db.WithContext(ctx).Scopes(pairScope(requester, target)).Take(&existing).Error
	switch {
	case err == nil:
		if existing.Status == models.StatusBlocked {
			return nil, apperr.Forbidden("relationship is blocked")
		}
		return &existing, apperr.AlreadyExists("relationship already exists")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errors.Wrap(err, "relationship.Request.Take")
	}

	f := &models.Friendship{
		RequesterID: requester,
		TargetID:    target,
		Status:      models.StatusPending,
		RequestedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		if database.IsDuplicate(err) {
			row, getErr := s.Get(ctx, requester, target)
			if getErr != nil {
				return nil, apperr.Invariant("duplicate pair without a readable row", getErr)
			}
			if row.Status == models.StatusBlocked {
				return nil, apperr.Forbidden("relationship is blocked")
			}
			return row, apperr.AlreadyExists("relationship already exists")
		}
		return nil, errors.Wrap(err, "relationship.Request.Create")
	}
	return f, nil
}

// Accept turns the pending request sent by requester to target into a
// friendship. Only the target of the request may accept it.
func (s *Store) Accept(ctx context.Context, target, requester uint) (*models.Friendship, error) {
	var f models.Friendship
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("requester_id = ? AND target_id = ? AND status = ?", requester, target, models.StatusPending).
			Take(&f).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("pending request not found")
		}
		if err != nil {
			return errors.Wrap(err, "relationship.Accept.Take")
		}

		now := s.now()
		f.Status = models.StatusAccepted
		f.AcceptedAt = &now
		if err := tx.Model(&f).Select("status", "accepted_at").Updates(&f).Error; err != nil {
			return errors.Wrap(err, "relationship.Accept.Update")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DeclineOrCancel removes the pending request between actor and other,
// whichever side sent it. It reports whether a row was removed.
func (s *Store) DeclineOrCancel(ctx context.Context, actor, other uint) (bool, error) {
	return s.deleteWithStatus(ctx, actor, other, models.StatusPending)
}

// Unfriend removes an accepted friendship. It reports whether a row was removed.
func (s *Store) Unfriend(ctx context.Context, actor, other uint) (bool, error) {
	return s.deleteWithStatus(ctx, actor, other, models.StatusAccepted)
}

func (s *Store) deleteWithStatus(ctx context.Context, a, b uint, status models.FriendshipStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Scopes(pairScope(a, b)).
		Where("status = ?", status).
		Delete(&models.Friendship{})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "relationship.delete")
	}
	return res.RowsAffected > 0, nil
}

// Block replaces any row for the pair with a blocked row owned by actor.
// A block already placed by other is kept and reported as FORBIDDEN.
func (s *Store) Block(ctx context.Context, actor, other uint) (*models.Friendship, error) {
	if actor == other {
		return nil, apperr.InvalidArg("cannot block yourself")
	}
	f := &models.Friendship{
		RequesterID: actor,
		TargetID:    other,
		Status:      models.StatusBlocked,
		RequestedAt: s.now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Friendship
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(pairScope(actor, other)).
			Take(&existing).Error
		switch {
		case err == nil:
			if existing.Status == models.StatusBlocked {
				if existing.RequesterID == other {
					return apperr.Forbidden("relationship is blocked")
				}
				*f = existing
				return nil
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return errors.Wrap(err, "relationship.Block.Take")
		}

		if err := tx.Scopes(pairScope(actor, other)).Delete(&models.Friendship{}).Error; err != nil {
			return errors.Wrap(err, "relationship.Block.Delete")
		}
		if err := tx.Create(f).Error; err != nil {
			return errors.Wrap(err, "relationship.Block.Create")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Unblock removes a block placed by actor. Blocks placed by the other party
// are left alone.
func (s *Store) Unblock(ctx context.Context, actor, other uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("requester_id = ? AND target_id = ? AND status = ?", actor, other, models.StatusBlocked).
		Delete(&models.Friendship{})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "relationship.Unblock")
	}
	return res.RowsAffected > 0, nil
}

// AreFriends reports whether a and b hold an accepted friendship, in either orientation.
func (s *Store) AreFriends(ctx context.Context, a, b uint) (bool, error) {
	if a == b {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Friendship{}).
		Scopes(pairScope(a, b)).
		Where("status = ?", models.StatusAccepted).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "relationship.AreFriends")
	}
	return count > 0, nil
}

// Get returns the row for the pair regardless of direction.
func (s *Store) Get(ctx context.Context, a, b uint) (*models.Friendship, error) {
	var f models.Friendship
	err := s.db.WithContext(ctx).Scopes(pairScope(a, b)).Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("relationship not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "relationship.Get")
	}
	return &f, nil
}

// ListFriends returns the accepted friendships of user, most recent first.
func (s *Store) ListFriends(ctx context.Context, user uint) ([]models.Friendship, error) {
	var out []models.Friendship
	err := s.db.WithContext(ctx).
		Where("(requester_id = ? OR target_id = ?) AND status = ?", user, user, models.StatusAccepted).
		Order("accepted_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "relationship.ListFriends")
	}
	return out, nil
}

// ListPending returns pending requests addressed to user (Incoming) or sent by user (Outgoing).
func (s *Store) ListPending(ctx context.Context, user uint, dir Direction) ([]models.Friendship, error) {
	query := s.db.WithContext(ctx).Where("status = ?", models.StatusPending)
	switch dir {
	case Incoming:
		query = query.Where("target_id = ?", user)
	case Outgoing:
		query = query.Where("requester_id = ?", user)
	default:
		return nil, apperr.InvalidArg("direction must be incoming or outgoing")
	}

	var out []models.Friendship
	if err := query.Order("requested_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, errors.Wrap(err, "relationship.ListPending")
	}
	return out, nil
}
