// Package membership persists groups, join requests, approvals and roles.
//
// The creator of a group is written as an approved admin membership row in the
// same transaction that creates the group, and that row can never be removed or
// demoted. "Is admin" is therefore answered from membership rows alone.
package membership

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matchsocial/backend/internal/apperr"
	"matchsocial/backend/internal/database"
	"matchsocial/backend/internal/models"
)

// GroupInput carries the attributes of a new group.
type GroupInput struct {
	Name        string
	Description string
	IsPrivate   bool
	MaxMembers  *int
}

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

// CreateGroup persists a group and its creator's admin membership.
func (s *Store) CreateGroup(ctx context.Context, creator uint, in GroupInput) (*models.Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.InvalidArg("group name is required")
	}
	if in.MaxMembers != nil && *in.MaxMembers < 1 {
		return nil, apperr.InvalidArg("max_members must be at least 1")
	}

	g := &models.Group{
		CreatorID:   creator,
		Name:        name,
		Description: in.Description,
		IsPrivate:   in.IsPrivate,
		MaxMembers:  in.MaxMembers,
		IsActive:    true,
		CreatedAt:   s.now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return errors.Wrap(err, "membership.CreateGroup.Group")
		}
		joined := g.CreatedAt
		owner := models.GroupMembership{
			GroupID:  g.ID,
			UserID:   creator,
			Role:     models.RoleAdmin,
			Status:   models.MembershipApproved,
			JoinedAt: &joined,
		}
		if err := tx.Create(&owner).Error; err != nil {
			return errors.Wrap(err, "membership.CreateGroup.Owner")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Group returns an active group.
func (s *Store) Group(ctx context.Context, groupID uint) (*models.Group, error) {
	return activeGroup(s.db.WithContext(ctx), groupID, false)
}

// SetActive archives or restores a group. Only admins may do it.
func (s *Store) SetActive(ctx context.Context, admin, groupID uint, active bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g models.Group
		if err := tx.Take(&g, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("group not found")
			}
			return errors.Wrap(err, "membership.SetActive.Take")
		}
		if err := requireAdmin(tx, admin, &g); err != nil {
			return err
		}
		return errors.Wrap(tx.Model(&g).Update("is_active", active).Error, "membership.SetActive")
	})
}

func activeGroup(db *gorm.DB, groupID uint, lock bool) (*models.Group, error) {
	var g models.Group
	if lock {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := db.Where("id = ? AND is_active = ?", groupID, true).Take(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("group not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "membership.group")
	}
	return &g, nil
}

func membershipRow(db *gorm.DB, groupID, userID uint) (*models.GroupMembership, error) {
	var m models.GroupMembership
	err := db.Where("group_id = ? AND user_id = ?", groupID, userID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "membership.row")
	}
	return &m, nil
}

func approvedCount(db *gorm.DB, groupID uint) (int64, error) {
	var n int64
	err := db.Model(&models.GroupMembership{}).
		Where("group_id = ? AND status = ?", groupID, models.MembershipApproved).
		Count(&n).Error
	return n, errors.Wrap(err, "membership.approvedCount")
}

func checkCapacity(db *gorm.DB, g *models.Group) error {
	if g.MaxMembers == nil {
		return nil
	}
	n, err := approvedCount(db, g.ID)
	if err != nil {
		return err
	}
	if n >= int64(*g.MaxMembers) {
		return apperr.GroupFull("group has reached its member limit")
	}
	return nil
}

func isAdmin(db *gorm.DB, userID uint, g *models.Group) (bool, error) {
	if g.CreatorID == userID {
		return true, nil
	}
	m, err := membershipRow(db, g.ID, userID)
	if err != nil || m == nil {
		return false, err
	}
	return m.Role == models.RoleAdmin && m.Status == models.MembershipApproved, nil
}

func requireAdmin(db *gorm.DB, userID uint, g *models.Group) error {
	ok, err := isAdmin(db, userID, g)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("group admin rights required")
	}
	return nil
}

// Join adds user to the group: approved at once for public groups, pending
// for private ones. If a pending row already exists it is returned unchanged
// and created is false.
func (s *Store) Join(ctx context.Context, userID, groupID uint) (m *models.GroupMembership, created bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID, true)
		if err != nil {
			return err
		}
		existing, err := membershipRow(tx, groupID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case models.MembershipApproved:
				return apperr.AlreadyMember("already a member of this group")
			case models.MembershipBlocked:
				return apperr.Forbidden("you are blocked from this group")
			default:
				m = existing
				return nil
			}
		}
		if err := checkCapacity(tx, g); err != nil {
			return err
		}

		m = &models.GroupMembership{
			GroupID: groupID,
			UserID:  userID,
			Role:    models.RoleMember,
			Status:  models.MembershipPending,
		}
		if !g.IsPrivate {
			now := s.now()
			m.Status = models.MembershipApproved
			m.JoinedAt = &now
		}
		if err := tx.Create(m).Error; err != nil {
			return errors.Wrap(err, "membership.Join.Create")
		}
		created = true
		return nil
	})
	if database.IsDuplicate(err) {
		// A concurrent join for the same user won the insert.
		row, rowErr := membershipRow(s.db.WithContext(ctx), groupID, userID)
		if rowErr != nil || row == nil {
			return nil, false, apperr.Invariant("duplicate membership without a readable row", rowErr)
		}
		if row.Status == models.MembershipApproved {
			return nil, false, apperr.AlreadyMember("already a member of this group")
		}
		return row, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return m, created, nil
}

// Approve accepts a pending join request. Only admins may approve.
func (s *Store) Approve(ctx context.Context, admin, groupID, userID uint) (*models.GroupMembership, error) {
	var m *models.GroupMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID, true)
		if err != nil {
			return err
		}
		if err := requireAdmin(tx, admin, g); err != nil {
			return err
		}
		m, err = membershipRow(tx, groupID, userID)
		if err != nil {
			return err
		}
		if m == nil || m.Status != models.MembershipPending {
			return apperr.NotFound("pending join request not found")
		}
		if err := checkCapacity(tx, g); err != nil {
			return err
		}

		now := s.now()
		m.Status = models.MembershipApproved
		m.JoinedAt = &now
		err = tx.Model(&models.GroupMembership{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Updates(map[string]any{"status": m.Status, "joined_at": now}).Error
		return errors.Wrap(err, "membership.Approve.Update")
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Leave removes userID's own membership. The creator cannot leave.
// It reports whether a row was removed.
func (s *Store) Leave(ctx context.Context, userID, groupID uint) (bool, error) {
	var removed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var g models.Group
		if err := tx.Take(&g, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("group not found")
			}
			return errors.Wrap(err, "membership.Leave.Group")
		}
		if g.CreatorID == userID {
			return apperr.Forbidden("the creator cannot leave the group")
		}
		res := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMembership{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "membership.Leave.Delete")
		}
		removed = res.RowsAffected > 0
		return nil
	})
	return removed, err
}

// Remove deletes target's membership, whatever its status. Rejecting a
// pending request is a Remove. Only admins may remove, and never the creator.
func (s *Store) Remove(ctx context.Context, admin, groupID, target uint) (bool, error) {
	var removed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID, false)
		if err != nil {
			return err
		}
		if err := requireAdmin(tx, admin, g); err != nil {
			return err
		}
		if g.CreatorID == target {
			return apperr.Forbidden("the creator cannot be removed")
		}
		res := tx.Where("group_id = ? AND user_id = ?", groupID, target).Delete(&models.GroupMembership{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "membership.Remove.Delete")
		}
		removed = res.RowsAffected > 0
		return nil
	})
	return removed, err
}

// Ban marks target as blocked in the group, creating the row if needed.
// A banned user cannot join again until removed.
func (s *Store) Ban(ctx context.Context, admin, groupID, target uint) (*models.GroupMembership, error) {
	var m *models.GroupMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID, false)
		if err != nil {
			return err
		}
		if err := requireAdmin(tx, admin, g); err != nil {
			return err
		}
		if g.CreatorID == target {
			return apperr.Forbidden("the creator cannot be banned")
		}
		m = &models.GroupMembership{
			GroupID: groupID,
			UserID:  target,
			Role:    models.RoleMember,
			Status:  models.MembershipBlocked,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{"status": models.MembershipBlocked, "role": models.RoleMember, "joined_at": nil}),
		}).Create(m).Error
		return errors.Wrap(err, "membership.Ban")
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SetRole changes an approved member's role. The creator's role is fixed.
func (s *Store) SetRole(ctx context.Context, admin, groupID, target uint, role models.GroupRole) (*models.GroupMembership, error) {
	if !role.Valid() {
		return nil, apperr.InvalidArg("unknown role")
	}
	var m *models.GroupMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		g, err := activeGroup(tx, groupID, false)
		if err != nil {
			return err
		}
		if err := requireAdmin(tx, admin, g); err != nil {
			return err
		}
		if g.CreatorID == target {
			return apperr.Forbidden("the creator's role cannot change")
		}
		m, err = membershipRow(tx, groupID, target)
		if err != nil {
			return err
		}
		if m == nil || m.Status != models.MembershipApproved {
			return apperr.NotFound("member not found")
		}
		m.Role = role
		err = tx.Model(&models.GroupMembership{}).
			Where("group_id = ? AND user_id = ?", groupID, target).
			Update("role", role).Error
		return errors.Wrap(err, "membership.SetRole")
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// IsApprovedMember reports whether userID holds an approved row in the group.
func (s *Store) IsApprovedMember(ctx context.Context, userID, groupID uint) (bool, error) {
	m, err := membershipRow(s.db.WithContext(ctx), groupID, userID)
	if err != nil || m == nil {
		return false, err
	}
	return m.Status == models.MembershipApproved, nil
}

// IsAdmin reports whether userID is the creator or an approved admin.
func (s *Store) IsAdmin(ctx context.Context, userID, groupID uint) (bool, error) {
	g, err := activeGroup(s.db.WithContext(ctx), groupID, false)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return isAdmin(s.db.WithContext(ctx), userID, g)
}

// CanView reports whether userID may read the group's feed and roster.
// Public groups are readable by anyone; private groups only by approved members.
func (s *Store) CanView(ctx context.Context, userID, groupID uint) (bool, error) {
	g, err := s.Group(ctx, groupID)
	if err != nil {
		return false, err
	}
	if !g.IsPrivate {
		return true, nil
	}
	return s.IsApprovedMember(ctx, userID, groupID)
}

// ApprovedCount returns the number of approved members, the creator included.
func (s *Store) ApprovedCount(ctx context.Context, groupID uint) (int64, error) {
	return approvedCount(s.db.WithContext(ctx), groupID)
}

// ListMembers returns approved members in join order.
func (s *Store) ListMembers(ctx context.Context, viewer, groupID uint) ([]models.GroupMembership, error) {
	ok, err := s.CanView(ctx, viewer, groupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("members only")
	}
	var out []models.GroupMembership
	err = s.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, models.MembershipApproved).
		Order("joined_at ASC").Order("user_id ASC").
		Find(&out).Error
	return out, errors.Wrap(err, "membership.ListMembers")
}

// ListPending returns join requests awaiting approval. Admins only.
func (s *Store) ListPending(ctx context.Context, admin, groupID uint) ([]models.GroupMembership, error) {
	g, err := s.Group(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if err := requireAdmin(s.db.WithContext(ctx), admin, g); err != nil {
		return nil, err
	}
	var out []models.GroupMembership
	err = s.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, models.MembershipPending).
		Order("user_id ASC").
		Find(&out).Error
	return out, errors.Wrap(err, "membership.ListPending")
}
