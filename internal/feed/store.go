// Package feed persists group posts, comments and likes.
//
// GroupPost.LikesCount and GroupPost.CommentsCount always equal the size of the
// post's like and comment sets. Every change to those sets runs in one
// transaction that first locks the post row, changes the child row, then moves
// the counter by exactly one. Reconcile repairs drift left by writes that went
// around this package.
package feed

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matchsocial/backend/internal/apperr"
	"matchsocial/backend/internal/models"
)

// Gate answers the membership questions every feed operation checks first.
type Gate interface {
	Group(ctx context.Context, groupID uint) (*models.Group, error)
	IsApprovedMember(ctx context.Context, userID, groupID uint) (bool, error)
	IsAdmin(ctx context.Context, userID, groupID uint) (bool, error)
	CanView(ctx context.Context, userID, groupID uint) (bool, error)
}

// PostInput carries a new post. Only admins may pin or announce.
type PostInput struct {
	Content      string
	Pinned       bool
	Announcement bool
}

// LikeResult is the state of a post's likes right after a toggle.
type LikeResult struct {
	PostID       uint
	GroupID      uint
	LikesCount   int
	LikedByActor bool
}

// CommentResult is the state of a post's comments right after a change.
type CommentResult struct {
	Comment       models.GroupPostComment
	GroupID       uint
	CommentsCount int
}

// PostView is a post as seen by one viewer.
type PostView struct {
	models.GroupPost
	LikedByMe bool `json:"liked_by_me"`
}

type Store struct {
	db   *gorm.DB
	gate Gate
	now  func() time.Time
}

func NewStore(db *gorm.DB, gate Gate) *Store {
	return &Store{db: db, gate: gate, now: time.Now}
}

// WithClock returns a copy of the store that reads time from now.
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, gate: s.gate, now: now}
}

func (s *Store) requireMember(ctx context.Context, userID, groupID uint) error {
	ok, err := s.gate.IsApprovedMember(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("approved group membership required")
	}
	return nil
}

func lockPost(tx *gorm.DB, postID uint) (*models.GroupPost, error) {
	var p models.GroupPost
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&p, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("post not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "feed.lockPost")
	}
	return &p, nil
}

// Post returns a post by id.
func (s *Store) Post(ctx context.Context, postID uint) (*models.GroupPost, error) {
	var p models.GroupPost
	err := s.db.WithContext(ctx).Take(&p, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("post not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "feed.Post")
	}
	return &p, nil
}

// livePost returns a post whose group is still active. Posts of an archived
// group are reported as missing.
func (s *Store) livePost(ctx context.Context, postID uint) (*models.GroupPost, error) {
	p, err := s.Post(ctx, postID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.Group(ctx, p.GroupID); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePost adds a post to the group feed. The author must be an approved member.
func (s *Store) CreatePost(ctx context.Context, userID, groupID uint, in PostInput) (*models.GroupPost, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.InvalidArg("post content is empty")
	}
	if _, err := s.gate.Group(ctx, groupID); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, userID, groupID); err != nil {
		return nil, err
	}
	if in.Pinned || in.Announcement {
		ok, err := s.gate.IsAdmin(ctx, userID, groupID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("only admins can pin or announce")
		}
	}

	p := &models.GroupPost{
		GroupID:        groupID,
		UserID:         userID,
		Content:        content,
		IsPinned:       in.Pinned,
		IsAnnouncement: in.Announcement,
		CreatedAt:      s.now(),
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, errors.Wrap(err, "feed.CreatePost")
	}
	return p, nil
}

// DeletePost removes a post with its comments and likes. The author or a
// group admin may delete it.
func (s *Store) DeletePost(ctx context.Context, actor, postID uint) (*models.GroupPost, error) {
	p, err := s.Post(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.UserID != actor {
		ok, err := s.gate.IsAdmin(ctx, actor, p.GroupID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("only the author or an admin can delete this post")
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.GroupPostLike{}).Error; err != nil {
			return errors.Wrap(err, "feed.DeletePost.Likes")
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.GroupPostComment{}).Error; err != nil {
			return errors.Wrap(err, "feed.DeletePost.Comments")
		}
		return errors.Wrap(tx.Delete(&models.GroupPost{}, postID).Error, "feed.DeletePost")
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ToggleLike flips userID's like on the post and returns the resulting count.
func (s *Store) ToggleLike(ctx context.Context, userID, postID uint) (*LikeResult, error) {
	p, err := s.livePost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, userID, p.GroupID); err != nil {
		return nil, err
	}

	res := &LikeResult{PostID: postID, GroupID: p.GroupID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}

		del := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.GroupPostLike{})
		if del.Error != nil {
			return errors.Wrap(del.Error, "feed.ToggleLike.Delete")
		}
		delta := -1
		if del.RowsAffected == 0 {
			like := models.GroupPostLike{PostID: postID, UserID: userID, CreatedAt: s.now()}
			if err := tx.Create(&like).Error; err != nil {
				return errors.Wrap(err, "feed.ToggleLike.Create")
			}
			delta = 1
			res.LikedByActor = true
		}

		if err := bumpCounter(tx, postID, "likes_count", delta); err != nil {
			return err
		}
		count, err := readCounter(tx, postID, "likes_count")
		res.LikesCount = count
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// AddComment appends a comment and moves comments_count in the same transaction.
func (s *Store) AddComment(ctx context.Context, userID, postID uint, content string) (*CommentResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.InvalidArg("comment content is empty")
	}
	p, err := s.livePost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, userID, p.GroupID); err != nil {
		return nil, err
	}

	res := &CommentResult{GroupID: p.GroupID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		res.Comment = models.GroupPostComment{
			PostID:    postID,
			UserID:    userID,
			Content:   content,
			CreatedAt: s.now(),
		}
		if err := tx.Create(&res.Comment).Error; err != nil {
			return errors.Wrap(err, "feed.AddComment.Create")
		}
		if err := bumpCounter(tx, postID, "comments_count", 1); err != nil {
			return err
		}
		count, err := readCounter(tx, postID, "comments_count")
		res.CommentsCount = count
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteComment removes a comment. The comment's author or a group admin may do it.
func (s *Store) DeleteComment(ctx context.Context, actor, commentID uint) (*CommentResult, error) {
	var c models.GroupPostComment
	err := s.db.WithContext(ctx).Take(&c, commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("comment not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "feed.DeleteComment.Take")
	}
	p, err := s.livePost(ctx, c.PostID)
	if err != nil {
		return nil, err
	}
	if c.UserID != actor {
		ok, err := s.gate.IsAdmin(ctx, actor, p.GroupID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("only the author or an admin can delete this comment")
		}
	}

	res := &CommentResult{Comment: c, GroupID: p.GroupID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, c.PostID); err != nil {
			return err
		}
		del := tx.Delete(&models.GroupPostComment{}, commentID)
		if del.Error != nil {
			return errors.Wrap(del.Error, "feed.DeleteComment")
		}
		if del.RowsAffected == 0 {
			// Lost a race with another delete of the same comment.
			return apperr.NotFound("comment not found")
		}
		if err := bumpCounter(tx, c.PostID, "comments_count", -1); err != nil {
			return err
		}
		count, err := readCounter(tx, c.PostID, "comments_count")
		res.CommentsCount = count
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func bumpCounter(tx *gorm.DB, postID uint, column string, delta int) error {
	err := tx.Model(&models.GroupPost{}).
		Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
	return errors.Wrap(err, "feed.bumpCounter")
}

func readCounter(tx *gorm.DB, postID uint, column string) (int, error) {
	var p models.GroupPost
	if err := tx.Select("id", column).Take(&p, postID).Error; err != nil {
		return 0, errors.Wrap(err, "feed.readCounter")
	}
	n := p.LikesCount
	if column == "comments_count" {
		n = p.CommentsCount
	}
	if n < 0 {
		return n, apperr.Invariant(column+" went negative", nil)
	}
	return n, nil
}

// LikeState reports whether userID currently likes the post.
func (s *Store) LikeState(ctx context.Context, userID, postID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.GroupPostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "feed.LikeState")
	}
	return n > 0, nil
}

// ListPosts returns the group feed for viewer: pinned posts first, then
// newest first, each flagged with whether viewer likes it.
func (s *Store) ListPosts(ctx context.Context, viewer, groupID uint) ([]PostView, error) {
	ok, err := s.gate.CanView(ctx, viewer, groupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("members only")
	}

	var posts []models.GroupPost
	err = s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("is_pinned DESC").Order("created_at DESC").Order("id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, errors.Wrap(err, "feed.ListPosts")
	}
	if len(posts) == 0 {
		return []PostView{}, nil
	}

	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	var liked []uint
	err = s.db.WithContext(ctx).Model(&models.GroupPostLike{}).
		Where("user_id = ? AND post_id IN ?", viewer, ids).
		Pluck("post_id", &liked).Error
	if err != nil {
		return nil, errors.Wrap(err, "feed.ListPosts.Likes")
	}
	likedSet := make(map[uint]struct{}, len(liked))
	for _, id := range liked {
		likedSet[id] = struct{}{}
	}

	out := make([]PostView, len(posts))
	for i, p := range posts {
		_, mine := likedSet[p.ID]
		out[i] = PostView{GroupPost: p, LikedByMe: mine}
	}
	return out, nil
}

// ListComments returns a post's comments oldest first.
func (s *Store) ListComments(ctx context.Context, viewer, postID uint) ([]models.GroupPostComment, error) {
	p, err := s.Post(ctx, postID)
	if err != nil {
		return nil, err
	}
	ok, err := s.gate.CanView(ctx, viewer, p.GroupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Forbidden("members only")
	}
	var out []models.GroupPostComment
	err = s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&out).Error
	return out, errors.Wrap(err, "feed.ListComments")
}
