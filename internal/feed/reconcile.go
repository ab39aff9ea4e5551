package feed

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"matchsocial/backend/internal/models"
)

// Drift is one post whose stored counters disagreed with its child rows.
type Drift struct {
	PostID         uint
	LikesCount     int
	ActualLikes    int
	CommentsCount  int
	ActualComments int
}

// Reconcile recounts every post's likes and comments and rewrites any counter
// that drifted. It returns the posts it corrected.
func (s *Store) Reconcile(ctx context.Context) ([]Drift, error) {
	var drifted []Drift
	err := s.db.WithContext(ctx).Raw(`
		SELECT p.id AS post_id,
		       p.likes_count,
		       (SELECT COUNT(*) FROM group_post_likes l WHERE l.post_id = p.id) AS actual_likes,
		       p.comments_count,
		       (SELECT COUNT(*) FROM group_post_comments c WHERE c.post_id = p.id) AS actual_comments
		FROM group_posts p`).
		Scan(&drifted).Error
	if err != nil {
		return nil, errors.Wrap(err, "feed.Reconcile.Scan")
	}

	out := drifted[:0]
	for _, d := range drifted {
		if d.LikesCount == d.ActualLikes && d.CommentsCount == d.ActualComments {
			continue
		}
		if err := s.repair(ctx, d.PostID); err != nil {
			return out, err
		}
		out = append(out, d)
	}
	return out, nil
}

// repair recounts under the post lock so concurrent toggles are not lost.
func (s *Store) repair(ctx context.Context, postID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		var likes, comments int64
		if err := tx.Model(&models.GroupPostLike{}).Where("post_id = ?", postID).Count(&likes).Error; err != nil {
			return errors.Wrap(err, "feed.repair.Likes")
		}
		if err := tx.Model(&models.GroupPostComment{}).Where("post_id = ?", postID).Count(&comments).Error; err != nil {
			return errors.Wrap(err, "feed.repair.Comments")
		}
		err := tx.Model(&models.GroupPost{}).Where("id = ?", postID).
			UpdateColumns(map[string]any{"likes_count": likes, "comments_count": comments}).Error
		return errors.Wrap(err, "feed.repair")
	})
}
