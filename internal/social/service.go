// Package social is the single write path of the application. Every mutation
// runs against its store first; an event is published only once the store
// call returned successfully, and delivery never affects the result.
package social

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"matchsocial/backend/internal/apperr"
	"matchsocial/backend/internal/conversation"
	"matchsocial/backend/internal/events"
	"matchsocial/backend/internal/feed"
	"matchsocial/backend/internal/membership"
	"matchsocial/backend/internal/models"
	"matchsocial/backend/internal/relationship"
)

// Publisher is the fan-out sink. hub.Hub satisfies it.
type Publisher interface {
	Publish(channel string, ev events.Event)
}

// Service composes the stores. Read-only calls go to the exported stores
// directly; mutations go through the methods below.
type Service struct {
	Relationships *relationship.Store
	Conversations *conversation.Store
	Members       *membership.Store
	Feed          *feed.Store

	pub Publisher
	log *slog.Logger
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock makes every store read time from now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New(db *gorm.DB, pub Publisher, log *slog.Logger, opts ...Option) *Service {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	rel := relationship.NewStore(db).WithClock(o.now)
	members := membership.NewStore(db).WithClock(o.now)
	return &Service{
		Relationships: rel,
		Conversations: conversation.NewStore(db, rel).WithClock(o.now),
		Members:       members,
		Feed:          feed.NewStore(db, members).WithClock(o.now),
		pub:           pub,
		log:           log,
	}
}

func (s *Service) toUsers(ev events.Event, users ...uint) {
	for _, u := range users {
		s.pub.Publish(events.UserChannel(u), ev)
	}
}

func (s *Service) toGroup(groupID uint, ev events.Event) {
	s.pub.Publish(events.GroupChannel(groupID), ev)
}

// RequestFriendship sends a friend request. A row that already exists for the
// pair, including one created by a concurrent reverse request, is returned
// as success without a new event.
func (s *Service) RequestFriendship(ctx context.Context, requester, target uint) (*models.Friendship, error) {
	f, err := s.Relationships.Request(ctx, requester, target)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		s.log.Debug("friend request already present", "requester_id", requester, "target_id", target)
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	s.toUsers(events.FriendshipRequested{
		FriendshipID: f.ID,
		RequesterID:  f.RequesterID,
		TargetID:     f.TargetID,
		RequestedAt:  f.RequestedAt,
	}, f.TargetID)
	return f, nil
}

func (s *Service) AcceptFriendship(ctx context.Context, target, requester uint) (*models.Friendship, error) {
	f, err := s.Relationships.Accept(ctx, target, requester)
	if err != nil {
		return nil, err
	}
	ev := events.FriendshipAccepted{
		FriendshipID: f.ID,
		RequesterID:  f.RequesterID,
		TargetID:     f.TargetID,
	}
	if f.AcceptedAt != nil {
		ev.AcceptedAt = *f.AcceptedAt
	}
	s.toUsers(ev, f.RequesterID, f.TargetID)
	return f, nil
}

func (s *Service) DeclineOrCancel(ctx context.Context, actor, other uint) error {
	removed, err := s.Relationships.DeclineOrCancel(ctx, actor, other)
	if err != nil {
		return err
	}
	if removed {
		s.toUsers(events.FriendshipRemoved{ActorID: actor, OtherID: other}, actor, other)
	}
	return nil
}

func (s *Service) Unfriend(ctx context.Context, actor, other uint) error {
	removed, err := s.Relationships.Unfriend(ctx, actor, other)
	if err != nil {
		return err
	}
	if removed {
		s.toUsers(events.FriendshipRemoved{ActorID: actor, OtherID: other}, actor, other)
	}
	return nil
}

// Block is only announced to the blocker's own sessions.
func (s *Service) Block(ctx context.Context, actor, other uint) (*models.Friendship, error) {
	f, err := s.Relationships.Block(ctx, actor, other)
	if err != nil {
		return nil, err
	}
	s.toUsers(events.FriendshipRemoved{ActorID: actor, OtherID: other}, actor)
	return f, nil
}

func (s *Service) Unblock(ctx context.Context, actor, other uint) error {
	_, err := s.Relationships.Unblock(ctx, actor, other)
	return err
}

// SendMessage delivers to every live session of both parties.
func (s *Service) SendMessage(ctx context.Context, sender, receiver uint, body string) (*models.Message, error) {
	m, err := s.Conversations.Send(ctx, sender, receiver, body)
	if err != nil {
		return nil, err
	}
	s.toUsers(events.MessageSent{Message: *m}, sender, receiver)
	return m, nil
}

// MarkRead is idempotent. Only a call that changed rows is announced.
func (s *Service) MarkRead(ctx context.Context, reader, sender uint) (int64, error) {
	n, at, err := s.Conversations.MarkRead(ctx, reader, sender)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.toUsers(events.MessageRead{ReaderID: reader, SenderID: sender, Count: n, ReadAt: at}, reader, sender)
	}
	return n, nil
}

func (s *Service) DeleteMessage(ctx context.Context, actor, messageID uint) error {
	m, err := s.Conversations.Delete(ctx, actor, messageID)
	if err != nil {
		return err
	}
	s.toUsers(events.MessageDeleted{
		MessageID:  m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
	}, m.SenderID, m.ReceiverID)
	return nil
}

func (s *Service) CreateGroup(ctx context.Context, creator uint, in membership.GroupInput) (*models.Group, error) {
	return s.Members.CreateGroup(ctx, creator, in)
}

func (s *Service) SetGroupActive(ctx context.Context, admin, groupID uint, active bool) error {
	return s.Members.SetActive(ctx, admin, groupID, active)
}

// JoinGroup announces a new approved member or a new pending request. A
// repeated join on a pending row succeeds silently.
func (s *Service) JoinGroup(ctx context.Context, userID, groupID uint) (*models.GroupMembership, error) {
	m, created, err := s.Members.Join(ctx, userID, groupID)
	if err != nil {
		return nil, err
	}
	if !created {
		return m, nil
	}
	if m.Status == models.MembershipApproved {
		s.toGroup(groupID, events.MemberJoined{GroupID: groupID, UserID: userID, Role: m.Role})
	} else {
		s.toGroup(groupID, events.MemberRequested{GroupID: groupID, UserID: userID})
	}
	return m, nil
}

func (s *Service) ApproveMember(ctx context.Context, admin, groupID, userID uint) (*models.GroupMembership, error) {
	m, err := s.Members.Approve(ctx, admin, groupID, userID)
	if err != nil {
		return nil, err
	}
	s.toGroup(groupID, events.MemberJoined{GroupID: groupID, UserID: userID, Role: m.Role})
	s.toUsers(events.MemberJoined{GroupID: groupID, UserID: userID, Role: m.Role}, userID)
	return m, nil
}

func (s *Service) LeaveGroup(ctx context.Context, userID, groupID uint) error {
	removed, err := s.Members.Leave(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if removed {
		s.toGroup(groupID, events.MemberRemoved{GroupID: groupID, UserID: userID, ActorID: userID})
	}
	return nil
}

func (s *Service) RemoveMember(ctx context.Context, admin, groupID, target uint) error {
	removed, err := s.Members.Remove(ctx, admin, groupID, target)
	if err != nil {
		return err
	}
	if removed {
		ev := events.MemberRemoved{GroupID: groupID, UserID: target, ActorID: admin}
		s.toGroup(groupID, ev)
		s.toUsers(ev, target)
	}
	return nil
}

func (s *Service) BanMember(ctx context.Context, admin, groupID, target uint) error {
	if _, err := s.Members.Ban(ctx, admin, groupID, target); err != nil {
		return err
	}
	ev := events.MemberRemoved{GroupID: groupID, UserID: target, ActorID: admin}
	s.toGroup(groupID, ev)
	s.toUsers(ev, target)
	return nil
}

func (s *Service) SetMemberRole(ctx context.Context, admin, groupID, target uint, role models.GroupRole) (*models.GroupMembership, error) {
	return s.Members.SetRole(ctx, admin, groupID, target, role)
}

func (s *Service) CreatePost(ctx context.Context, userID, groupID uint, in feed.PostInput) (*models.GroupPost, error) {
	p, err := s.Feed.CreatePost(ctx, userID, groupID, in)
	if err != nil {
		return nil, err
	}
	s.toGroup(groupID, events.PostCreated{Post: *p})
	return p, nil
}

func (s *Service) DeletePost(ctx context.Context, actor, postID uint) error {
	p, err := s.Feed.DeletePost(ctx, actor, postID)
	if err != nil {
		return err
	}
	s.toGroup(p.GroupID, events.PostDeleted{PostID: p.ID})
	return nil
}

// ToggleLike broadcasts the new count. The liked flag in the event is the
// actor's; other observers re-check with Feed.LikeState or Feed.ListPosts.
func (s *Service) ToggleLike(ctx context.Context, userID, postID uint) (*feed.LikeResult, error) {
	res, err := s.Feed.ToggleLike(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	s.toGroup(res.GroupID, events.PostLiked{
		PostID:       res.PostID,
		LikesCount:   res.LikesCount,
		ActorID:      userID,
		LikedByActor: res.LikedByActor,
	})
	return res, nil
}

func (s *Service) AddComment(ctx context.Context, userID, postID uint, content string) (*feed.CommentResult, error) {
	res, err := s.Feed.AddComment(ctx, userID, postID, content)
	if err != nil {
		return nil, err
	}
	s.toGroup(res.GroupID, events.CommentAdded{Comment: res.Comment, CommentsCount: res.CommentsCount})
	return res, nil
}

func (s *Service) DeleteComment(ctx context.Context, actor, commentID uint) (*feed.CommentResult, error) {
	res, err := s.Feed.DeleteComment(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}
	s.toGroup(res.GroupID, events.CommentDeleted{
		PostID:        res.Comment.PostID,
		CommentID:     res.Comment.ID,
		CommentsCount: res.CommentsCount,
	})
	return res, nil
}
