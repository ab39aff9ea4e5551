// Package events defines the typed notifications fanned out after a
// successful mutation. Each variant has a fixed payload schema and the
// wire name returned by EventName.
package events

import (
	"time"

	"matchsocial/backend/internal/models"
)

const (
	NameFriendshipRequested = "friendship.requested"
	NameFriendshipAccepted  = "friendship.accepted"
	NameFriendshipRemoved   = "friendship.removed"
	NameMessageSent         = "message.sent"
	NameMessageRead         = "message.read"
	NameMessageDeleted      = "message.deleted"
	NamePostCreated         = "post.created"
	NamePostDeleted         = "post.deleted"
	NamePostLiked           = "post.liked"
	NameCommentAdded        = "comment.added"
	NameCommentDeleted      = "comment.deleted"
	NameMemberJoined        = "member.joined"
	NameMemberRequested     = "member.requested"
	NameMemberRemoved       = "member.removed"
)

// Event is implemented by every variant below.
type Event interface {
	EventName() string
}

type FriendshipRequested struct {
	FriendshipID uint      `json:"friendship_id"`
	RequesterID  uint      `json:"requester_id"`
	TargetID     uint      `json:"target_id"`
	RequestedAt  time.Time `json:"requested_at"`
}

func (FriendshipRequested) EventName() string { return NameFriendshipRequested }

type FriendshipAccepted struct {
	FriendshipID uint      `json:"friendship_id"`
	RequesterID  uint      `json:"requester_id"`
	TargetID     uint      `json:"target_id"`
	AcceptedAt   time.Time `json:"accepted_at"`
}

func (FriendshipAccepted) EventName() string { return NameFriendshipAccepted }

// FriendshipRemoved covers decline, cancel and unfriend.
type FriendshipRemoved struct {
	ActorID uint `json:"actor_id"`
	OtherID uint `json:"other_id"`
}

func (FriendshipRemoved) EventName() string { return NameFriendshipRemoved }

type MessageSent struct {
	Message models.Message `json:"message"`
}

func (MessageSent) EventName() string { return NameMessageSent }

type MessageRead struct {
	ReaderID uint      `json:"reader_id"`
	SenderID uint      `json:"sender_id"`
	Count    int64     `json:"count"`
	ReadAt   time.Time `json:"read_at"`
}

func (MessageRead) EventName() string { return NameMessageRead }

type MessageDeleted struct {
	MessageID  uint `json:"message_id"`
	SenderID   uint `json:"sender_id"`
	ReceiverID uint `json:"receiver_id"`
}

func (MessageDeleted) EventName() string { return NameMessageDeleted }

type PostCreated struct {
	Post models.GroupPost `json:"post"`
}

func (PostCreated) EventName() string { return NamePostCreated }

// PostDeleted carries the id only; the removed body is never re-broadcast.
type PostDeleted struct {
	PostID uint `json:"post_id"`
}

func (PostDeleted) EventName() string { return NamePostDeleted }

// PostLiked reports the new count. LikedByActor describes ActorID only;
// every other observer resolves its own state with a like-state lookup.
type PostLiked struct {
	PostID       uint `json:"post_id"`
	LikesCount   int  `json:"likes_count"`
	ActorID      uint `json:"actor_id"`
	LikedByActor bool `json:"liked_by_actor"`
}

func (PostLiked) EventName() string { return NamePostLiked }

type CommentAdded struct {
	Comment       models.GroupPostComment `json:"comment"`
	CommentsCount int                     `json:"comments_count"`
}

func (CommentAdded) EventName() string { return NameCommentAdded }

type CommentDeleted struct {
	PostID        uint `json:"post_id"`
	CommentID     uint `json:"comment_id"`
	CommentsCount int  `json:"comments_count"`
}

func (CommentDeleted) EventName() string { return NameCommentDeleted }

type MemberJoined struct {
	GroupID uint             `json:"group_id"`
	UserID  uint             `json:"user_id"`
	Role    models.GroupRole `json:"role"`
}

func (MemberJoined) EventName() string { return NameMemberJoined }

type MemberRequested struct {
	GroupID uint `json:"group_id"`
	UserID  uint `json:"user_id"`
}

func (MemberRequested) EventName() string { return NameMemberRequested }

type MemberRemoved struct {
	GroupID uint `json:"group_id"`
	UserID  uint `json:"user_id"`
	ActorID uint `json:"actor_id"`
}

func (MemberRemoved) EventName() string { return NameMemberRemoved }
