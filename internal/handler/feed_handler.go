package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"matchsocial/backend/internal/feed"
)

type PostInput struct {
	Content        string `json:"content" binding:"required"`
	IsPinned       bool   `json:"is_pinned"`
	IsAnnouncement bool   `json:"is_announcement"`
}

type CommentInput struct {
	Content string `json:"content" binding:"required"`
}

type LikeStateResponse struct {
	PostID    uint `json:"post_id"`
	LikedByMe bool `json:"liked_by_me"`
}

type LikeResponse struct {
	PostID     uint `json:"post_id"`
	LikesCount int  `json:"likes_count"`
	LikedByMe  bool `json:"liked_by_me"`
}

type CommentResponse struct {
	ID            uint `json:"id"`
	PostID        uint `json:"post_id"`
	CommentsCount int  `json:"comments_count"`
}

// ListPosts godoc
// @Summary      Group feed
// @Description  Pinned posts first, then newest first. Each post says whether the viewer likes it.
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Group ID"
// @Success      200  {array}   feed.PostView
// @Failure      403  {object}  ErrorResponse
// @Router       /groups/{id}/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	posts, err := h.svc.Feed.ListPosts(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// CreatePost godoc
// @Summary      Post to a group
// @Tags         feed
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  int        true  "Group ID"
// @Param        input  body  PostInput  true  "Post"
// @Success      201  {object}  models.GroupPost
// @Failure      403  {object}  ErrorResponse
// @Router       /groups/{id}/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	p, err := h.svc.CreatePost(c.Request.Context(), currentUser(c), id, feed.PostInput{
		Content:      input.Content,
		Pinned:       input.IsPinned,
		Announcement: input.IsAnnouncement,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// DeletePost godoc
// @Summary      Delete a post
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePost(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Post deleted"})
}

// ToggleLike godoc
// @Summary      Like or unlike a post
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  LikeResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /posts/{id}/like [post]
func (h *Handler) ToggleLike(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.ToggleLike(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, LikeResponse{PostID: res.PostID, LikesCount: res.LikesCount, LikedByMe: res.LikedByActor})
}

// GetLikeState godoc
// @Summary      Whether the viewer likes a post
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  LikeStateResponse
// @Router       /posts/{id}/like [get]
func (h *Handler) GetLikeState(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	liked, err := h.svc.Feed.LikeState(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, LikeStateResponse{PostID: id, LikedByMe: liked})
}

// ListComments godoc
// @Summary      Comments on a post
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {array}   models.GroupPostComment
// @Router       /posts/{id}/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cs, err := h.svc.Feed.ListComments(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cs)
}

// AddComment godoc
// @Summary      Comment on a post
// @Tags         feed
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  int           true  "Post ID"
// @Param        input  body  CommentInput  true  "Comment"
// @Success      201  {object}  CommentResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /posts/{id}/comments [post]
func (h *Handler) AddComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.svc.AddComment(c.Request.Context(), currentUser(c), id, input.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, CommentResponse{ID: res.Comment.ID, PostID: id, CommentsCount: res.CommentsCount})
}

// DeleteComment godoc
// @Summary      Delete a comment
// @Tags         feed
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Comment ID"
// @Success      200  {object}  CommentResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /comments/{id} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.DeleteComment(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, CommentResponse{ID: id, PostID: res.Comment.PostID, CommentsCount: res.CommentsCount})
}
