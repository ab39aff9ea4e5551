package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"matchsocial/backend/internal/models"
	"matchsocial/backend/internal/relationship"
)

// FriendResponse is one relationship seen from the viewer's side.
type FriendResponse struct {
	UserID      uint                    `json:"user_id"`
	Status      models.FriendshipStatus `json:"status"`
	Outgoing    bool                    `json:"outgoing"`
	RequestedAt time.Time               `json:"requested_at"`
}

func newFriendResponse(f models.Friendship, viewer uint) FriendResponse {
	return FriendResponse{
		UserID:      f.Other(viewer),
		Status:      f.Status,
		Outgoing:    f.RequesterID == viewer,
		RequestedAt: f.RequestedAt,
	}
}

func friendResponses(rows []models.Friendship, viewer uint) []FriendResponse {
	out := make([]FriendResponse, 0, len(rows))
	for _, f := range rows {
		out = append(out, newFriendResponse(f, viewer))
	}
	return out
}

// GetFriends godoc
// @Summary      List friends
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   FriendResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /friends [get]
func (h *Handler) GetFriends(c *gin.Context) {
	viewer := currentUser(c)
	rows, err := h.svc.Relationships.ListFriends(c.Request.Context(), viewer)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, friendResponses(rows, viewer))
}

// GetRequests godoc
// @Summary      List pending friend requests
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        direction query     string  false  "incoming (default) or outgoing"
// @Success      200       {array}   FriendResponse
// @Failure      400       {object}  ErrorResponse
// @Router       /friends/requests [get]
func (h *Handler) GetRequests(c *gin.Context) {
	viewer := currentUser(c)
	dir := relationship.Incoming
	switch c.DefaultQuery("direction", "incoming") {
	case "incoming":
	case "outgoing":
		dir = relationship.Outgoing
	default:
		badRequest(c, "direction must be incoming or outgoing")
		return
	}
	rows, err := h.svc.Relationships.ListPending(c.Request.Context(), viewer, dir)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, friendResponses(rows, viewer))
}

// SendRequest godoc
// @Summary      Send friend request
// @Description  Sends a friend request. Repeating it, or requesting someone who already asked you, succeeds without a second row.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Target User ID"
// @Success      201  {object}  FriendResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Relationship is blocked"
// @Router       /users/{id}/request [post]
func (h *Handler) SendRequest(c *gin.Context) {
	target, ok := pathID(c, "id")
	if !ok {
		return
	}
	viewer := currentUser(c)
	f, err := h.svc.RequestFriendship(c.Request.Context(), viewer, target)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newFriendResponse(*f, viewer))
}

// AcceptRequest godoc
// @Summary      Accept friend request
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Requesting User ID"
// @Success      200  {object}  FriendResponse
// @Failure      404  {object}  ErrorResponse "Request not found"
// @Router       /users/{id}/accept [post]
func (h *Handler) AcceptRequest(c *gin.Context) {
	requester, ok := pathID(c, "id")
	if !ok {
		return
	}
	viewer := currentUser(c)
	f, err := h.svc.AcceptFriendship(c.Request.Context(), viewer, requester)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newFriendResponse(*f, viewer))
}

// DeclineRequest godoc
// @Summary      Decline or cancel a friend request
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Other User ID"
// @Success      200  {object}  MessageResponse
// @Router       /users/{id}/decline [post]
func (h *Handler) DeclineRequest(c *gin.Context) {
	other, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeclineOrCancel(c.Request.Context(), currentUser(c), other); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Request removed"})
}

// RemoveFriend godoc
// @Summary      Unfriend
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Friend User ID"
// @Success      200  {object}  MessageResponse
// @Router       /users/{id}/remove [post]
func (h *Handler) RemoveFriend(c *gin.Context) {
	other, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Unfriend(c.Request.Context(), currentUser(c), other); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Friend removed"})
}

// BlockUser godoc
// @Summary      Block a user
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  MessageResponse
// @Router       /users/{id}/block [post]
func (h *Handler) BlockUser(c *gin.Context) {
	other, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.svc.Block(c.Request.Context(), currentUser(c), other); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User blocked"})
}

// UnblockUser godoc
// @Summary      Unblock a user
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  MessageResponse
// @Router       /users/{id}/block [delete]
func (h *Handler) UnblockUser(c *gin.Context) {
	other, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Unblock(c.Request.Context(), currentUser(c), other); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User unblocked"})
}
