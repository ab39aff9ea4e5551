package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"matchsocial/backend/internal/membership"
	"matchsocial/backend/internal/models"
)

// region --- DTOs ---

type GroupInput struct {
	Name        string `json:"name" binding:"required,max=120"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
	MaxMembers  *int   `json:"max_members" binding:"omitempty,min=1"`
}

type RoleInput struct {
	Role models.GroupRole `json:"role" binding:"required"`
}

type ActiveInput struct {
	Active bool `json:"active"`
}

type GroupResponse struct {
	models.Group
	MemberCount int64 `json:"member_count"`
}

// endregion

// CreateGroup godoc
// @Summary      Create a group
// @Description  Creates a group; the creator becomes its first approved admin.
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body GroupInput true "Group Info"
// @Success      201  {object}  GroupResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /groups [post]
func (h *Handler) CreateGroup(c *gin.Context) {
	var input GroupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	g, err := h.svc.CreateGroup(c.Request.Context(), currentUser(c), membership.GroupInput{
		Name:        input.Name,
		Description: input.Description,
		IsPrivate:   input.IsPrivate,
		MaxMembers:  input.MaxMembers,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, GroupResponse{Group: *g, MemberCount: 1})
}

// GetGroup godoc
// @Summary      Get a group
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Group ID"
// @Success      200  {object}  GroupResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /groups/{id} [get]
func (h *Handler) GetGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	g, err := h.svc.Members.Group(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.svc.Members.ApprovedCount(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GroupResponse{Group: *g, MemberCount: n})
}

// SetGroupActive godoc
// @Summary      Archive or restore a group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  int          true  "Group ID"
// @Param        input  body  ActiveInput  true  "Active flag"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /groups/{id}/active [put]
func (h *Handler) SetGroupActive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input ActiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.svc.SetGroupActive(c.Request.Context(), currentUser(c), id, input.Active); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Group updated"})
}

// JoinGroup godoc
// @Summary      Join a group
// @Description  Public groups approve at once; private groups create a pending request.
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Group ID"
// @Success      200  {object}  models.GroupMembership
// @Failure      409  {object}  ErrorResponse "Already a member or group full"
// @Router       /groups/{id}/join [post]
func (h *Handler) JoinGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.JoinGroup(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// LeaveGroup godoc
// @Summary      Leave a group
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Group ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse "Creator cannot leave"
// @Router       /groups/{id}/leave [post]
func (h *Handler) LeaveGroup(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.LeaveGroup(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Left group"})
}

// ListMembers godoc
// @Summary      List approved members
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Group ID"
// @Success      200  {array}   models.GroupMembership
// @Failure      403  {object}  ErrorResponse
// @Router       /groups/{id}/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ms, err := h.svc.Members.ListMembers(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ms)
}

// ListPendingMembers godoc
// @Summary      List join requests
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Group ID"
// @Success      200  {array}   models.GroupMembership
// @Failure      403  {object}  ErrorResponse
// @Router       /groups/{id}/requests [get]
func (h *Handler) ListPendingMembers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ms, err := h.svc.Members.ListPending(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ms)
}

// ApproveMember godoc
// @Summary      Approve a join request
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  int  true  "Group ID"
// @Param        userID  path  int  true  "User ID"
// @Success      200  {object}  models.GroupMembership
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse "No pending request"
// @Failure      409  {object}  ErrorResponse "Group full"
// @Router       /groups/{id}/members/{userID}/approve [post]
func (h *Handler) ApproveMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	target, ok := pathID(c, "userID")
	if !ok {
		return
	}
	m, err := h.svc.ApproveMember(c.Request.Context(), currentUser(c), id, target)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// RemoveMember godoc
// @Summary      Remove a member or reject a request
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  int  true  "Group ID"
// @Param        userID  path  int  true  "User ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /groups/{id}/members/{userID} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	target, ok := pathID(c, "userID")
	if !ok {
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), currentUser(c), id, target); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Member removed"})
}

// BanMember godoc
// @Summary      Ban a user from the group
// @Tags         groups
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  int  true  "Group ID"
// @Param        userID  path  int  true  "User ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /groups/{id}/members/{userID}/ban [post]
func (h *Handler) BanMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	target, ok := pathID(c, "userID")
	if !ok {
		return
	}
	if err := h.svc.BanMember(c.Request.Context(), currentUser(c), id, target); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Member banned"})
}

// SetMemberRole godoc
// @Summary      Change a member's role
// @Tags         groups
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  int        true  "Group ID"
// @Param        userID  path  int        true  "User ID"
// @Param        input   body  RoleInput  true  "Role"
// @Success      200  {object}  models.GroupMembership
// @Failure      403  {object}  ErrorResponse
// @Router       /groups/{id}/members/{userID}/role [put]
func (h *Handler) SetMemberRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	target, ok := pathID(c, "userID")
	if !ok {
		return
	}
	var input RoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.svc.SetMemberRole(c.Request.Context(), currentUser(c), id, target, input.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
