package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type MessageInput struct {
	Body string `json:"body" binding:"required"`
}

type UnreadResponse struct {
	Total    int64          `json:"total"`
	BySender map[uint]int64 `json:"by_sender"`
}

type MarkReadResponse struct {
	Marked int64 `json:"marked"`
}

// GetConversation godoc
// @Summary      Conversation with a user
// @Description  Messages between the viewer and the user, oldest first.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Other User ID"
// @Success      200  {array}   models.Message
// @Router       /conversations/{id} [get]
func (h *Handler) GetConversation(c *gin.Context) {
	other, ok := pathID(c, "id")
	if !ok {
		return
	}
	msgs, err := h.svc.Conversations.Conversation(c.Request.Context(), currentUser(c), other)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// SendMessage godoc
// @Summary      Send a direct message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      int           true  "Receiver User ID"
// @Param        input  body      MessageInput  true  "Message"
// @Success      201    {object}  models.Message
// @Failure      403    {object}  ErrorResponse "Not friends"
// @Router       /conversations/{id} [post]
func (h *Handler) SendMessage(c *gin.Context) {
	receiver, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	m, err := h.svc.SendMessage(c.Request.Context(), currentUser(c), receiver, input.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// MarkRead godoc
// @Summary      Mark a conversation read
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Sender User ID"
// @Success      200  {object}  MarkReadResponse
// @Router       /conversations/{id}/read [post]
func (h *Handler) MarkRead(c *gin.Context) {
	sender, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), currentUser(c), sender)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MarkReadResponse{Marked: n})
}

// GetUnread godoc
// @Summary      Unread message counts
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  UnreadResponse
// @Router       /conversations/unread [get]
func (h *Handler) GetUnread(c *gin.Context) {
	ctx := c.Request.Context()
	viewer := currentUser(c)
	total, err := h.svc.Conversations.UnreadCount(ctx, viewer)
	if err != nil {
		h.fail(c, err)
		return
	}
	bySender, err := h.svc.Conversations.UnreadFrom(ctx, viewer)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, UnreadResponse{Total: total, BySender: bySender})
}

// DeleteMessage godoc
// @Summary      Delete a message
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Message ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /messages/{id} [delete]
func (h *Handler) DeleteMessage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteMessage(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Message deleted"})
}
