package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"matchsocial/backend/internal/apperr"
	"matchsocial/backend/internal/auth"
	"matchsocial/backend/internal/hub"
	"matchsocial/backend/internal/social"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
	Code  string `json:"code,omitempty" example:"NOT_FOUND"`
}

// MessageResponse represents a generic confirmation.
type MessageResponse struct {
	Message string `json:"message" example:"Request accepted"`
}

// Handler translates HTTP and websocket requests into service calls.
type Handler struct {
	svc      *social.Service
	hub      *hub.Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a Handler. allowOrigin decides websocket origins; nil allows all.
func New(svc *social.Service, h *hub.Hub, log *slog.Logger, allowOrigin func(origin string) bool) *Handler {
	return &Handler{
		svc: svc,
		hub: h,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowOrigin == nil {
					return true
				}
				return allowOrigin(r.Header.Get("Origin"))
			},
		},
	}
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeAlreadyExists, apperr.CodeAlreadyMember, apperr.CodeGroupFull:
		return http.StatusConflict
	case apperr.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an ErrorResponse. Internal failures are logged and
// their details kept out of the response.
func (h *Handler) fail(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		msg := "request failed"
		if code == apperr.CodeInvariantViolation {
			msg = "invariant violation"
		}
		h.log.Error(msg, "path", c.FullPath(), "error", err)
		c.JSON(status, ErrorResponse{Error: "Internal server error", Code: string(apperr.CodeInternal)})
		return
	}
	c.JSON(status, ErrorResponse{Error: apperr.MessageOf(err), Code: string(code)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: string(apperr.CodeInvalidArgument)})
}

// pathID parses a positive numeric path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) uint {
	id, _ := auth.UserID(c)
	return id
}
