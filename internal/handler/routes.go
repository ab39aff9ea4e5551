package handler

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts every endpoint under api. All of them require authMW.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, authMW gin.HandlerFunc) {
	api.Use(authMW)

	api.GET("/ws", h.ServeWs)

	// Friendship routes
	api.GET("/friends", h.GetFriends)
	api.GET("/friends/requests", h.GetRequests)
	userRoutes := api.Group("/users/:id")
	{
		userRoutes.POST("/request", h.SendRequest)
		userRoutes.POST("/accept", h.AcceptRequest)
		userRoutes.POST("/decline", h.DeclineRequest)
		userRoutes.POST("/remove", h.RemoveFriend)
		userRoutes.POST("/block", h.BlockUser)
		userRoutes.DELETE("/block", h.UnblockUser)
	}

	// Direct messages
	api.GET("/conversations/unread", h.GetUnread)
	conversationRoutes := api.Group("/conversations/:id")
	{
		conversationRoutes.GET("", h.GetConversation)
		conversationRoutes.POST("", h.SendMessage)
		conversationRoutes.POST("/read", h.MarkRead)
	}
	api.DELETE("/messages/:id", h.DeleteMessage)

	// Groups
	api.POST("/groups", h.CreateGroup)
	groupRoutes := api.Group("/groups/:id")
	{
		groupRoutes.GET("", h.GetGroup)
		groupRoutes.PUT("/active", h.SetGroupActive)
		groupRoutes.POST("/join", h.JoinGroup)
		groupRoutes.POST("/leave", h.LeaveGroup)
		groupRoutes.GET("/members", h.ListMembers)
		groupRoutes.GET("/requests", h.ListPendingMembers)
		groupRoutes.POST("/members/:userID/approve", h.ApproveMember)
		groupRoutes.POST("/members/:userID/ban", h.BanMember)
		groupRoutes.PUT("/members/:userID/role", h.SetMemberRole)
		groupRoutes.DELETE("/members/:userID", h.RemoveMember)
		groupRoutes.GET("/posts", h.ListPosts)
		groupRoutes.POST("/posts", h.CreatePost)
	}

	// Posts and comments
	postRoutes := api.Group("/posts/:id")
	{
		postRoutes.DELETE("", h.DeletePost)
		postRoutes.GET("/like", h.GetLikeState)
		postRoutes.POST("/like", h.ToggleLike)
		postRoutes.GET("/comments", h.ListComments)
		postRoutes.POST("/comments", h.AddComment)
	}
	api.DELETE("/comments/:id", h.DeleteComment)
}
