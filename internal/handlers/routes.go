package handlers

import (
	"synergy-backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Set groups every HTTP handler the API exposes.
type Set struct {
	Auth          *AuthHandler
	Profile       *ProfileHandler
	Collection    *CollectionHandler
	Collaboration *CollaborationHandler
	Match         *MatchHandler
	Chat          *ChatHandler
}

// RegisterRoutes mounts the API. Everything except register and login
// requires a bearer token.
func RegisterRoutes(r gin.IRouter, authenticator middleware.Authenticator, h Set) {
	authRequired := middleware.AuthRequired(authenticator)

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", authRequired, h.Auth.Logout)
	}

	profile := r.Group("/profile", authRequired)
	{
		profile.GET("/view", h.Profile.View)
		profile.PUT("/update", h.Profile.Update)
		profile.POST("/add", h.Profile.Add)
		profile.POST("/picture", h.Profile.UploadPicture)
		profile.PUT("/device_token", h.Profile.SetDeviceToken)

		profile.GET("/collections", h.Collection.List)
		profile.POST("/collections", h.Collection.Create)
		profile.DELETE("/collections/:id", h.Collection.Delete)
		profile.GET("/collections/:id/items", h.Collection.Items)
		profile.POST("/collections/:id/items", h.Collection.AddItem)
		profile.DELETE("/collections/:id/items/:item_id", h.Collection.DeleteItem)
	}

	match := r.Group("/match", authRequired)
	{
		match.GET("/get_others", h.Match.GetOthers)
		match.POST("/swipe_right/:id", h.Match.SwipeRight)
		match.GET("/matches", h.Match.Matches)
		match.GET("/get_user/:id", h.Match.GetUser)
		match.GET("/get_user_collaborations/:id", h.Match.GetUserCollaborations)
		match.GET("/likes", h.Match.Likes)
	}

	collab := r.Group("/collaboration", authRequired)
	{
		collab.POST("/create", h.Collaboration.Create)
		collab.GET("/view", h.Collaboration.View)
		collab.GET("/my", h.Collaboration.My)
		collab.GET("/joined", h.Collaboration.Joined)
		collab.GET("/requests/mine", h.Collaboration.MyRequests)
		collab.GET("/:id", h.Collaboration.Get)
		collab.PUT("/:id", h.Collaboration.Edit)
		collab.POST("/:id/photos", h.Collaboration.AddPhoto)
		collab.GET("/:id/photos", h.Collaboration.Photos)
		collab.POST("/:id/picture", h.Collaboration.SetPicture)
		collab.POST("/:id/join", h.Collaboration.RequestJoin)
		collab.GET("/:id/requests", h.Collaboration.PendingRequests)
		collab.POST("/:id/requests/:request_id/approve", h.Collaboration.Approve)
		collab.POST("/:id/requests/:request_id/reject", h.Collaboration.Reject)
		collab.GET("/:id/members", h.Collaboration.Members)
	}

	chat := r.Group("/chat")
	{
		chat.GET("/history/:id", authRequired, h.Chat.History)
		chat.GET("/ws", middleware.SocketAuthRequired(authenticator), h.Chat.Connect)
	}
}
