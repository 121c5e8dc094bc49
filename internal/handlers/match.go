package handlers

import (
	"net/http"
	"strconv"

	"synergy-backend/internal/middleware"
	"synergy-backend/internal/models"
	"synergy-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type MatchHandler struct {
	matches *services.MatchService
	baseURL string
	log     *logrus.Logger
}

func NewMatchHandler(matches *services.MatchService, baseURL string, log *logrus.Logger) *MatchHandler {
	return &MatchHandler{matches: matches, baseURL: baseURL, log: log}
}

// GetOthers lists swipe candidates, optionally within one collaboration.
func (h *MatchHandler) GetOthers(c *gin.Context) {
	var collaborationID *uint
	if raw := c.Query("collaboration_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid collaboration_id"})
			return
		}
		cid := uint(id)
		collaborationID = &cid
	}

	users, err := h.matches.Candidates(c.Request.Context(), middleware.CurrentUserID(c), collaborationID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if len(users) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No other users available"})
		return
	}
	c.JSON(http.StatusOK, h.resolve(users))
}

func (h *MatchHandler) SwipeRight(c *gin.Context) {
	targetID, ok := idParam(c, "id")
	if !ok {
		return
	}

	isMatch, err := h.matches.SwipeRight(c.Request.Context(), middleware.CurrentUserID(c), targetID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	message := "Swiped right successfully"
	if isMatch {
		message = "Swiped right successfully! It's a match!"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "is_match": isMatch})
}

func (h *MatchHandler) Matches(c *gin.Context) {
	users, err := h.matches.Matches(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, h.resolve(users))
}

func (h *MatchHandler) GetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.matches.GetUser(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	detail.ProfilePicture = resolvePtr(h.baseURL, detail.ProfilePicture)
	c.JSON(http.StatusOK, detail)
}

func (h *MatchHandler) GetUserCollaborations(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	collabs, err := h.matches.UserCollaborations(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"collaborations": collabs})
}

// Likes lists users who liked the caller and are not matched yet.
func (h *MatchHandler) Likes(c *gin.Context) {
	users, err := h.matches.Likes(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if len(users) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No users have liked you yet."})
		return
	}
	c.JSON(http.StatusOK, h.resolve(users))
}

func (h *MatchHandler) resolve(users []models.UserSummary) []models.UserSummary {
	for i := range users {
		users[i].ProfilePicture = resolvePtr(h.baseURL, users[i].ProfilePicture)
	}
	return users
}
