package handlers

import (
	"net/http"

	"synergy-backend/internal/middleware"
	"synergy-backend/internal/models"
	"synergy-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ProfileHandler struct {
	profiles *services.ProfileService
	baseURL  string
	log      *logrus.Logger
}

type profileResponse struct {
	ID                 uint             `json:"id"`
	Username           string           `json:"username"`
	Bio                *string          `json:"bio"`
	Skills             models.StringSet `json:"skills"`
	Location           *string          `json:"location"`
	Availability       *string          `json:"availability"`
	ProfilePicture     *string          `json:"profile_picture"`
	VerificationStatus bool             `json:"verification_status"`
}

type deviceTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func NewProfileHandler(profiles *services.ProfileService, baseURL string, log *logrus.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, baseURL: baseURL, log: log}
}

func (h *ProfileHandler) toResponse(u *models.User) profileResponse {
	return profileResponse{
		ID:                 u.ID,
		Username:           u.Username,
		Bio:                u.Bio,
		Skills:             u.Skills,
		Location:           u.Location,
		Availability:       u.Availability,
		ProfilePicture:     resolvePtr(h.baseURL, u.ProfilePicture),
		VerificationStatus: u.VerificationStatus,
	}
}

func (h *ProfileHandler) View(c *gin.Context) {
	user, err := h.profiles.View(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, h.toResponse(user))
}

func (h *ProfileHandler) Update(c *gin.Context) {
	var req services.ProfileInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.profiles.Update(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"profile": h.toResponse(user),
	})
}

func (h *ProfileHandler) Add(c *gin.Context) {
	var req services.ProfileInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.profiles.Add(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Profile created successfully",
		"profile": h.toResponse(user),
	})
}

func (h *ProfileHandler) UploadPicture(c *gin.Context) {
	upload, closeFile, err := formUpload(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer closeFile()

	ref, err := h.profiles.SetPicture(c.Request.Context(), middleware.CurrentUserID(c), upload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Profile picture updated successfully",
		"profile_picture": services.ResolveURL(h.baseURL, ref),
	})
}

func (h *ProfileHandler) SetDeviceToken(c *gin.Context) {
	var req deviceTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.profiles.SetDeviceToken(c.Request.Context(), middleware.CurrentUserID(c), req.Token); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Device token registered"})
}

func resolvePtr(baseURL string, ref *string) *string {
	if ref == nil || *ref == "" {
		return ref
	}
	url := services.ResolveURL(baseURL, *ref)
	return &url
}
