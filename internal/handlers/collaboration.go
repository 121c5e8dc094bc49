package handlers

import (
	"context"
	"net/http"

	"synergy-backend/internal/middleware"
	"synergy-backend/internal/models"
	"synergy-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CollaborationHandler struct {
	collaborations *services.CollaborationService
	baseURL        string
	log            *logrus.Logger
}

type createCollaborationRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type editCollaborationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func NewCollaborationHandler(collaborations *services.CollaborationService, baseURL string, log *logrus.Logger) *CollaborationHandler {
	return &CollaborationHandler{collaborations: collaborations, baseURL: baseURL, log: log}
}

func (h *CollaborationHandler) Create(c *gin.Context) {
	var req createCollaborationRequest
	if !bindJSON(c, &req) {
		return
	}

	collab, err := h.collaborations.Create(c.Request.Context(), middleware.CurrentUserID(c), req.Name, req.Description)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Collaboration created successfully",
		"id":      collab.ID,
	})
}

func (h *CollaborationHandler) Edit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req editCollaborationRequest
	if !bindJSON(c, &req) {
		return
	}

	collab, err := h.collaborations.Edit(c.Request.Context(), middleware.CurrentUserID(c), id, req.Name, req.Description)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	collab.ProfilePicture = resolvePtr(h.baseURL, collab.ProfilePicture)

	c.JSON(http.StatusOK, gin.H{
		"message":       "Collaboration updated successfully",
		"collaboration": collab,
	})
}

func (h *CollaborationHandler) View(c *gin.Context) {
	views, err := h.collaborations.List(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	for i := range views {
		views[i].ProfilePicture = resolvePtr(h.baseURL, views[i].ProfilePicture)
	}
	c.JSON(http.StatusOK, views)
}

func (h *CollaborationHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	view, err := h.collaborations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	view.ProfilePicture = resolvePtr(h.baseURL, view.ProfilePicture)
	c.JSON(http.StatusOK, view)
}

// My lists the collaborations the caller administers.
func (h *CollaborationHandler) My(c *gin.Context) {
	collabs, err := h.collaborations.Mine(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	for i := range collabs {
		collabs[i].ProfilePicture = resolvePtr(h.baseURL, collabs[i].ProfilePicture)
	}
	c.JSON(http.StatusOK, collabs)
}

func (h *CollaborationHandler) Joined(c *gin.Context) {
	views, err := h.collaborations.ForUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *CollaborationHandler) AddPhoto(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	upload, closeFile, err := formUpload(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer closeFile()

	photo, err := h.collaborations.AddPhoto(c.Request.Context(), middleware.CurrentUserID(c), id, upload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Photo added successfully",
		"photo":   photo,
	})
}

func (h *CollaborationHandler) Photos(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	photos, err := h.collaborations.Photos(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}

func (h *CollaborationHandler) SetPicture(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	upload, closeFile, err := formUpload(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	defer closeFile()

	ref, err := h.collaborations.SetPicture(c.Request.Context(), middleware.CurrentUserID(c), id, upload)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Collaboration picture updated successfully",
		"profile_picture": services.ResolveURL(h.baseURL, ref),
	})
}

func (h *CollaborationHandler) RequestJoin(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	req, err := h.collaborations.RequestJoin(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Join request sent",
		"request": req,
	})
}

func (h *CollaborationHandler) PendingRequests(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	requests, err := h.collaborations.PendingRequests(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *CollaborationHandler) MyRequests(c *gin.Context) {
	requests, err := h.collaborations.MyRequests(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *CollaborationHandler) Approve(c *gin.Context) {
	h.decide(c, h.collaborations.Approve, "Request approved")
}

func (h *CollaborationHandler) Reject(c *gin.Context) {
	h.decide(c, h.collaborations.Reject, "Request rejected")
}

type decision func(ctx context.Context, adminID, collabID, requestID uint) (*models.CollaborationRequest, error)

func (h *CollaborationHandler) decide(c *gin.Context, fn decision, message string) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	requestID, ok := idParam(c, "request_id")
	if !ok {
		return
	}

	req, err := fn(c.Request.Context(), middleware.CurrentUserID(c), id, requestID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"request": req,
	})
}

func (h *CollaborationHandler) Members(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	members, err := h.collaborations.Members(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, members)
}
