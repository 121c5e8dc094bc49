package handlers

import (
	"net/http"
	"strings"

	"synergy-backend/internal/middleware"
	"synergy-backend/internal/models"
	"synergy-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CollectionHandler struct {
	collections *services.CollectionService
	baseURL     string
	log         *logrus.Logger
}

type createCollectionRequest struct {
	Name string `json:"name"`
}

type addItemRequest struct {
	Type    string `json:"type" binding:"omitempty,oneof=text file"`
	Content string `json:"content"`
}

func NewCollectionHandler(collections *services.CollectionService, baseURL string, log *logrus.Logger) *CollectionHandler {
	return &CollectionHandler{collections: collections, baseURL: baseURL, log: log}
}

func (h *CollectionHandler) List(c *gin.Context) {
	collections, err := h.collections.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, collections)
}

func (h *CollectionHandler) Create(c *gin.Context) {
	var req createCollectionRequest
	if !bindJSON(c, &req) {
		return
	}

	collection, err := h.collections.Create(c.Request.Context(), middleware.CurrentUserID(c), req.Name)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Collection created successfully",
		"collection": collection,
	})
}

func (h *CollectionHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.collections.Delete(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Collection deleted successfully"})
}

func (h *CollectionHandler) Items(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	items, err := h.collections.Items(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	for i := range items {
		h.resolveItem(&items[i])
	}
	c.JSON(http.StatusOK, items)
}

// AddItem accepts either a JSON text item or a multipart "file" upload.
func (h *CollectionHandler) AddItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID := middleware.CurrentUserID(c)

	var (
		item *models.CollectionItem
		err  error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		upload, closeFile, uerr := formUpload(c)
		if uerr != nil {
			respondError(c, h.log, uerr)
			return
		}
		defer closeFile()
		item, err = h.collections.AddFile(c.Request.Context(), userID, id, upload)
	} else {
		var req addItemRequest
		if !bindJSON(c, &req) {
			return
		}
		if req.Type == models.ItemTypeFile {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File items must be uploaded as multipart form data"})
			return
		}
		item, err = h.collections.AddText(c.Request.Context(), userID, id, req.Content)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.resolveItem(item)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Item added successfully",
		"item":    item,
	})
}

func (h *CollectionHandler) DeleteItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "item_id")
	if !ok {
		return
	}

	if err := h.collections.DeleteItem(c.Request.Context(), middleware.CurrentUserID(c), id, itemID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
}

func (h *CollectionHandler) resolveItem(item *models.CollectionItem) {
	if item.ItemType == models.ItemTypeFile {
		item.Content = services.ResolveURL(h.baseURL, item.Content)
	}
}
