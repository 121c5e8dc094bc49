package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"synergy-backend/internal/apperrors"
	"synergy-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// respondError writes err as {"error": msg}. Internal failures are logged
// with their cause and answered with a generic message.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	status, msg := apperrors.Public(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"route":  c.FullPath(),
		}).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": msg})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindMessage(err)})
		return false
	}
	return true
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Sprintf("Invalid value for %s (%s)", verrs[0].Field(), verrs[0].Tag())
	}
	return "Invalid request body"
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// formUpload opens the multipart "file" field. The caller must call the
// returned close func.
func formUpload(c *gin.Context) (services.Upload, func(), error) {
	header, err := c.FormFile("file")
	if err != nil {
		return services.Upload{}, nil, apperrors.Validation("File is required")
	}
	f, err := header.Open()
	if err != nil {
		return services.Upload{}, nil, fmt.Errorf("opening upload: %w", err)
	}
	u := services.Upload{
		Filename:    header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	}
	return u, func() { f.Close() }, nil
}
