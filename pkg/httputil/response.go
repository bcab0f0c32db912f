package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-scheduler/pkg/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	// StatusPartial marks a committed write whose follow-up steps failed.
	StatusPartial = "partial"
)

// Response wraps all API responses
type Response struct {
	Status   string      `json:"status"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Error    interface{} `json:"error,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Status: StatusSuccess, Data: data})
}

func RespondWithCreated(c *gin.Context, data interface{}, warnings []string) {
	c.JSON(http.StatusCreated, Response{Status: StatusSuccess, Data: data, Warnings: warnings})
}

// RespondWithWarnings sends a 200 that still carries non-fatal warnings.
func RespondWithWarnings(c *gin.Context, data interface{}, warnings []string) {
	c.JSON(http.StatusOK, Response{Status: StatusSuccess, Data: data, Warnings: warnings})
}

func RespondWithBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Status: StatusError, Message: message})
}

// RespondWithError maps the error taxonomy onto HTTP. A RelationSyncError is
// a degraded success: the row exists, so data carries whatever was committed.
func RespondWithError(c *gin.Context, err error, data interface{}) {
	var (
		validation *apperrors.ValidationError
		conflict   *apperrors.ConflictError
		relation   *apperrors.RelationSyncError
		appErr     *apperrors.AppError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, Response{Status: StatusError, Message: validation.Error(), Error: validation})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, Response{Status: StatusError, Message: conflict.Error(), Error: conflict})
	case errors.As(err, &relation):
		c.JSON(http.StatusInternalServerError, Response{Status: StatusPartial, Message: relation.Error(), Data: data})
	case errors.As(err, &appErr):
		c.JSON(statusFor(appErr.Code), Response{Status: StatusError, Message: appErr.Message})
	default:
		c.JSON(http.StatusInternalServerError, Response{Status: StatusError, Message: "internal server error"})
	}
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrBadRequest, apperrors.ErrValidation:
		return http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrForbidden:
		return http.StatusForbidden
	case apperrors.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
