package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"chatify-service/internal/apperr"
)

// respondError maps a typed domain error onto the HTTP response. Untyped
// errors surface as 500 with a generic message.
func respondError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(apperr.HTTPStatus(err), gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}
	c.JSON(apperr.HTTPStatus(err), gin.H{"error": "internal error", "code": apperr.CodeInternal})
}
