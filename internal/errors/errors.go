package errors

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Sentinels for gateway failures.
var (
	ErrInvalidEmail = errors.New("email must not be empty")
	ErrNotFound     = errors.New("no approval record for email")
)

// Is wraps the stdlib matcher so callers don't need a second errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": message})
}

func Forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, gin.H{"error": message})
}

func InternalServerError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{"error": message})
}

func TooManyRequests(c *gin.Context, message string) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": message})
}
