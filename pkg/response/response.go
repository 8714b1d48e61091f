package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers return queue results verbatim; errors carry a single "error"
// field so polling clients can branch on it.

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func Internal(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}
