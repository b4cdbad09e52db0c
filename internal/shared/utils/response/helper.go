package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondOK writes {"ok": true}
func RespondOK(c *gin.Context) {
	c.JSON(http.StatusOK, Result{OK: true})
}

// RespondError writes {"error": message} with the given status code
func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, Result{Error: message})
}

// AbortWithError writes the error body and stops the handler chain
func AbortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Result{Error: message})
}
