package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the shape of all error bodies returned by the API
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler recovers from panics and converts unhandled Gin errors
// into JSON responses so clients never see a bare 500 page.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC: %v (path=%s)", r, c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Error: "internal server error",
				})
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			log.Printf("ERROR: %v (path=%s)", err.Err, c.Request.URL.Path)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal server error",
				Details: err.Error(),
			})
		}
	}
}
