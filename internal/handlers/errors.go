package handlers

import (
	"github.com/gin-gonic/gin"
)

// respondError writes the JSON error shape shared by every API endpoint.
func respondError(c *gin.Context, status int, code, description string) {
	c.JSON(status, gin.H{
		"error":             code,
		"error_description": description,
	})
}
