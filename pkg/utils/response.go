package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse sends a standard success JSON response
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// DataResponse sends a success response with a message and data
func DataResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"message": message,
		"data":    data,
	})
}

// ErrorResponse sends a standard error JSON response
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"message": message,
	})
}

// ErrorDetailResponse sends an error response carrying the underlying error text
func ErrorDetailResponse(c *gin.Context, statusCode int, message, detail string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"message": message,
		"error":   detail,
	})
}

// ValidationErrorResponse sends a 400 with field-level messages
func ValidationErrorResponse(c *gin.Context, details []string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "Validation error",
		"details": details,
	})
}

// MessageResponse sends a simple message response
func MessageResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}
