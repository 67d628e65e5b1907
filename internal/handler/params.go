package handler

import (
	"net/http"
	"strconv"
	"strings"

	"hostel-management-backend/internal/models"
	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// The helpers below write the error response themselves and return ok=false
// when the value is unusable.

func optionalBlock(c *gin.Context, raw string) (models.Block, bool) {
	if raw == "" {
		return "", true
	}
	block := models.Block(strings.ToUpper(raw))
	if !block.Valid() {
		utils.ValidationErrorResponse(c, []string{"block must be one of: A, B, C"})
		return "", false
	}
	return block, true
}

func optionalInt(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		utils.ValidationErrorResponse(c, []string{name + " must be a number"})
		return nil, false
	}
	return &n, true
}

// pageRequest reads page and limit; services apply their own defaults.
func pageRequest(c *gin.Context) models.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return models.PageRequest{Page: page, Limit: limit}
}

func roomKeyParam(c *gin.Context) (models.RoomKey, bool) {
	block, ok := optionalBlock(c, c.Param("block"))
	if !ok {
		return models.RoomKey{}, false
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid room number")
		return models.RoomKey{}, false
	}
	return models.RoomKey{Number: number, Block: block}, true
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
