package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hostel-management-backend/internal/middleware"
	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/service"
	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var notFoundErrors = []error{
	models.ErrRoomNotFound,
	models.ErrTraineeNotFound,
	models.ErrItemNotFound,
	models.ErrUserNotFound,
}

var badRequestErrors = []error{
	models.ErrRoomUnavailable,
	models.ErrBedOccupied,
	models.ErrInvalidState,
	models.ErrInvalidDate,
	models.ErrAlreadyCheckedOut,
	models.ErrInsufficientQuantity,
	models.ErrExceedsInUse,
	models.ErrExceedsDamaged,
	models.ErrInventoryInvariant,
	models.ErrItemInUse,
	models.ErrRoomOccupied,
	models.ErrDuplicateRoom,
	models.ErrDuplicateUser,
	models.ErrInvalidQuantity,
	models.ErrInvalidCondition,
	models.ErrInvalidRoom,
	models.ErrInvalidBed,
	models.ErrInvalidStay,
	models.ErrInvalidAmenity,
	models.ErrInvalidStatus,
}

var authErrors = []error{
	service.ErrInvalidCredentials,
	service.ErrInvalidRefreshToken,
	service.ErrRefreshTokenExpired,
}

// errorStatus classifies a service error. The bool is false for errors that
// must not be shown to clients.
func errorStatus(err error) (int, bool) {
	switch {
	case isAny(err, notFoundErrors):
		return http.StatusNotFound, true
	case isAny(err, badRequestErrors):
		return http.StatusBadRequest, true
	case isAny(err, authErrors):
		return http.StatusUnauthorized, true
	}
	return http.StatusInternalServerError, false
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError writes the envelope for err. Unexpected errors are logged and
// replaced by fallback; outside release mode the cause is attached.
func respondError(c *gin.Context, log *zap.Logger, err error, fallback string) {
	status, public := errorStatus(err)
	if !public {
		middleware.Logger(c, log).Error(fallback, zap.Error(err))
		_ = c.Error(err)
		if gin.Mode() != gin.ReleaseMode {
			utils.ErrorDetailResponse(c, status, fallback, err.Error())
			return
		}
		utils.ErrorResponse(c, status, fallback)
		return
	}
	utils.ErrorResponse(c, status, err.Error())
}

// respondBindError turns a binding failure into a 400 with field details.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldMessage(fe))
		}
		utils.ValidationErrorResponse(c, details)
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		utils.ValidationErrorResponse(c, []string{"request body is not valid JSON"})
	case errors.As(err, &typeErr):
		utils.ValidationErrorResponse(c, []string{fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)})
	default:
		utils.ValidationErrorResponse(c, []string{err.Error()})
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "mobile":
		return field + " must be a 10-digit number"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "required_without":
		return fmt.Sprintf("%s is required when %s is missing", field, lowerFirst(fe.Param()))
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// parseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func parseDate(field, value string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", field)
}

func parseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
