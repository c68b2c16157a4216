package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // Query parsing

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library

	"rps_wallet/internal/domain" // Error kinds
)

// statusFor maps an error kind to its HTTP status
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error", "kind"} and logs it under action
func respondError(c *gin.Context, action string, err error) {
	kind := domain.KindConsistency
	msg := "Internal server error" // Never leak infrastructure errors
	var e *domain.Error
	if errors.As(err, &e) {
		kind, msg = e.Kind, e.Message
	}
	status := statusFor(kind)
	entry := logrus.WithFields(logrus.Fields{
		"user_id": c.GetUint("userID"), // Caller, 0 when unauthenticated
		"kind":    kind,                // Error kind
		"error":   err.Error(),         // Full error
	})
	if status >= http.StatusInternalServerError {
		entry.Error(action + " failed")
	} else {
		entry.Warn(action + " rejected")
	}
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}

// pagination reads page and page_size with the same defaults everywhere
func pagination(c *gin.Context) (page, pageSize, offset int) {
	page = 1      // Default page number
	pageSize = 20 // Default page size
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v // Set page if valid
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= 100 {
		pageSize = v // Set page size within limits
	}
	return page, pageSize, (page - 1) * pageSize
}

// totalPages rounds total/pageSize up
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}
