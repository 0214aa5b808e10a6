package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"homelibrary/internal/microservices/http-api/repository"
	"homelibrary/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	MsgDuplicateISBN = "Book with this ISBN already exists."
	MsgBadLogin      = "Please enter a correct username and password."
)

// writeError maps a service or repository error onto a JSON error response.
// Unknown errors are attached to the context for the access log and hidden
// from the client.
func writeError(c *gin.Context, err error) {
	var (
		dup   *repository.DuplicateKeyError
		ref   *repository.ReferentialIntegrityError
		stale *repository.StaleObjectError
		verr  *service.ValidationError
		renew *service.RenewalError
	)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.As(err, &ref):
		c.JSON(http.StatusConflict, gin.H{"error": ref.Error()})
	case errors.As(err, &stale):
		c.JSON(http.StatusConflict, gin.H{"error": stale.Error()})
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{"error": dup.Error(), "field": dup.Field})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
	case errors.As(err, &renew):
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"renewal_date": []string{renew.Error()}}})
	case errors.Is(err, context.DeadlineExceeded):
		_ = c.Error(err)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request timed out"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// formErrors extracts field messages from errors a form page shows inline.
// ok is false for errors that need a different response.
func formErrors(err error) (map[string][]string, bool) {
	var (
		dup   *repository.DuplicateKeyError
		verr  *service.ValidationError
		renew *service.RenewalError
	)
	switch {
	case errors.As(err, &verr):
		return verr.Fields, true
	case errors.As(err, &renew):
		return map[string][]string{"renewal_date": {renew.Error()}}, true
	case errors.As(err, &dup):
		if dup.Field == "isbn" {
			return map[string][]string{"isbn": {MsgDuplicateISBN}}, true
		}
		return map[string][]string{dup.Field: {dup.Error()}}, true
	}
	return nil, false
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}

// int64Param parses a numeric path id. Anything else is answered with 404.
func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		notFound(c)
		return 0, false
	}
	return id, true
}

// uuidParam parses a copy id. Malformed ids are answered with 404.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		notFound(c)
		return uuid.Nil, false
	}
	return id, true
}

// pageParam reads ?page=. Missing or non-numeric values mean page 1, "last"
// means the final page (the repository clamps).
func pageParam(c *gin.Context) int {
	p := c.Query("page")
	if p == "last" {
		return math.MaxInt32
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return 1
	}
	return n
}
