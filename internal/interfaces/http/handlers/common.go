// Package handlers implements the dashboard API endpoints.
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/molprop/platform/internal/interfaces/http/middleware"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/common"
)

// respond wraps payloads in the standard envelope.
func respond(c *gin.Context, status int, data any) {
	c.JSON(status, common.APIResponse[any]{
		Success:   true,
		Data:      data,
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// respondPage is respond with pagination attached.
func respondPage(c *gin.Context, status int, data any, page common.Pagination) {
	c.JSON(status, common.APIResponse[any]{
		Success:    true,
		Data:       data,
		Pagination: &page,
		RequestID:  middleware.GetRequestID(c),
		Timestamp:  time.Now().UTC(),
	})
}

// respondError maps a typed error onto its HTTP status and envelope.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	c.JSON(errors.HTTPStatusForCode(code), common.APIResponse[any]{
		Success: false,
		Error: &common.ErrorDetail{
			Code:    string(code),
			Message: err.Error(),
		},
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// parsePagination reads page/page_size query params; Normalize applies the
// bounds.
func parsePagination(c *gin.Context) common.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	p := common.Pagination{Page: page, PageSize: size}
	p.Normalize()
	return p
}

// bindJSON decodes the body, answering 400 on malformed input.  Returns
// false when the request has already been answered.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request body"))
		return false
	}
	return true
}
