// Package response writes the JSON envelope every endpoint answers with.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/smart-renter/apperr"
)

const detailKey = "response.detail"

type Body struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    any        `json:"data,omitempty"`
	Meta    *PageMeta  `json:"meta,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type ErrorBody struct {
	Type    apperr.Kind `json:"type"`
	Message string      `json:"message"`
	Detail  string      `json:"detail,omitempty"`
}

// Detail makes Error include the wrapped cause of failures. It is
// installed only in development.
func Detail() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(detailKey, true)
		c.Next()
	}
}

func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

func OKMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Message: message, Data: data})
}

func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, Body{Success: true, Message: message, Data: data})
}

// Page answers with one page of a list. Limit 0 means the whole list was
// returned.
func Page(c *gin.Context, data any, page, limit int, total int64) {
	meta := &PageMeta{Page: page, Limit: limit, Total: total, Pages: 1}
	if limit > 0 {
		meta.Pages = (total + int64(limit) - 1) / int64(limit)
	}
	c.JSON(http.StatusOK, Body{Success: true, Data: data, Meta: meta})
}

// Error writes err with the status of its kind and aborts the chain.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	body := &ErrorBody{Type: kind, Message: apperr.MessageOf(err)}
	if c.GetBool(detailKey) {
		var e *apperr.Error
		switch {
		case !errors.As(err, &e):
			body.Detail = err.Error()
		case e.Err != nil:
			body.Detail = e.Err.Error()
		}
	}
	c.AbortWithStatusJSON(Status(kind), Body{Success: false, Error: body})
}

// Status maps an error kind to its HTTP status code.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
