// Package response renders the JSON envelope shared by all HTTP handlers.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/campusmarket/service-booking/pkg/domain"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success writes 200 with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// NoContent writes 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes 200 with a page of items.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    items,
		Pagination: &Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// BadRequest writes 400 with a message.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// Unauthorized writes 401.
func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// Forbidden writes 403.
func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, string(domain.CodeForbidden), message)
}

// Error maps a service error to a status code. Domain errors keep their
// message; anything else becomes an opaque 500.
func Error(c *gin.Context, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		abort(c, statusFor(de.Code), string(de.Code), de.Message)
		return
	}
	_ = c.Error(err)
	abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

// BindError renders a request binding failure. Validator errors become a
// per-field message map.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		BadRequest(c, err.Error())
		return
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonField(fe)] = fieldMessage(fe)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, Envelope{
		Error: &ErrorBody{
			Code:    string(domain.CodeValidation),
			Message: "request validation failed",
			Fields:  fields,
		},
	})
}

// UseJSONFieldNames makes gin's validator report json tag names instead of
// Go field names. Call once at startup.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeInvalidOperation:
		return http.StatusUnprocessableEntity
	case domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Error: &ErrorBody{Code: code, Message: message},
	})
}

func jsonField(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "datetime":
		return fmt.Sprintf("must match layout %s", fe.Param())
	case "uuid", "uuid4":
		return "must be a valid UUID"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
