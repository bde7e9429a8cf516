package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// TotalCountHeader carries the unpaginated match count of list and search calls.
const TotalCountHeader = "X-Total-Count"

// Response is the error body shared by every endpoint.
type Response struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	EntityName string `json:"entityName,omitempty"`
	ErrorKey   string `json:"errorKey,omitempty"`
}

// AppError represents a structured application error with HTTP status and error code.
type AppError struct {
	HTTPStatus int    // HTTP status code (e.g. 400, 404, 500)
	Code       int    // Application-level error code
	Message    string // Human-readable error message
	EntityName string
	ErrorKey   string // machine-readable reason, e.g. "idexists"
}

func (e *AppError) Error() string {
	return e.Message
}

// WithEntity returns a copy of e scoped to an entity and error key.
func (e *AppError) WithEntity(entityName, errorKey string) *AppError {
	cp := *e
	cp.EntityName = entityName
	cp.ErrorKey = errorKey
	return &cp
}

func NewBadRequest(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusBadRequest, Code: 400, Message: msg}
}

// NewBadRequestAlert is the 400 raised for id and reference rule violations.
func NewBadRequestAlert(msg, entityName, errorKey string) *AppError {
	return NewBadRequest(msg).WithEntity(entityName, errorKey)
}

func NewNotFound(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusNotFound, Code: 404, Message: msg}
}

func NewMethodNotAllowed(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusMethodNotAllowed, Code: 405, Message: msg}
}

func NewTooManyRequests(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusTooManyRequests, Code: 429, Message: msg}
}

func NewServerError(msg string) *AppError {
	return &AppError{HTTPStatus: http.StatusInternalServerError, Code: 500, Message: msg}
}

// --- Gin response helpers ---

// Success sends a 200 with the bare resource body.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 with a Location header pointing at the new resource.
func Created(c *gin.Context, location string, data interface{}) {
	if location != "" {
		c.Header("Location", location)
	}
	c.JSON(http.StatusCreated, data)
}

// List sends a JSON array and the total match count header.
// A nil slice is rendered as [] rather than null.
func List[T any](c *gin.Context, items []T, total int64) {
	if items == nil {
		items = []T{}
	}
	c.Header(TotalCountHeader, strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, items)
}

// Count sends a bare integer body.
func Count(c *gin.Context, n int64) {
	c.Data(http.StatusOK, "application/json", []byte(strconv.FormatInt(n, 10)))
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response. If err is an *AppError, its code and status
// are used; otherwise a generic 500 internal server error is returned.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *AppError
	if errors.As(err, &appErr) {
		c.AbortWithStatusJSON(appErr.HTTPStatus, Response{
			Code:       appErr.Code,
			Message:    appErr.Message,
			EntityName: appErr.EntityName,
			ErrorKey:   appErr.ErrorKey,
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
		Code:    500,
		Message: err.Error(),
	})
}

func BadRequest(c *gin.Context, msg string) {
	Error(c, NewBadRequest(msg))
}

func NotFound(c *gin.Context, msg string) {
	Error(c, NewNotFound(msg))
}

func MethodNotAllowed(c *gin.Context) {
	Error(c, NewMethodNotAllowed("method not allowed"))
}

func ServerError(c *gin.Context, msg string) {
	Error(c, NewServerError(msg))
}
