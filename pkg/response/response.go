package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type APIResponse[T any] struct {
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      T         `json:"data"`
	Meta      any       `json:"meta,omitempty"`
	Error     any       `json:"error,omitempty"`
}

// Build returns a success envelope without writing it.
func Build[T any](ctx *gin.Context, status int, data T, message string, meta any) APIResponse[T] {
	if status == 0 {
		status = http.StatusOK
	}
	return APIResponse[T]{
		Status:    status,
		Timestamp: time.Now().UTC(),
		RequestID: ctx.GetString("request_id"),
		Success:   true,
		Message:   message,
		Data:      data,
		Meta:      meta,
	}
}

// Success writes a success envelope as JSON.
func Success[T any](ctx *gin.Context, status int, data T, message string, meta any) APIResponse[T] {
	resp := Build(ctx, status, data, message, meta)
	ctx.JSON(resp.Status, resp)
	return resp
}

func failure(ctx *gin.Context, status int, message string, err any) APIResponse[any] {
	if status == 0 {
		status = http.StatusBadRequest
	}
	return APIResponse[any]{
		Status:    status,
		Timestamp: time.Now().UTC(),
		RequestID: ctx.GetString("request_id"),
		Success:   false,
		Message:   message,
		Error:     err,
	}
}

// Error writes an error envelope as JSON.
func Error(ctx *gin.Context, status int, message string, err any) APIResponse[any] {
	resp := failure(ctx, status, message, err)
	ctx.JSON(resp.Status, resp)
	return resp
}

// Abort writes an error envelope and stops the handler chain.
func Abort(ctx *gin.Context, status int, message string, err any) {
	resp := failure(ctx, status, message, err)
	ctx.AbortWithStatusJSON(resp.Status, resp)
}
