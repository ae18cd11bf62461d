// Package response defines the standardised JSON envelope every HTTP
// response carries, successful or not.
package response

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorInfo describes a failed request. Code is always "ERR_<status>".
type ErrorInfo struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// ApiResponse is the envelope returned to HTTP clients. Exactly one of Data
// and Error is non-null; Status mirrors the HTTP status line.
type ApiResponse struct {
	Status  int        `json:"status"`
	Message string     `json:"message"`
	Data    any        `json:"data"`
	Error   *ErrorInfo `json:"error"`
}

// Success builds a 2xx envelope around data.
func Success(status int, data any) ApiResponse {
	return ApiResponse{
		Status:  status,
		Message: http.StatusText(status),
		Data:    data,
	}
}

// Error builds a failure envelope for status with the given detail.
func Error(status int, detail string) ApiResponse {
	return ApiResponse{
		Status:  status,
		Message: http.StatusText(status),
		Error:   &ErrorInfo{Code: fmt.Sprintf("ERR_%d", status), Detail: detail},
	}
}

// WriteSuccess writes a success envelope to the client.
func WriteSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, Success(status, data))
}

// WriteError writes a failure envelope to the client.
func WriteError(c *gin.Context, status int, detail string) {
	c.JSON(status, Error(status, detail))
}

// AbortError writes a failure envelope and stops the handler chain.
func AbortError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, Error(status, detail))
}
