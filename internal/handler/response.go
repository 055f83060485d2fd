package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"quickbid/internal/apperr"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Error   string         `json:"error,omitempty"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

// Raw writes a pre-encoded data payload. The bytes are embedded unchanged so
// stored responses replay identically.
func Raw(c *gin.Context, status int, data json.RawMessage) {
	c.JSON(status, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Fail maps a service error to its HTTP form. Internal causes are never
// echoed to the client.
func Fail(c *gin.Context, err error) {
	e := apperr.From(err)
	if e == nil {
		return
	}
	if e.Err != nil {
		_ = c.Error(e.Err)
	}
	status := e.Status()
	if e.Kind == apperr.KindRestricted {
		// Restriction details are also lifted to the top level.
		body := gin.H{"code": status, "message": e.Message, "error": e.Code, "meta": e.Meta}
		for k, v := range e.Meta {
			if _, taken := body[k]; !taken {
				body[k] = v
			}
		}
		c.JSON(status, body)
		return
	}
	c.JSON(status, apiResponse{
		Code:    status,
		Message: e.Message,
		Error:   e.Code,
		Meta:    e.Meta,
	})
}

// Abort is the rejection hook handed to auth and rate-limit middleware.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, apiResponse{
		Code:    status,
		Message: message,
		Error:   code,
	})
}
