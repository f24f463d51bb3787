package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/guarderia-api/internal/models"
	appErrors "github.com/noah-isme/guarderia-api/pkg/errors"
)

// Envelope is the body shape of every staff-facing endpoint.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// Attendance and presence data changes minute to minute; nothing is cacheable.
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends a success envelope. Multiple meta maps are merged left to right.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination, Meta: mergeMeta(meta)}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Accepted acknowledges work handed to a background queue.
func Accepted(c *gin.Context, data interface{}) {
	JSON(c, http.StatusAccepted, data, nil)
}

// Flat writes body without the envelope. Machine callers such as the
// scheduled reconciliation trigger read the payload at the top level.
func Flat(c *gin.Context, status int, body interface{}) {
	noStore(c)
	c.JSON(status, body)
}

// AbortFlat is Flat for middleware that must stop the chain.
func AbortFlat(c *gin.Context, status int, body interface{}) {
	noStore(c)
	c.AbortWithStatusJSON(status, body)
}

// Error maps err to an application error and writes it inside the envelope.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func mergeMeta(meta []map[string]interface{}) map[string]interface{} {
	var merged map[string]interface{}
	for _, m := range meta {
		if len(m) == 0 {
			continue
		}
		if merged == nil {
			merged = make(map[string]interface{}, len(m))
		}
		for k, v := range m {
			merged[k] = v
		}
	}
	return merged
}
