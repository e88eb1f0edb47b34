package middleware

import (
	"errors"
	"io"
	"net/http"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/flexprice/invoicer/internal/types"
	"github.com/gin-gonic/gin"
)

const HeaderRequestID = "X-Request-ID"

func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	c.Request = c.Request.WithContext(types.SetRequestID(c.Request.Context(), requestID))
	c.Header(HeaderRequestID, requestID)

	c.Next()
}

// BindOptionalJSON decodes the request body into v when one was sent.
// Chunked and HTTP/2 bodies carry no Content-Length, so presence is judged by the body itself.
// A missing or empty body leaves v at its zero value.
func BindOptionalJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation)
	}
	return nil
}
