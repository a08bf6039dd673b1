package middleware

import (
	"errors"
	"net/http"

	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

// BodyLimit caps request bodies at maxBytes. A declared Content-Length over
// the cap is rejected before the handler runs. Chunked bodies are wrapped in
// http.MaxBytesReader, and the overflow surfaces when the handler binds JSON
// (see HandleValidationError). A non-positive maxBytes disables the cap.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if !carriesBody(c.Request) {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			abortWithError(c, dto.ErrCodeRequestTooLarge, bodyTooLargeMessage(maxBytes))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// carriesBody reports whether the request method and body can carry a
// payload. Lead and user reads never do.
func carriesBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return r.Body != nil && r.Body != http.NoBody
}

// bodyTooLarge reports whether err came from a MaxBytesReader cutoff and
// returns the limit that was hit
func bodyTooLarge(err error) (int64, bool) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return maxErr.Limit, true
	}
	return 0, false
}

func bodyTooLargeMessage(limit int64) string {
	return "Request body exceeds the " + humanize.IBytes(uint64(limit)) + " limit"
}
