package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// DefaultMaxBodyBytes caps request bodies after decompression.
const DefaultMaxBodyBytes int64 = 1 << 20

// DecompressRequest inflates gzip encoded request bodies. The inflated body is
// limited to maxBytes so a small compressed payload cannot expand unbounded.
func DecompressRequest(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Content-Encoding"), "gzip") {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
			c.Next()
			return
		}

		compressed := c.Request.Body
		reader, err := gzip.NewReader(compressed)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		defer compressed.Close()
		defer reader.Close()

		c.Request.Body = http.MaxBytesReader(c.Writer, reader, maxBytes)
		c.Request.Header.Del("Content-Encoding")
		c.Request.ContentLength = -1
		c.Next()
	}
}
