package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is the request-ID header, honored inbound and always
// set on the response.
const HeaderRequestID = "X-Request-ID"

// RequestID tags every request with an ID so a response can be matched
// to its log lines. An inbound X-Request-ID is trusted and passed
// through; otherwise a fresh UUID is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
