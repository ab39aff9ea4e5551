package logging

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// secretParams are query parameters whose values never reach the access log.
var secretParams = []string{"token"}

// AccessLog is gin's request logger with credentials stripped from the
// logged query string.
func AccessLog(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: out,
		Formatter: func(p gin.LogFormatterParams) string {
			if p.Latency > time.Minute {
				p.Latency = p.Latency.Truncate(time.Second)
			}
			return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
				p.TimeStamp.Format("2006/01/02 - 15:04:05"),
				p.StatusCode,
				p.Latency,
				p.ClientIP,
				p.Method,
				RedactQuery(p.Path),
				p.ErrorMessage,
			)
		},
	})
}

// RedactQuery replaces the values of secret query parameters in a request
// path with REDACTED.
func RedactQuery(path string) string {
	base, raw, ok := strings.Cut(path, "?")
	if !ok {
		return path
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return base + "?REDACTED"
	}
	changed := false
	for _, k := range secretParams {
		if _, ok := q[k]; ok {
			q.Set(k, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return path
	}
	return base + "?" + q.Encode()
}
