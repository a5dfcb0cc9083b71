package logging

import (
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// New builds the process logger. format is "text" or "json".
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	if out != nil {
		logger.SetOutput(out)
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
	return logger, nil
}

// RequestID tags every request with an id, reusing the caller's if given.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// FromContext returns log with the request id of c attached.
func FromContext(c *gin.Context, log logrus.FieldLogger) logrus.FieldLogger {
	if id := c.GetString(requestIDKey); id != "" {
		return log.WithField(requestIDKey, id)
	}
	return log
}

// Middleware logs one line per request in place of gin's default logger.
func Middleware(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := FromContext(c, log).WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"client":   c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		entry.Info("request")
	}
}
