package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"querypad/helper"
	"querypad/internal/logging"
	"querypad/internal/service"
)

type Options struct {
	// Message is returned by GET /.
	Message string
	// Schema is the default schema for GET /tables.
	Schema      string
	CORSOrigins []string
	Logger      logrus.FieldLogger
}

// Handler serves the querypad API over one database connection. A nil db
// answers every database route with 503.
type Handler struct {
	db      service.DBClient
	message string
	schema  string
	origins []string
	log     logrus.FieldLogger
}

func New(db service.DBClient, opts Options) *Handler {
	h := &Handler{
		db:      db,
		message: opts.Message,
		schema:  opts.Schema,
		origins: opts.CORSOrigins,
		log:     opts.Logger,
	}
	if h.message == "" {
		h.message = "Backend is running!"
	}
	if h.schema == "" {
		h.schema = "public"
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}
	return h
}

// Router builds the API engine with request ids, logging and CORS.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestID(), logging.Middleware(h.log))
	if len(h.origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     h.origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", logging.RequestIDHeader},
			ExposeHeaders:    []string{logging.RequestIDHeader},
			AllowCredentials: true,
		}))
	}

	r.GET("/", h.Root)
	r.GET("/ping", Ping)
	r.POST("/query", h.QueryHandler)
	r.GET("/tables", h.ListTablesHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": h.message})
}

func (h *Handler) ListTablesHandler(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No active database connection"})
		return
	}

	schema := c.DefaultQuery("schema", h.schema)
	if !helper.IsValidIdentifier(schema) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid schema name"})
		return
	}

	tables, err := h.db.ListTables(c.Request.Context(), schema)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if tables == nil {
		tables = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"tables": tables})
}
