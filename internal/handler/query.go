package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"querypad/internal/logging"
	"querypad/internal/model"
)

var (
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "querypad_queries_total",
		Help: "Queries received on POST /query, by outcome.",
	}, []string{"outcome"})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "querypad_query_duration_seconds",
		Help:    "Time spent running queries against the database.",
		Buckets: prometheus.DefBuckets,
	})
)

// QueryHandler runs the posted query as is and answers with its rows as a
// JSON array of objects, keys in column order.
func (h *Handler) QueryHandler(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		queriesTotal.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if h.db == nil {
		queriesTotal.WithLabelValues("unavailable").Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No active database connection"})
		return
	}

	log := logging.FromContext(c, h.log).WithField("query", req.Query)
	log.Info("Executing query")

	start := time.Now()
	results, err := h.db.RunQuery(c.Request.Context(), req.Query)
	queryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		queriesTotal.WithLabelValues("error").Inc()
		log.WithError(err).Warn("Query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if results == nil {
		results = model.ResultSet{}
	}
	queriesTotal.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, results)
}
