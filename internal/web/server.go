package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"querypad/internal/logging"
	"querypad/internal/render"
	"querypad/internal/view"
)

//go:embed templates/*.html
var templates embed.FS

const defaultGreetingTimeout = 2 * time.Second

type Options struct {
	// ShowErrors displays the last submission failure above the table.
	ShowErrors bool
	// GreetingTimeout bounds the greeting fetch made while rendering a page.
	GreetingTimeout time.Duration
	Logger          logrus.FieldLogger
}

// Server is the browser front end. It renders the view state as a page and
// turns form posts into submissions.
type Server struct {
	view       *view.View
	renderer   *render.Renderer
	showErrors bool
	greetingTO time.Duration
	log        logrus.FieldLogger
}

func New(v *view.View, r *render.Renderer, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	timeout := opts.GreetingTimeout
	if timeout <= 0 {
		timeout = defaultGreetingTimeout
	}
	return &Server{
		view:       v,
		renderer:   r,
		showErrors: opts.ShowErrors,
		greetingTO: timeout,
		log:        log,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestID(), logging.Middleware(s.log))
	r.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/*.html")))

	r.GET("/", s.Index)
	r.POST("/submit", s.Submit)
	r.GET("/results.csv", s.ResultsCSV)
	return r
}

// Index renders the page. The greeting is fetched on page load until one
// arrives.
func (s *Server) Index(c *gin.Context) {
	snap := s.view.Snapshot()
	if snap.Message == "" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.greetingTO)
		if s.view.LoadGreeting(ctx) == nil {
			snap = s.view.Snapshot()
		}
		cancel()
	}

	var errMsg string
	if s.showErrors && snap.Err != nil {
		errMsg = snap.Err.Error()
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"Message": snap.Message,
		"Query":   snap.Query,
		"Table":   s.renderer.HTML(snap.Results),
		"Error":   errMsg,
	})
}

// Submit stores the posted query text, sends it and redirects back to the
// page. Failures are already logged by the view; the page keeps showing the
// previous table.
func (s *Server) Submit(c *gin.Context) {
	s.view.SetQuery(c.PostForm("query"))

	err := s.view.Submit(c.Request.Context())
	if errors.Is(err, view.ErrSuperseded) {
		logging.FromContext(c, s.log).Debug("submission superseded")
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) ResultsCSV(c *gin.Context) {
	snap := s.view.Snapshot()
	if !snap.HasRun() {
		c.String(http.StatusNotFound, "no query has been run")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="results.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(s.renderer.CSV(snap.Results)))
}
