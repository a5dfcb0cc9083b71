package view

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"querypad/internal/model"
)

// ErrSuperseded is returned by Submit when a later submission started before
// this one's response arrived. The response is discarded.
var ErrSuperseded = errors.New("submission superseded by a newer one")

// API is the network side of the view.
type API interface {
	Greeting(ctx context.Context) (string, error)
	Query(ctx context.Context, text string) (model.ResultSet, error)
}

// View owns the state behind the query page: the greeting, the query text
// being edited and the last result set. It is only changed through its
// methods.
type View struct {
	api API
	log logrus.FieldLogger

	mu         sync.Mutex
	message    string
	query      string
	results    model.ResultSet
	lastErr    error
	generation uint64
	cancel     context.CancelFunc

	// greetingFailing is set while greeting fetches keep failing.
	greetingFailing bool
}

// Snapshot is a copy of the view state for rendering.
type Snapshot struct {
	Message string
	Query   string
	// Results is nil until a submission has succeeded.
	Results model.ResultSet
	// Err is the failure of the latest submission, if it failed.
	Err error
}

func (s Snapshot) HasRun() bool {
	return s.Results != nil
}

func New(api API, log logrus.FieldLogger) *View {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &View{api: api, log: log}
}

func (v *View) SetQuery(text string) {
	v.mu.Lock()
	v.query = text
	v.mu.Unlock()
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	return Snapshot{
		Message: v.message,
		Query:   v.query,
		Results: v.results,
		Err:     v.lastErr,
	}
}

// LoadGreeting fetches the greeting once. On failure the message is left as
// it was. Only the first of a run of failures is logged as an error.
func (v *View) LoadGreeting(ctx context.Context) error {
	msg, err := v.api.Greeting(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	if err != nil {
		if v.greetingFailing {
			v.log.WithError(err).Debug("load greeting")
		} else {
			v.log.WithError(err).Error("load greeting")
		}
		v.greetingFailing = true
		return err
	}

	v.greetingFailing = false
	v.message = msg
	return nil
}

// Submit sends the current query text and, if this is still the latest
// submission when the response arrives, replaces the whole result set with
// it. Starting a submission cancels the one in flight. On failure the
// previous result set stays.
func (v *View) Submit(ctx context.Context) error {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.generation++
	gen := v.generation
	text := v.query
	ctx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()
	defer cancel()

	log := v.log.WithFields(logrus.Fields{"generation": gen, "query": text})
	rs, err := v.api.Query(ctx, text)

	v.mu.Lock()
	defer v.mu.Unlock()

	if gen != v.generation {
		log.Debug("discarding superseded response")
		return ErrSuperseded
	}
	v.cancel = nil

	if err != nil {
		log.WithError(err).Error("query submission failed")
		v.lastErr = err
		return err
	}
	if rs == nil {
		rs = model.ResultSet{}
	}
	v.results = rs
	v.lastErr = nil
	log.WithField("rows", len(rs)).Debug("results replaced")
	return nil
}
