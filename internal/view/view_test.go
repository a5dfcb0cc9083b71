package view

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querypad/internal/model"
)

type fakeAPI struct {
	mu       sync.Mutex
	queries  []string
	greeting func(ctx context.Context) (string, error)
	query    func(ctx context.Context, text string) (model.ResultSet, error)
}

func (f *fakeAPI) Greeting(ctx context.Context) (string, error) {
	return f.greeting(ctx)
}

func (f *fakeAPI) Query(ctx context.Context, text string) (model.ResultSet, error) {
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.mu.Unlock()
	return f.query(ctx, text)
}

func rows(pairs ...any) model.ResultSet {
	row := model.NewRow()
	for i := 0; i+1 < len(pairs); i += 2 {
		row.Set(pairs[i].(string), pairs[i+1])
	}
	return model.ResultSet{row}
}

func TestSubmitReplacesResults(t *testing.T) {
	api := &fakeAPI{query: func(ctx context.Context, text string) (model.ResultSet, error) {
		return rows("q", text), nil
	}}
	v := New(api, nil)

	assert.False(t, v.Snapshot().HasRun())

	v.SetQuery("SELECT 1")
	require.NoError(t, v.Submit(context.Background()))
	v.SetQuery("SELECT 2")
	require.NoError(t, v.Submit(context.Background()))

	snap := v.Snapshot()
	assert.True(t, snap.HasRun())
	assert.Equal(t, "SELECT 2", snap.Query)
	require.Len(t, snap.Results, 1)
	got, _ := snap.Results[0].Get("q")
	assert.Equal(t, "SELECT 2", got)
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, api.queries)
}

func TestSubmitEmptyResultIsDistinctFromNotRun(t *testing.T) {
	api := &fakeAPI{query: func(ctx context.Context, text string) (model.ResultSet, error) {
		return model.ResultSet{}, nil
	}}
	v := New(api, nil)

	require.NoError(t, v.Submit(context.Background()))
	snap := v.Snapshot()
	assert.True(t, snap.HasRun())
	assert.Empty(t, snap.Results)
}

func TestSubmitFailureKeepsResults(t *testing.T) {
	logger, hook := test.NewNullLogger()
	fail := errors.New("connection refused")

	var err error
	api := &fakeAPI{query: func(ctx context.Context, text string) (model.ResultSet, error) {
		if err != nil {
			return nil, err
		}
		return rows("a", 1), nil
	}}
	v := New(api, logger)

	require.NoError(t, v.Submit(context.Background()))
	before := v.Snapshot().Results

	err = fail
	v.SetQuery("SELECT broken")
	assert.ErrorIs(t, v.Submit(context.Background()), fail)

	snap := v.Snapshot()
	assert.Equal(t, before, snap.Results)
	assert.ErrorIs(t, snap.Err, fail)
	assert.Equal(t, "SELECT broken", snap.Query)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "query submission failed", hook.LastEntry().Message)

	// the next success clears the error
	err = nil
	require.NoError(t, v.Submit(context.Background()))
	assert.NoError(t, v.Snapshot().Err)
}

func TestSubmitDiscardsSupersededResponse(t *testing.T) {
	started := make(chan string, 2)
	api := &fakeAPI{query: func(ctx context.Context, text string) (model.ResultSet, error) {
		started <- text
		if text == "slow" {
			// answer only once canceled, i.e. after the newer submission began
			<-ctx.Done()
			return rows("from", "slow"), nil
		}
		return rows("from", "fast"), nil
	}}
	v := New(api, nil)

	v.SetQuery("slow")
	slowErr := make(chan error, 1)
	go func() { slowErr <- v.Submit(context.Background()) }()
	require.Equal(t, "slow", <-started)

	v.SetQuery("fast")
	require.NoError(t, v.Submit(context.Background()))
	require.Equal(t, "fast", <-started)

	assert.ErrorIs(t, <-slowErr, ErrSuperseded)

	snap := v.Snapshot()
	require.Len(t, snap.Results, 1)
	got, _ := snap.Results[0].Get("from")
	assert.Equal(t, "fast", got)
}

func TestLoadGreeting(t *testing.T) {
	api := &fakeAPI{greeting: func(ctx context.Context) (string, error) {
		return "Backend is running!", nil
	}}
	v := New(api, nil)

	require.NoError(t, v.LoadGreeting(context.Background()))
	assert.Equal(t, "Backend is running!", v.Snapshot().Message)
}

func TestLoadGreetingFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	api := &fakeAPI{greeting: func(ctx context.Context) (string, error) {
		return "", errors.New("dial tcp: connection refused")
	}}
	v := New(api, logger)

	assert.Error(t, v.LoadGreeting(context.Background()))
	assert.Empty(t, v.Snapshot().Message)
	assert.Len(t, hook.Entries, 1)
}

func TestLoadGreetingLogsFailureOnce(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	fail := true
	api := &fakeAPI{greeting: func(ctx context.Context) (string, error) {
		if fail {
			return "", errors.New("dial tcp: connection refused")
		}
		return "Backend is running!", nil
	}}
	v := New(api, logger)

	for i := 0; i < 3; i++ {
		assert.Error(t, v.LoadGreeting(context.Background()))
	}
	require.Len(t, hook.Entries, 3)
	assert.Equal(t, logrus.ErrorLevel, hook.Entries[0].Level)
	assert.Equal(t, logrus.DebugLevel, hook.Entries[1].Level)
	assert.Equal(t, logrus.DebugLevel, hook.Entries[2].Level)

	fail = false
	require.NoError(t, v.LoadGreeting(context.Background()))
	assert.Equal(t, "Backend is running!", v.Snapshot().Message)

	fail = true
	hook.Reset()
	assert.Error(t, v.LoadGreeting(context.Background()))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}
