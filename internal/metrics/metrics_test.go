package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tamer/internal/app"
	"task-tamer/internal/model"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.Spin()
	r.Reroll("ok")
	r.Reroll("ok")
	r.Reroll("limit")
	r.TaskCompleted(model.CategoryUrgent)
	r.FocusSession(25)
	r.FocusSession(15)
	r.ObserveUpdate("message", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.spinsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rerollsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rerollsTotal.WithLabelValues("limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tasksCompleted.WithLabelValues("urgent")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.focusSessions))
	assert.Equal(t, 40.0, testutil.ToFloat64(r.focusMinutes))
}

func TestSessionGauge(t *testing.T) {
	r := NewRecorder()
	r.OnSessionEvent(app.Event{Kind: app.EventSignedIn})
	r.OnSessionEvent(app.Event{Kind: app.EventSignedIn})
	r.OnSessionEvent(app.Event{Kind: app.EventTasksChanged})
	r.OnSessionEvent(app.Event{Kind: app.EventSignedOut})
	assert.Equal(t, 1.0, testutil.ToFloat64(r.activeSessions))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Spin()
		r.Reroll("ok")
		r.CheckIn()
		r.TaskCreated(model.CategorySoon)
		r.FocusSession(25)
		r.OnSessionEvent(app.Event{Kind: app.EventSignedIn})
		r.ObserveUpdate("message", nil, time.Second)
	})
	assert.Nil(t, r.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder()
	r.CheckIn()
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "tasktamer_checkins_total 1")

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))
}
