// Package metrics exposes Prometheus counters for spins, re-rolls, focus
// sessions and task changes, plus a small HTTP server to scrape them.
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"task-tamer/internal/app"
	"task-tamer/internal/model"
)

// Recorder records application metrics. A nil *Recorder is a no-op.
type Recorder struct {
	registry *prometheus.Registry

	spinsTotal        prometheus.Counter
	rerollsTotal      *prometheus.CounterVec
	checkInsTotal     prometheus.Counter
	tasksCreated      *prometheus.CounterVec
	tasksCompleted    *prometheus.CounterVec
	focusSessions     prometheus.Counter
	focusMinutes      prometheus.Counter
	activeSessions    prometheus.Gauge
	botUpdateDuration *prometheus.HistogramVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		spinsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasktamer_spins_total",
			Help: "Daily spins drawn on first visit",
		}),
		rerollsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktamer_rerolls_total",
			Help: "Re-roll requests by result",
		}, []string{"result"}),
		checkInsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasktamer_checkins_total",
			Help: "Saved daily check-ins",
		}),
		tasksCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktamer_tasks_created_total",
			Help: "Created tasks by category",
		}, []string{"category"}),
		tasksCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tasktamer_tasks_completed_total",
			Help: "Completed tasks by category",
		}, []string{"category"}),
		focusSessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasktamer_focus_sessions_total",
			Help: "Recorded focus sessions",
		}),
		focusMinutes: factory.NewCounter(prometheus.CounterOpts{
			Name: "tasktamer_focus_minutes_total",
			Help: "Planned minutes of recorded focus sessions",
		}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tasktamer_signed_in_users",
			Help: "Users currently signed in",
		}),
		botUpdateDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tasktamer_bot_update_duration_seconds",
			Help:    "Time spent handling a Telegram update",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "status"}),
	}
}

// Registry is the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Spin() {
	if r == nil {
		return
	}
	r.spinsTotal.Inc()
}

// Reroll records a re-roll outcome: "ok", "limit" or "error".
func (r *Recorder) Reroll(result string) {
	if r == nil {
		return
	}
	r.rerollsTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) CheckIn() {
	if r == nil {
		return
	}
	r.checkInsTotal.Inc()
}

func (r *Recorder) TaskCreated(c model.Category) {
	if r == nil {
		return
	}
	r.tasksCreated.WithLabelValues(string(c)).Inc()
}

func (r *Recorder) TaskCompleted(c model.Category) {
	if r == nil {
		return
	}
	r.tasksCompleted.WithLabelValues(string(c)).Inc()
}

func (r *Recorder) FocusSession(minutes int) {
	if r == nil {
		return
	}
	r.focusSessions.Inc()
	r.focusMinutes.Add(float64(minutes))
}

// ObserveUpdate records how long a bot update took.
func (r *Recorder) ObserveUpdate(kind string, err error, d time.Duration) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.botUpdateDuration.WithLabelValues(kind, status).Observe(d.Seconds())
}

// OnSessionEvent keeps the signed-in gauge current. Pass it to app.Sessions.Subscribe.
func (r *Recorder) OnSessionEvent(ev app.Event) {
	if r == nil {
		return
	}
	switch ev.Kind {
	case app.EventSignedIn:
		r.activeSessions.Inc()
	case app.EventSignedOut:
		r.activeSessions.Dec()
	}
}

// Handler serves /metrics and /healthz.
func (r *Recorder) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve listens on addr until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics shutdown: %v", err)
		}
	}()

	log.Printf("[info] metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
