package orm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/dorm/pkg/metrics"
	dormmw "github.com/shashiranjanraj/dorm/pkg/middleware"
	"github.com/shashiranjanraj/dorm/pkg/response"
	"github.com/shashiranjanraj/dorm/pkg/workerpool"
)

// DefaultAddr is where runserver listens when no address is given.
const DefaultAddr = "127.0.0.1:8000"

type health struct {
	Status    string            `json:"status"`
	Apps      []string          `json:"apps"`
	Databases map[string]string `json:"databases"`
}

// Handler returns the development HTTP surface: GET /healthz reports the
// installed apps and pings every database, GET /metrics exposes the
// registry.
func (e *Engine) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(dormmw.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.NotFound(response.NotFound)
	r.MethodNotAllowed(response.MethodNotAllowed)

	r.Get("/healthz", e.serveHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func (e *Engine) serveHealth(w http.ResponseWriter, r *http.Request) {
	body := health{Status: "ok", Apps: []string{}, Databases: map[string]string{}}
	status := http.StatusOK

	apps, err := e.Apps()
	if err != nil {
		body.Status = err.Error()
		response.JSON(w, http.StatusServiceUnavailable, body)
		return
	}
	for _, app := range apps {
		body.Apps = append(body.Apps, app.Label)
	}

	dbs, err := e.databases()
	if err != nil {
		body.Status = err.Error()
		response.JSON(w, http.StatusServiceUnavailable, body)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for alias, err := range workerpool.Probe(ctx, probeWorkers, dbs.Aliases(), dbs.Ping) {
		if err != nil {
			body.Databases[alias] = err.Error()
			body.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		body.Databases[alias] = "ok"
	}
	response.JSON(w, status, body)
}

// ─── runserver ────────────────────────────────────────────────────────────────

func newRunServerCmd(c *Commands) *cobra.Command {
	return &cobra.Command{
		Use:   "runserver [addrport]",
		Short: "Starts a lightweight web server for development.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.ready(); err != nil {
				return err
			}
			addr := DefaultAddr
			if len(args) == 1 {
				addr = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           c.engine.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🚀 Starting development server at http://%s/\nQuit the server with CONTROL-C.\n", addr)

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("runserver: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("runserver: shutdown: %w", err)
			}
			fmt.Fprintln(out, "\n⚡ Server stopped.")
			return nil
		},
	}
}
