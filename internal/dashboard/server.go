// Package dashboard serves the ops endpoints: health, queue stats, and
// prometheus metrics.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stickerpress/curator/internal/queue"
	"github.com/stickerpress/curator/internal/scheduler"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Store *queue.Store
	Sched *scheduler.CycleScheduler
	Port  int
	Out   io.Writer
}

// Start launches the ops HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Store == nil {
		return fmt.Errorf("dashboard: queue store is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts.Store, opts.Sched)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// registerRoutes sets up all ops routes on the Gin router.
func registerRoutes(router *gin.Engine, store *queue.Store, sched *scheduler.CycleScheduler) {
	router.GET("/healthz", handleHealth())
	router.GET("/api/stats", handleStats(store, sched))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleStats(store *queue.Store, sched *scheduler.CycleScheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := store.Counts()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "queue counts unavailable"})
			return
		}

		payload := gin.H{"queue": counts}
		if sched != nil {
			payload["scheduler"] = gin.H{
				"state":           sched.State(),
				"breaker_tripped": sched.BreakerTripped(),
				"last_cycle":      sched.LastCycle(),
			}
		}
		c.JSON(http.StatusOK, payload)
	}
}
