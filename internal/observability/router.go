package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// SessionInfo is what the health endpoint reports about the running session.
type SessionInfo struct {
	Session string
	Backend string
	Version string
	Step    func() time.Duration
}

// Router serves /health and /metrics for a running bridge session.
func Router(info SessionInfo, logger zerolog.Logger) *gin.Engine {
	RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger, info), RequestMetricsMiddleware(info.Backend))

	started := time.Now()
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"session": info.Session,
			"backend": info.Backend,
			"version": info.Version,
			"uptime":  time.Since(started).Round(time.Second).String(),
		}
		if info.Step != nil {
			body["sim_time"] = info.Step().String()
		}
		c.JSON(http.StatusOK, body)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// Serve runs the router on addr until ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler, logger zerolog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("diagnostics listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
