package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Domenick1991/exambooking/api"
	"github.com/Domenick1991/exambooking/config"
	"github.com/gin-gonic/gin"
)

// Run serves the HTTP API and blocks until the context is canceled or the
// server fails.
func Run(
	ctx context.Context,
	cfg *config.Config,
	auth api.Authenticator,
	limiter api.RateLimiter,
	admissions *api.AdmissionHandler,
	imports *api.ImportHandler,
	sessions *api.SessionHandler,
) error {
	router := gin.Default()

	v1 := router.Group("/api/v1")
	sessions.Register(v1)

	admin := v1.Group("/admin", api.RequireAuth(auth))
	imports.Register(admin)

	overrideLimit := cfg.Booking.OverrideRateLimit
	overrideWindow := time.Duration(cfg.Booking.OverrideRateWindowSecs) * time.Second
	bookings := admin.Group("", api.RateLimit(limiter, "admin_booking", overrideLimit, overrideWindow))
	admissions.Register(bookings)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
