package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
)

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// closes realtime sessions and shuts the server down gracefully.
func (srv *HTTPServer) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", srv.host, srv.port),
		Handler: srv.gin,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	srv.logger.Infof(ctx, "HTTP server started on %s", server.Addr)

	select {
	case err, ok := <-errCh:
		if ok {
			srv.logger.Errorf(ctx, "HTTP server error: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	srv.logger.Info(context.Background(), "Stopping realtime service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), srv.shutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not tracked by Shutdown.
	srv.realtime.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		srv.logger.Errorf(shutdownCtx, "HTTP server shutdown error: %v", err)
		return err
	}
	return nil
}
