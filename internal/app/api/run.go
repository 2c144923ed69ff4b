package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/http/auth"
	orderhandlers "github.com/remesas/remittance-api/internal/domains/remittances/adapters/http/handlers"
	"github.com/remesas/remittance-api/internal/domains/remittances/application"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
	typehandlers "github.com/remesas/remittance-api/internal/domains/remittancetypes/adapters/http/handlers"
	"github.com/remesas/remittance-api/internal/platform/metrics"
	apierrors "github.com/remesas/remittance-api/internal/shared/errors"
)

// Run boots the remittance HTTP API and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	const serviceName = "remittance-api"
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required to serve the API")
	}
	c, err := bootstrap(ctx, cfg, serviceName)
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.logger

	opts := []application.Option{application.WithDispatcher(c.dispatcher())}
	if resolver := c.proofResolver(ctx); resolver != nil {
		opts = append(opts, application.WithProofResolver(resolver))
	}
	_, orderService, err := c.orderService(opts...)
	if err != nil {
		return err
	}
	c.runBridge(ctx)

	router := newRouter(c, orderService, auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer))
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("remittance API listening", slog.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("remittance API server exited", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("remittance API stopped")
	return nil
}

func newRouter(c *components, orderService ports.Service, verifier *auth.Verifier) *gin.Engine {
	router := gin.New()
	router.Use(apierrors.Recovery(c.logger), otelgin.Middleware(c.serviceName))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler(c.registry)))

	v1 := router.Group("/v1", auth.Middleware(verifier))
	orderhandlers.NewOrderAPI(orderService).Register(v1)
	typehandlers.NewTypeAPI(c.types).Register(v1)
	return router
}
