package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bounty-board/config"
	"bounty-board/handlers"
	"bounty-board/middleware"
	"bounty-board/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the auto-resolver and the payout worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := loadRuntime(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer rt.Close()

			return serve(ctx, rt)
		},
	}
}

func newApp(rt *runtime) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	// 🔐 Only gateway requests, except health and metrics probes
	app.Use(middleware.GatewayAuthMiddleware(rt.cfg.ServiceToken, "/healthz", "/metrics"))

	app.Use(cors.New(cors.Config{
		AllowOrigins: rt.cfg.Origins(),
		AllowMethods: "GET,POST,OPTIONS,HEAD",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles, X-Service-Token",
		MaxAge:       86400,
	}))

	handlers.SetupBountyRoutes(app, rt.engine, rt.resolver)
	return app
}

func serve(ctx context.Context, rt *runtime) error {
	app := newApp(rt)

	if err := rt.resolver.Start(ctx); err != nil {
		return err
	}
	if rt.cfg.PayoutPolicy == config.PayoutCommitThenPay {
		go workers.PollPayouts(ctx, rt.engine, rt.cfg.PayoutRetryInterval())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(rt.cfg.ListenAddr)
	}()

	log.Printf("✅ Server running on %s (store: %s, payout policy: %s)", rt.cfg.ListenAddr, rt.cfg.StoreBackend, rt.cfg.PayoutPolicy)
	log.Printf("✅ CORS configured for origins: %s", rt.cfg.Origins())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}
