package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quatton/qgen/pkg/qapi"
	"github.com/quatton/qgen/pkg/qapi/config"
	"github.com/quatton/qgen/pkg/qapi/routes"
	"github.com/quatton/qgen/pkg/qapi/services"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gateway over HTTP",
	Long: `Starts the HTTP gateway. Configuration comes from the environment (and .env
in development): REPLICATE_API_TOKEN, PORT, VALKEY_ADDR for a shared response
cache, S3_ENDPOINT or ARTIFACT_DIR for storing generated images.`,
	Run: serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.ValidateEnv()
	if err != nil {
		log.Fatalf("❌ %v\n", err)
	}

	cfg.Print(log.Printf)

	svcs, err := services.NewServices(ctx, cfg, getLogger(cmd))
	if err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	defer svcs.Close()

	api := qapi.NewApi()
	routes.RegisterAPI(api.Api, svcs)

	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{Addr: addr, Handler: api.Router, ReadHeaderTimeout: 10 * time.Second}

	log.Printf("🚀 Gateway starting on %s\n", addr)
	log.Printf("📚 OpenAPI docs: http://localhost%s/docs\n", addr)
	log.Printf("📄 OpenAPI document: http://localhost%s/openapi.json\n", addr)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
		}
	}
}
