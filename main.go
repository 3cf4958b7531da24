package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	config *Config
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "risk-service",
		Short:        "Diabetes risk assessment from patient demographics and notes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Read configuration from file and environment
			var err error
			config, err = readConfig()
			if err != nil {
				return err
			}
			globalTimeout = config.Timeout
			return nil
		},
	}
	root.AddCommand(serveCmd())
	root.AddCommand(assessCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the risk HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			service := NewRiskService(NewPatientClient(config), NewNoteClient(config))
			e := newServer(NewRiskCache(service))

			// Start server
			go func() {
				zapLogger.Info("Starting server", zap.String("port", config.Port))
				if err := e.Start(":" + config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
					zapLogger.Fatal(err.Error())
				}
			}()

			// Wait for interrupt, then drain in-flight requests
			<-cmd.Context().Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(config.Timeout)*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}

func assessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assess <patient-id>",
		Short: "Compute the risk level of a single patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid patient id: %s", args[0])
			}

			service := NewRiskService(NewPatientClient(config), NewNoteClient(config))
			risk, err := service.ComputeRisk(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), risk)
			return nil
		},
	}
}

func newServer(cache *RiskCache) *echo.Echo {
	// Create new Echo object
	e := echo.New()
	e.HideBanner = true

	// Add basic middleware to log all requests
	e.Use(middleware.Logger())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	// Configure elastic apm logging
	initAPM(e)

	registerRoutes(e, cache)
	return e
}

func registerRoutes(e *echo.Echo, cache *RiskCache) {
	// Sets CORS headers to allow all origins, but restrict HTTP method type
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodDelete},
	}))

	// Middleware to provide more control over response status for APM transactions
	// This must go after the Elastic APM middleware
	e.Use(filterError)

	// Adds a heartbeat handler
	e.GET("/heartbeat", heartbeat)

	// Creates API group to simplify middleware declaration
	h := &riskHandler{cache: cache}
	riskGroup := e.Group("/risks", forwardAuth)
	riskGroup.GET("", h.getRisks)
	riskGroup.GET("/:id", h.getRisk)
	riskGroup.DELETE("/:id", h.invalidateRisk)
}
