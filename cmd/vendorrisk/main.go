// ABOUTME: Entry point for the VendorRisk assessment service.
// ABOUTME: Handles initialization, configuration parsing, and starts the HTTP server.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jfeddern/VendorRisk/internal/engine"
	"github.com/jfeddern/VendorRisk/internal/metrics"
	"github.com/jfeddern/VendorRisk/internal/providers"
	"github.com/jfeddern/VendorRisk/internal/repository"
	"github.com/jfeddern/VendorRisk/internal/scorer"
	"github.com/jfeddern/VendorRisk/internal/server"

	"github.com/sirupsen/logrus"
)

// Supported assessment stores
const (
	StoreMemory   = "memory"
	StoreSQLite   = repository.DialectSQLite
	StorePostgres = repository.DialectPostgres
)

func main() {
	config, err := parseConfig(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Set up structured logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if level, err := logrus.ParseLevel(envLevel); err == nil {
			logger.SetLevel(level)
		} else {
			logger.WithField("log_level", envLevel).Warn("Ignoring invalid LOG_LEVEL")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Received shutdown signal")
		cancel()
	}()

	service, err := NewService(ctx, config, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create service")
	}
	defer service.Close()

	if err := service.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start service")
	}
}

// parseConfig reads flags from args, then lets environment variables override them
func parseConfig(args []string, getenv func(string) string) (*engine.Config, error) {
	config := &engine.Config{}

	flags := flag.NewFlagSet("vendorrisk", flag.ContinueOnError)
	flags.StringVar(&config.Mode, "mode", providers.ModeLocal, "Profile source: local, cluster or s3")
	flags.IntVar(&config.Port, "port", 9090, "Port to serve the API and metrics on")
	flags.StringVar(&config.ProfileFile, "profile-file", "", "Path to a JSON or YAML profile file (required for local mode)")
	flags.StringVar(&config.Namespace, "namespace", "", "Namespace holding profile ConfigMaps (all namespaces when empty)")
	flags.StringVar(&config.S3Bucket, "s3-bucket", "", "S3 bucket holding profile objects (required for s3 mode)")
	flags.StringVar(&config.S3Prefix, "s3-prefix", "", "Key prefix of profile objects in the S3 bucket")
	flags.StringVar(&config.S3Region, "s3-region", "", "AWS region of the S3 bucket")
	flags.DurationVar(&config.AssessInterval, "assess-interval", 24*time.Hour, "Interval between assessment runs")
	flags.StringVar(&config.Store, "store", StoreMemory, "Assessment store: memory, sqlite or postgres")
	flags.StringVar(&config.DatabaseDSN, "database-dsn", "", "Database DSN for the sqlite or postgres store")
	flags.IntVar(&config.MaxConcurrency, "max-concurrency", 10, "Maximum vendors assessed in parallel")
	flags.BoolVar(&config.MockMode, "mock", false, "Enable mock mode for local testing (no external API calls)")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	// Override with environment variables if set
	if envMode := getenv("MODE"); envMode != "" {
		config.Mode = envMode
	}
	if envPort := getenv("PORT"); envPort != "" {
		port, err := strconv.Atoi(envPort)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT environment variable: %s", envPort)
		}
		config.Port = port
	}
	if envFile := getenv("PROFILE_FILE"); envFile != "" {
		config.ProfileFile = envFile
	}
	if envNamespace := getenv("PROFILE_NAMESPACE"); envNamespace != "" {
		config.Namespace = envNamespace
	}
	if envBucket := getenv("S3_BUCKET"); envBucket != "" {
		config.S3Bucket = envBucket
	}
	if envPrefix := getenv("S3_PREFIX"); envPrefix != "" {
		config.S3Prefix = envPrefix
	}
	if envRegion := getenv("AWS_REGION"); envRegion != "" {
		config.S3Region = envRegion
	}
	if envInterval := getenv("ASSESS_INTERVAL"); envInterval != "" {
		interval, err := time.ParseDuration(envInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid ASSESS_INTERVAL environment variable: %s", envInterval)
		}
		config.AssessInterval = interval
	}
	if envStore := getenv("STORE"); envStore != "" {
		config.Store = envStore
	}
	if envDSN := getenv("DATABASE_DSN"); envDSN != "" {
		config.DatabaseDSN = envDSN
	}
	if envMock := getenv("MOCK_MODE"); envMock == "true" || envMock == "1" {
		config.MockMode = true
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *engine.Config) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", config.Port)
	}
	if config.AssessInterval <= 0 {
		return fmt.Errorf("assess interval must be positive, got %s", config.AssessInterval)
	}

	switch config.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if config.DatabaseDSN == "" {
			return fmt.Errorf("database DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unsupported store: %s", config.Store)
	}

	if config.MockMode {
		return nil
	}

	switch config.Mode {
	case providers.ModeLocal:
		if config.ProfileFile == "" {
			return fmt.Errorf("profile file is required for local mode (unless using mock mode)")
		}
	case providers.ModeS3:
		if config.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 mode (unless using mock mode)")
		}
	case providers.ModeCluster:
	default:
		return fmt.Errorf("unsupported mode: %s", config.Mode)
	}
	return nil
}

type Service struct {
	config *engine.Config
	logger *logrus.Logger
	engine *engine.Engine
	closer func() error
}

func NewService(ctx context.Context, config *engine.Config, logger *logrus.Logger) (*Service, error) {
	logger.WithFields(logrus.Fields{
		"mode":            config.Mode,
		"port":            config.Port,
		"store":           config.Store,
		"assess_interval": config.AssessInterval,
		"mock":            config.MockMode,
	}).Info("Initializing VendorRisk")

	providerConfig := &providers.ProviderConfig{
		Mode:        config.Mode,
		ProfileFile: config.ProfileFile,
		Namespace:   config.Namespace,
		S3Bucket:    config.S3Bucket,
		S3Prefix:    config.S3Prefix,
		S3Region:    config.S3Region,
		MockMode:    config.MockMode,
	}

	source, err := providers.CreateProfileSource(ctx, providerConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile source: %w", err)
	}

	repo, closer, err := openRepository(config, logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		config: config,
		logger: logger,
		engine: engine.NewEngine(source, scorer.NewScorer(), repo, config, logger),
		closer: closer,
	}, nil
}

func openRepository(config *engine.Config, logger *logrus.Logger) (repository.Repository, func() error, error) {
	switch config.Store {
	case StoreSQLite, StorePostgres:
		db, err := repository.OpenDatabase(config.Store, config.DatabaseDSN, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s store: %w", config.Store, err)
		}
		return db, db.Close, nil
	default:
		return repository.NewMemoryRepository(logger), func() error { return nil }, nil
	}
}

// Close stops the engine and releases the assessment store
func (s *Service) Close() {
	s.engine.Close()
	if err := s.closer(); err != nil {
		s.logger.WithError(err).Warn("Failed to close assessment store")
	}
}

// Handler builds the HTTP routes served by the service
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", s.securityMiddleware(metrics.CreateMetricsHandler(s.engine, s.logger)))
	mux.HandleFunc("/health", s.securityMiddleware(s.healthHandler))
	server.NewVendorsHandler(s.engine, s.logger).Register(mux, s.securityMiddleware)
	return mux
}

func (s *Service) Start(ctx context.Context) error {
	// Start the assessment engine
	go s.engine.Start(ctx)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Warn("HTTP server shutdown did not complete cleanly")
		}
	}()

	s.logger.WithFields(logrus.Fields{
		"port": s.config.Port,
		"mode": s.config.Mode,
	}).Info("Starting HTTP server")

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Service) securityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Security headers
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'none'; object-src 'none'; frame-ancestors 'none'")

		// Only allow specific HTTP methods
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote_ip":  r.RemoteAddr,
			"user_agent": r.UserAgent(),
		}).Debug("HTTP request received")

		next(w, r)
	}
}

func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok"}`)
}
