package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/dbmeter/internal/api"
	"github.com/RMahshie/dbmeter/internal/api/handlers"
	"github.com/RMahshie/dbmeter/internal/config"
	"github.com/RMahshie/dbmeter/internal/measurement"
	"github.com/RMahshie/dbmeter/internal/processing"
	"github.com/RMahshie/dbmeter/internal/repository"
	"github.com/RMahshie/dbmeter/internal/repository/memory"
	"github.com/RMahshie/dbmeter/internal/repository/postgres"
	"github.com/RMahshie/dbmeter/internal/repository/sqlite"
	"github.com/RMahshie/dbmeter/internal/sensor"
	"github.com/RMahshie/dbmeter/internal/settings"
	"github.com/RMahshie/dbmeter/internal/storage"
	"github.com/RMahshie/dbmeter/pkg/models"
)

func main() {
	// Configure zerolog for structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Durable storage
	kv, uploader, closeKV, err := openKeyValue(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("Failed to open storage")
	}
	defer closeKV()

	store, err := measurement.NewStore(ctx, kv, cfg.Meter.StoreCapacity)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load readings")
	}
	settingsSvc, err := settings.NewService(ctx, kv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	// Sampling pipeline
	pipeline := processing.NewSamplingPipeline(newSensor(cfg), store, settingsSvc, processing.Config{
		Interval:        cfg.Meter.SampleInterval,
		HistoryCapacity: cfg.Meter.HistoryCapacity,
		Reference:       cfg.Meter.CalibrationReference,
	})
	pipeline.SetAlerter(logAlerter{})

	// Create Chi router
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(zerologLogger())
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	// Create Huma API
	humaConfig := huma.DefaultConfig("dBMeter API", "1.0.0")
	humaConfig.DocsPath = "/api/docs"
	humaAPI := humachi.New(router, humaConfig)

	// Register health endpoint
	huma.Register(humaAPI, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service",
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		resp := &models.HealthResponse{}
		resp.Body.Status = "healthy"
		resp.Body.Version = "1.0.0"
		resp.Body.Recording = pipeline.State() == processing.StateRecording
		resp.Body.Time = time.Now()
		return resp, nil
	})

	api.RegisterRoutes(humaAPI, api.Dependencies{
		BaseContext: ctx,
		Meter:       pipeline,
		Readings:    store,
		Uploader:    uploader,
		Settings:    settingsSvc,
		Location:    time.Local,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Starting dBMeter API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Persist the in-flight session before the listener goes away
	if reading, err := pipeline.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to persist in-flight session")
	} else if reading != nil {
		log.Info().Str("readingID", reading.ID).Msg("In-flight session saved")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openKeyValue opens the configured durable store. uploader is non-nil only for
// object-store backends that can publish exports.
func openKeyValue(ctx context.Context, cfg *config.Config) (repository.KeyValue, handlers.ExportUploader, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case "memory":
		log.Warn().Msg("Using in-memory storage, readings will not survive a restart")
		return memory.NewKeyValue(), nil, noop, nil

	case "sqlite":
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = sqlite.DefaultPath()
		}
		kv, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, noop, err
		}
		log.Info().Str("path", path).Msg("SQLite storage opened")
		return kv, nil, func() { kv.Close() }, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, noop, fmt.Errorf("failed to connect to database: %w", err)
		}
		kv := postgres.NewPostgresKeyValue(db)
		if err := kv.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, noop, err
		}
		log.Info().Msg("Postgres storage connected")
		return kv, nil, func() { db.Close() }, nil

	case "s3":
		svc, err := storage.NewS3Service(storage.S3Config{
			Bucket:    cfg.AWS.S3Bucket,
			Endpoint:  cfg.AWS.S3Endpoint,
			Region:    cfg.AWS.Region,
			AccessKey: cfg.AWS.AccessKeyID,
			SecretKey: cfg.AWS.SecretAccessKey,
			Prefix:    "dbmeter/",
		})
		if err != nil {
			return nil, nil, noop, err
		}
		log.Info().Str("bucket", cfg.AWS.S3Bucket).Msg("S3 storage configured")
		return svc, svc, noop, nil

	case "minio":
		endpoint, secure := minioEndpoint(cfg.AWS.S3Endpoint)
		kv, err := storage.NewMinioKeyValue(ctx, storage.MinioConfig{
			Endpoint:  endpoint,
			AccessKey: cfg.AWS.AccessKeyID,
			SecretKey: cfg.AWS.SecretAccessKey,
			Bucket:    cfg.AWS.S3Bucket,
			UseSSL:    secure,
			Prefix:    "dbmeter/",
		})
		if err != nil {
			return nil, nil, noop, err
		}
		log.Info().Str("endpoint", endpoint).Str("bucket", cfg.AWS.S3Bucket).Msg("MinIO storage connected")
		return kv, nil, noop, nil
	}

	return nil, nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// minioEndpoint turns S3_ENDPOINT into the host:port form minio-go expects.
func minioEndpoint(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw, false
	}
	return u.Host, u.Scheme == "https"
}

func newSensor(cfg *config.Config) processing.SensorSource {
	if cfg.Sensor.Source == "mqtt" {
		log.Info().Str("broker", cfg.Sensor.MQTTBroker).Str("topic", cfg.Sensor.MQTTTopic).Msg("Using MQTT sensor")
		return sensor.NewMQTTSource(sensor.MQTTConfig{
			Broker:   cfg.Sensor.MQTTBroker,
			ClientID: cfg.Sensor.MQTTClientID,
			Username: cfg.Sensor.MQTTUsername,
			Password: cfg.Sensor.MQTTPassword,
			Topic:    cfg.Sensor.MQTTTopic,
		})
	}
	log.Info().Msg("Using simulated sensor")
	return sensor.NewSimulated(uint64(time.Now().UnixNano()), cfg.Meter.CalibrationReference)
}

// logAlerter reports threshold crossings in the server log.
type logAlerter struct{}

func (logAlerter) Alert(ctx context.Context, alert models.Alert) {
	log.Warn().
		Float64("level", alert.Level).
		Float64("threshold", alert.Threshold).
		Bool("haptic", alert.Haptic).
		Msg("Noise threshold reached")
}

// zerologLogger returns a Chi middleware that logs HTTP requests using zerolog
func zerologLogger() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_ip", r.RemoteAddr).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Msg("HTTP request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
