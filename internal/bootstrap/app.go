package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"meetnotes-backend/internal/audio"
	"meetnotes-backend/internal/credentials"
	"meetnotes-backend/internal/host"
	"meetnotes-backend/internal/live"
	"meetnotes-backend/internal/llm"
	openai "meetnotes-backend/internal/llm/openai"
	"meetnotes-backend/internal/meetings"
	"meetnotes-backend/internal/queue"
	"meetnotes-backend/internal/reminders"
	"meetnotes-backend/internal/session"
	"meetnotes-backend/internal/shared/config"
	"meetnotes-backend/internal/shared/ratelimit"
	"meetnotes-backend/internal/shared/server"
	"meetnotes-backend/internal/shared/storage/db"
	"meetnotes-backend/internal/shared/storage/object"
	localstore "meetnotes-backend/internal/shared/storage/object/local"
	s3store "meetnotes-backend/internal/shared/storage/object/s3"
	"meetnotes-backend/internal/templates"
	"meetnotes-backend/internal/workerproc"
)

// App holds shared dependencies for the API, the worker and the CLI.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Redis       *redis.Client
	Store       object.ObjectStore
	Queue       queue.Client
	Repo        meetings.Repo
	Templates   *templates.Catalog
	Credentials *credentials.Store
	Shell       host.Shell
	Hub         *live.Hub
	Relay       *live.Relay
	Limiter     ratelimit.Limiter
	Gateway     *llm.Gateway
	Capture     *audio.Capture
	Meetings    *meetings.Service
	Sessions    *session.Manager
	Dispatcher  *reminders.Dispatcher
}

// Option adjusts an App before services are built.
type Option func(*App)

// WithShell replaces the default logging shell, for example with one that
// renders alerts in a terminal.
func WithShell(s host.Shell) Option {
	return func(a *App) { a.Shell = s }
}

// Build prepares shared dependencies and the HTTP router.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	app := &App{Config: cfg, Hub: live.NewHub()}
	for _, opt := range opts {
		opt(app)
	}

	var err error
	if app.DB, err = buildDB(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Repo, err = buildRepo(app.DB, cfg); err != nil {
		return nil, err
	}
	if app.Store, err = buildStore(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Queue, err = buildQueue(ctx, cfg); err != nil {
		return nil, err
	}
	if app.Templates, err = buildTemplates(cfg); err != nil {
		return nil, err
	}
	if err := buildRedis(app); err != nil {
		return nil, err
	}
	if err := buildShell(app); err != nil {
		return nil, err
	}
	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      cfg,
		Limiter:     app.Limiter,
		Meetings:    meetings.NewHandler(app.Meetings),
		Sessions:    session.NewHandler(app.Sessions, app.Queue),
		Templates:   &templates.Handler{Catalog: app.Templates},
		Credentials: &credentials.Handler{Store: app.Credentials},
		Live:        live.NewHandler(app.Hub, cfg.CORSAllowOrigin),
	})
	return app, nil
}

// Close releases connections held by the app.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

// Reprocessor adapts the session manager for queue workers.
func (a *App) Reprocessor() workerproc.Reprocessor {
	return workerproc.ReprocessFunc(func(ctx context.Context, meetingID string) error {
		_, err := a.Sessions.Reprocess(ctx, meetingID)
		return err
	})
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using local snapshot: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildRepo(sqlDB *sql.DB, cfg config.Config) (meetings.Repo, error) {
	if sqlDB != nil {
		return &meetings.PGRepo{DB: sqlDB}, nil
	}
	if strings.TrimSpace(cfg.SnapshotPath) == "" {
		log.Printf("bootstrap: no snapshot path; meetings are kept in memory")
		return meetings.NewMemoryRepo(), nil
	}
	repo, err := meetings.OpenSnapshot(cfg.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return repo, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if cfg.SQSQueueURL == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.SQSQueueURL, cfg.AWSRegion)
}

func buildTemplates(cfg config.Config) (*templates.Catalog, error) {
	if strings.TrimSpace(cfg.TemplatesFile) == "" {
		return templates.Builtin(), nil
	}
	return templates.Load(cfg.TemplatesFile)
}

// buildRedis connects the shared limiter and the live relay when a redis
// URL is configured; otherwise both stay in-process.
func buildRedis(app *App) error {
	rules := ratelimit.Rules{
		ratelimit.OpTranscribe:       ratelimit.PerMinute(app.Config.RateLimits.Transcribe),
		ratelimit.OpTranscribeChunk:  ratelimit.PerMinute(app.Config.RateLimits.TranscribeChunk),
		ratelimit.OpEnhance:          ratelimit.PerMinute(app.Config.RateLimits.Enhance),
		ratelimit.OpExtractReminders: ratelimit.PerMinute(app.Config.RateLimits.ExtractReminders),
		server.APIRateLimitGroup:     ratelimit.PerMinute(app.Config.RateLimits.API),
	}
	if strings.TrimSpace(app.Config.RateLimitRedis) == "" {
		app.Limiter = ratelimit.NewMemoryLimiter(rules, nil)
		return nil
	}
	client, err := ratelimit.NewRedisClient(app.Config.RateLimitRedis)
	if err != nil {
		return err
	}
	app.Redis = client
	app.Limiter = ratelimit.NewRedisLimiter(client, rules, "meetnotes:ratelimit", nil)
	app.Relay = live.NewRelay(client, live.DefaultChannel, app.Hub)
	return nil
}

func buildShell(app *App) error {
	var cipher *host.Cipher
	if strings.TrimSpace(app.Config.EncryptionSecret) != "" {
		c, err := host.NewCipher(app.Config.EncryptionSecret)
		if err != nil {
			return fmt.Errorf("encryption key: %w", err)
		}
		cipher = c
	}
	base := app.Shell
	if base == nil {
		base = &host.Logging{Cipher: cipher}
	}
	app.Shell = host.Multi{base, live.Shell{Hub: app.Hub}}
	return nil
}

func buildServices(app *App) error {
	cfg := app.Config

	creds, err := credentials.NewStore(app.Shell, cfg.CredentialsFile, cfg.OpenAIAPIKey)
	if err != nil {
		return err
	}
	app.Credentials = creds

	client, err := openai.NewClient(openai.Options{
		Keys:               creds,
		BaseURL:            cfg.OpenAIBaseURL,
		ChatModel:          cfg.ChatModel,
		TranscriptionModel: cfg.TranscriptionModel,
	})
	if err != nil {
		return err
	}
	app.Gateway = &llm.Gateway{
		Transcriber: client,
		Enhancer:    client,
		Extractor:   client,
		Limiter:     app.Limiter,
		Backoff: llm.BackoffConfig{
			Initial:     cfg.RetryBaseDelay,
			MaxDelay:    cfg.RetryMaxDelay,
			MaxAttempts: cfg.RetryMaxAttempts,
		},
		Timeout: cfg.OpenAITimeout,
	}

	device := &audio.FFmpegDevice{
		Path:        cfg.FFmpegPath,
		InputFormat: cfg.InputFormat,
		InputDevice: cfg.InputDevice,
	}
	app.Capture = audio.NewCapture(device, app.Shell)
	if cfg.ChunkInterval > 0 {
		app.Capture.ChunkInterval = cfg.ChunkInterval
	}

	app.Meetings = meetings.NewService(app.Repo, app.Store)
	app.Sessions = &session.Manager{
		Repo:        app.Repo,
		Upstream:    app.Gateway,
		Recorder:    app.Capture,
		Templates:   app.Templates,
		Store:       app.Store,
		Shell:       app.Shell,
		Hub:         app.Hub,
		RetainAudio: cfg.RetainAudio,
		Platform:    "desktop",
	}
	app.Dispatcher = reminders.NewDispatcher(app.Repo, app.Shell, cfg.ReminderCheckInterval)
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
