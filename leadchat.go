package leadchat

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/greenoffice/leadchat/internal/config"
	"github.com/greenoffice/leadchat/internal/logging"
	"github.com/greenoffice/leadchat/internal/runtime"
	"github.com/greenoffice/leadchat/internal/validator"
	"github.com/greenoffice/leadchat/pkg/adapters/file"
	httpAdapter "github.com/greenoffice/leadchat/pkg/adapters/http"
	"github.com/greenoffice/leadchat/pkg/adapters/llm"
	"github.com/greenoffice/leadchat/pkg/adapters/memory"
	"github.com/greenoffice/leadchat/pkg/adapters/postgres"
	redisStore "github.com/greenoffice/leadchat/pkg/adapters/redis"
	"github.com/greenoffice/leadchat/pkg/adapters/ses"
	"github.com/greenoffice/leadchat/pkg/conversation"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/flow"
	"github.com/greenoffice/leadchat/pkg/knowledge"
	"github.com/greenoffice/leadchat/pkg/observability"
	"github.com/greenoffice/leadchat/pkg/persistence/middleware"
	"github.com/greenoffice/leadchat/pkg/ports"
	"github.com/greenoffice/leadchat/pkg/session"
)

//go:embed VERSION
var Version string

// PIIKeys are the answer keys masked once a conversation closes, when redaction is on.
var PIIKeys = []string{"^" + domain.AnswerName + "$", "^" + domain.AnswerEmail + "$"}

// App is a fully wired chat backend.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Service *conversation.Service

	// Store is the raw state store, without middlewares, for maintenance commands.
	Store ports.StateStore

	closers []func() error
}

// Option customises New. Injected components win over the configuration.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	store     ports.StateStore
	repo      ports.SessionRepository
	notifier  ports.LeadNotifier
	responder knowledge.Responder
	graph     *flow.Graph
}

// WithLogger sets the logger instead of building one from the log section.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStateStore replaces the configured state backend.
func WithStateStore(store ports.StateStore) Option {
	return func(o *options) { o.store = store }
}

// WithRepository replaces the configured session repository.
func WithRepository(repo ports.SessionRepository) Option {
	return func(o *options) { o.repo = repo }
}

// WithNotifier replaces the SES lead notifier.
func WithNotifier(n ports.LeadNotifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithResponder replaces the configured language model.
func WithResponder(r knowledge.Responder) Option {
	return func(o *options) { o.responder = r }
}

// WithGraph replaces the built-in questionnaire.
func WithGraph(g *flow.Graph) Option {
	return func(o *options) { o.graph = g }
}

// New assembles the application described by cfg.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (app *App, err error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewWithWriter(os.Stderr, logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)
	}
	if o.graph == nil {
		o.graph = flow.Default()
	}
	if err := validator.ValidateGraph(o.graph); err != nil {
		return nil, fmt.Errorf("invalid question graph: %w", err)
	}

	app = &App{Config: cfg, Logger: o.logger, Metrics: observability.New()}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	engine := runtime.NewEngine(o.graph,
		runtime.WithLogger(o.logger),
		runtime.WithLifecycleHooks(app.Metrics.Hooks()),
		runtime.WithLocation(cfg.Location()),
		runtime.WithInputPolicy(runtime.InputPolicy{MaxBytes: cfg.Server.MaxInputSize}),
	)

	kb, err := app.knowledge(ctx, o)
	if err != nil {
		return nil, err
	}

	manager, err := app.sessions(o)
	if err != nil {
		return nil, err
	}

	repo, err := app.repository(ctx, o)
	if err != nil {
		return nil, err
	}

	svcOpts := []conversation.Option{
		conversation.WithObserver(app.Metrics),
		conversation.WithLogger(o.logger),
	}
	notifier := o.notifier
	if notifier == nil && cfg.Notify.Enabled {
		n, err := ses.New(ctx, cfg.Notify.Region, cfg.Notify.From, cfg.Notify.To)
		if err != nil {
			return nil, err
		}
		notifier = n
	}
	if notifier != nil {
		svcOpts = append(svcOpts, conversation.WithNotifier(notifier))
	}

	app.Service = conversation.New(engine, manager, repo, kb, svcOpts...)
	return app, nil
}

func (a *App) knowledge(ctx context.Context, o *options) (*knowledge.Service, error) {
	table := knowledge.Default()
	if path := a.Config.Knowledge.File; path != "" {
		t, err := knowledge.LoadFile(path)
		if err != nil {
			return nil, err
		}
		table = t
	}

	kbOpts := []knowledge.Option{
		knowledge.WithLogger(a.Logger),
		knowledge.WithObserver(func(s knowledge.Source) { a.Metrics.ObserveLookup(string(s)) }, a.Metrics.ObserveLLMFailure),
		knowledge.WithLLMFirst(a.Config.LLM.LLMFirst),
	}
	responder := o.responder
	if responder == nil && a.Config.LLM.Enabled {
		c := a.Config.LLM
		r, err := llm.New(ctx, llm.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			MaxTokens:   c.MaxTokens,
			Temperature: c.Temperature,
			Timeout:     c.Timeout,
		}, table.Facts())
		if err != nil {
			return nil, err
		}
		responder = r
	}
	if responder != nil {
		kbOpts = append(kbOpts, knowledge.WithResponder(responder))
	}
	return knowledge.NewService(table, kbOpts...), nil
}

func (a *App) sessions(o *options) (*session.Manager, error) {
	managerOpts := []session.Option{session.WithLogger(a.Logger)}

	store := o.store
	if store == nil {
		c := a.Config
		switch c.State.Backend {
		case config.BackendRedis:
			rs := redisStore.New(c.Redis.Addr, c.Redis.Password, c.Redis.DB,
				redisStore.WithPrefix(c.Redis.Prefix),
				redisStore.WithTTL(c.Redis.TTL),
			)
			a.closers = append(a.closers, rs.Close)
			managerOpts = append(managerOpts, session.WithLocker(redisStore.NewLocker(rs.Client(), rs.Prefix())))
			store = rs
		case config.BackendFile:
			store = file.New(c.State.Dir)
		default:
			store = memory.NewStore()
		}
	}
	a.Store = store

	var mws []middleware.Middleware
	if a.Config.State.RedactClosed {
		pii, err := middleware.NewPIIMiddleware(PIIKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if k := a.Config.State.EncryptionKey; k != "" {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("state.encryption_key: %w", err)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return session.NewManager(middleware.Chain(store, mws...), managerOpts...), nil
}

func (a *App) repository(ctx context.Context, o *options) (ports.SessionRepository, error) {
	if o.repo != nil {
		return o.repo, nil
	}
	c := a.Config.Database
	if c.URL == "" {
		a.Logger.Warn("No database configured; session records are kept in memory")
		return memory.NewRepository(), nil
	}
	if c.Migrate {
		if err := postgres.Migrate(c.URL, postgres.Up, a.Logger); err != nil {
			return nil, err
		}
	}
	pool := postgres.DefaultPool
	if c.MaxOpen > 0 {
		pool.MaxOpen = c.MaxOpen
	}
	if c.MaxIdle > 0 {
		pool.MaxIdle = c.MaxIdle
	}
	repo, err := postgres.Open(ctx, c.URL, pool)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, repo.Close)
	return repo, nil
}

// Handler builds the HTTP API for the app.
func (a *App) Handler() (http.Handler, error) {
	opts := []httpAdapter.Option{
		httpAdapter.WithLogger(a.Logger),
		httpAdapter.WithMetrics(a.Metrics),
		httpAdapter.WithVersion(Version),
		httpAdapter.WithCORSOrigins(a.Config.Server.CORSOrigins...),
		httpAdapter.WithLocation(a.Config.Location()),
		httpAdapter.WithStaleAfter(a.Config.Admin.StaleAfter),
	}
	if a.Config.Admin.Enabled {
		opts = append(opts, httpAdapter.WithAdmin(a.Config.Admin.Username, a.Config.Admin.Password))
	}
	return httpAdapter.NewHandler(a.Service, opts...)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ShortVersion is Version without surrounding whitespace.
func ShortVersion() string {
	return strings.TrimSpace(Version)
}
