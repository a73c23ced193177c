package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sme-onboarding/internal/common/config"
	"sme-onboarding/internal/common/database"
	stderrors "sme-onboarding/internal/common/errors"
	commonhttp "sme-onboarding/internal/common/http"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/common/portal"
	"sme-onboarding/internal/common/validation"
	"sme-onboarding/internal/ledger"
	"sme-onboarding/internal/models"
	"sme-onboarding/internal/onboarding/form"
	"sme-onboarding/internal/onboarding/staging"
	"sme-onboarding/internal/onboarding/submission"
	"sme-onboarding/internal/onboarding/upload"
	"sme-onboarding/internal/store"
	"sme-onboarding/pkg/registry"

	"go.uber.org/zap"
)

// app holds everything a command may need. Optional backends (Redis,
// Postgres) are nil when disabled in config.
type app struct {
	cfg      *config.Config
	zap      *zap.Logger
	log      logger.Logger
	registry *registry.Registry
	portal   *portal.Client

	redis    *database.RedisClient
	sessions *store.SessionStore
	drafts   *store.DraftStore

	pg     *database.PostgresClient
	ledger *ledger.Ledger

	session *models.Session
}

func newApp(ctx context.Context, configPath, logLevel string) (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	a := &app{
		cfg: cfg,
		zap: zapLog,
		log: logger.NewZapAdapter(zapLog),
	}

	a.registry, err = registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		return nil, err
	}

	if cfg.Drafts.Enabled {
		a.redis = database.NewRedis(cfg.Database.Redis)
		if err := a.redis.Ping(ctx); err != nil {
			a.log.Warn("redis unavailable, drafts and sessions disabled", map[string]interface{}{"error": err.Error()})
			_ = a.redis.Close()
			a.redis = nil
		} else {
			a.sessions = store.NewSessionStore(a.redis, time.Duration(cfg.Drafts.TTL)*time.Second)
			a.drafts = store.NewDraftStore(a.redis, time.Duration(cfg.Drafts.TTL)*time.Second, a.log)
			a.loadSession(ctx)
		}
	}

	if cfg.Ledger.Enabled {
		a.pg, err = database.NewPostgres(ctx, cfg.Database.Postgres)
		if err != nil {
			a.log.Warn("postgres unavailable, submission ledger disabled", map[string]interface{}{"error": err.Error()})
			a.pg = nil
		} else {
			a.ledger = ledger.New(a.pg, a.log)
			if err := a.ledger.EnsureSchema(ctx); err != nil {
				a.log.Warn("ledger schema check failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}

	httpClient := commonhttp.NewAuthorizedClient(config.GetDuration(cfg.Portal.Timeout), a.token)
	a.portal = portal.NewClient(cfg.Portal.BaseURL, httpClient, a.log)

	a.log.Debug("onboard ready", map[string]interface{}{
		"portal":  cfg.Portal.BaseURL,
		"drafts":  a.drafts != nil,
		"ledger":  a.ledger != nil,
		"session": a.session != nil,
	})
	return a, nil
}

func (a *app) loadSession(ctx context.Context) {
	sess, err := a.sessions.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNoSession) {
			a.log.Warn("session lookup failed", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	a.session = sess
}

// token prefers the signed-in session over a token from config.
func (a *app) token() string {
	if a.session != nil && a.session.Token != "" {
		return a.session.Token
	}
	return a.cfg.Portal.Token
}

func (a *app) userID() string {
	if a.session != nil && a.session.UserID != "" {
		return a.session.UserID
	}
	return a.cfg.Portal.UserID
}

func (a *app) requireUser() (string, error) {
	id := a.userID()
	if id == "" {
		return "", errors.New("not signed in: run `onboard login` or set portal.user_id")
	}
	return id, nil
}

func (a *app) newWizard() *form.Wizard {
	stager := staging.NewStager(validation.FileOptions{
		MaxSize:     a.cfg.Upload.MaxSize,
		AcceptTypes: a.cfg.Upload.AcceptTypes,
	}, a.log)
	return form.NewWizard(a.registry, stager, a.log)
}

func (a *app) newOrchestrator() *submission.Orchestrator {
	pipeline := upload.NewPipeline(upload.LoadConfig(a.cfg.Upload), a.portal, a.log)
	o := submission.NewOrchestrator(submission.LoadConfig(), a.portal, pipeline, a.log)
	if a.ledger != nil {
		o.WithRecorder(a.ledger)
	}
	return o
}

func (a *app) submitter() (submission.Submitter, error) {
	id, err := a.requireUser()
	if err != nil {
		return submission.Submitter{}, err
	}
	return submission.Submitter{UserID: id, ReviewerID: a.cfg.Portal.ReviewerID}, nil
}

// dropSessionOn401 forgets a token the backend no longer accepts.
func (a *app) dropSessionOn401(ctx context.Context, err error) {
	if a.sessions == nil || !stderrors.HasCode(err, stderrors.ErrCodeUnauthorized) {
		return
	}
	if clearErr := a.sessions.Clear(ctx); clearErr != nil {
		a.log.Warn("failed to clear session", map[string]interface{}{"error": clearErr.Error()})
		return
	}
	a.session = nil
	a.log.Info("session cleared after 401", nil)
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	_ = a.zap.Sync()
}
