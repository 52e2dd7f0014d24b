// Package wire provides dependency injection for the handover application.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"log"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/example/handover/internal/adapters/agentgw"
	"github.com/example/handover/internal/adapters/push"
	"github.com/example/handover/internal/adapters/sqlite"
	"github.com/example/handover/internal/agent"
	"github.com/example/handover/internal/app"
	"github.com/example/handover/internal/db"
	"github.com/example/handover/internal/logging"
	"github.com/example/handover/internal/ports/primary"
	"github.com/example/handover/internal/ports/secondary"
)

var (
	escalationService primary.EscalationService
	focusService      primary.FocusService
	resumptionService primary.ResumptionService
	auditService      primary.AuditService
	once              sync.Once
)

// EscalationService returns the singleton EscalationService instance.
func EscalationService() primary.EscalationService {
	once.Do(initServices)
	return escalationService
}

// FocusService returns the singleton FocusService instance.
func FocusService() primary.FocusService {
	once.Do(initServices)
	return focusService
}

// ResumptionService returns the singleton ResumptionService instance.
func ResumptionService() primary.ResumptionService {
	once.Do(initServices)
	return resumptionService
}

// AuditService returns the singleton AuditService instance.
func AuditService() primary.AuditService {
	once.Do(initServices)
	return auditService
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	logger := logging.New()

	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Repository adapters (secondary ports) - sqlite adapters with injected DB
	escalationRepo := sqlite.NewEscalationRepository(database)
	roundRepo := sqlite.NewRoundRepository(database)
	focusRepo := sqlite.NewFocusLockRepository(database)
	auditRepo := sqlite.NewAuditEventRepository(database)
	historySink := sqlite.NewHistoryRepository(database)

	// External collaborators
	pusher := newPushSender(logger)
	registry := newAgentRegistry(logger)

	// Services (primary ports implementation)
	auditService = app.NewAuditService(auditRepo, logger)
	escalationService = app.NewEscalationService(escalationRepo, roundRepo, focusRepo, pusher, auditService, logger)
	focusService = app.NewFocusService(focusRepo, escalationRepo, logger)
	resumptionService = app.NewResumptionService(escalationRepo, roundRepo, focusRepo, registry, pusher, historySink, auditService, logger)
}

// newPushSender builds the gateway client from HANDOVER_PUSH_* env settings.
// Without a configured gateway, pushes land in the log only.
func newPushSender(logger zerolog.Logger) secondary.PushSender {
	var cfg push.Config
	if err := envconfig.Process("HANDOVER_PUSH", &cfg); err != nil {
		logger.Warn().Err(err).Msg("push gateway not configured; using log-only delivery")
		return logOnlyPush{log: logger}
	}
	client, err := push.NewClient(cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("push gateway config invalid; using log-only delivery")
		return logOnlyPush{log: logger}
	}
	return client
}

// newAgentRegistry builds origin agent clients from HANDOVER_AGENT_* env
// settings. Tags without endpoints get no handler; resuming them fails.
func newAgentRegistry(logger zerolog.Logger) secondary.AgentRegistry {
	var cfg agentgw.Config
	if err := envconfig.Process("HANDOVER_AGENT", &cfg); err != nil {
		logger.Warn().Err(err).Msg("no agent endpoints configured")
		return agent.NewRegistry(nil)
	}

	handlers := make(map[string]secondary.OriginAgent, len(cfg.Endpoints))
	for tag, endpoint := range cfg.Endpoints {
		client, err := agentgw.NewClient(endpoint, cfg.Token, cfg.Timeout)
		if err != nil {
			logger.Warn().Err(err).Str("agent", tag).Msg("skipping agent with invalid endpoint")
			continue
		}
		handlers[tag] = client
	}
	return agent.NewRegistry(handlers)
}

// logOnlyPush stands in for the gateway in unconfigured environments so
// local protocol runs still complete.
type logOnlyPush struct {
	log zerolog.Logger
}

func (p logOnlyPush) SendPush(_ context.Context, schoolID, target, text string) error {
	p.log.Info().Str("school_id", schoolID).Str("target", target).Str("text", text).Msg("push (log-only)")
	return nil
}
