package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/whatsbot-agent/agent/agents/booking"
	contractx "github.com/tanpawarit/whatsbot-agent/agent/contract"
	"github.com/tanpawarit/whatsbot-agent/agent/llm"
	"github.com/tanpawarit/whatsbot-agent/agent/memory"
	promptx "github.com/tanpawarit/whatsbot-agent/agent/prompt"
	statex "github.com/tanpawarit/whatsbot-agent/agent/state"
	toolx "github.com/tanpawarit/whatsbot-agent/agent/tool"
	configx "github.com/tanpawarit/whatsbot-agent/pkg/config"
	"github.com/tanpawarit/whatsbot-agent/pkg/database"
	_ "github.com/tanpawarit/whatsbot-agent/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/whatsbot-agent/pkg/openrouter"
	qstashx "github.com/tanpawarit/whatsbot-agent/pkg/qstash"
	"github.com/tanpawarit/whatsbot-agent/repository"
	"github.com/tanpawarit/whatsbot-agent/server"
)

type AppConfig struct {
	BusinessID          string `envconfig:"BUSINESS_ID" required:"true"`
	SessionBackend      string `envconfig:"SESSION_BACKEND" default:"memory"`
	BusinessProfileFile string `envconfig:"BUSINESS_PROFILE_FILE" default:"configs/business_profile.example.yaml"`
}

// businessRepository is what the tools need from the business data layer.
type businessRepository interface {
	contractx.BusinessProfiles
	contractx.ClientRegistry
	contractx.Appointments
	repository.ProfileSeeder
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("whatsbot agent stopped")
	}
}

func run(ctx context.Context) error {
	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llm.Config]("LLM")
	agentCfg := configx.MustNew[booking.Config]("AGENT")
	httpCfg := configx.MustNew[server.Config]("HTTP")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")

	if err := llmCfg.Validate(); err != nil {
		return err
	}

	store, err := newSessionStore(appCfg.SessionBackend)
	if err != nil {
		return err
	}

	mem, closeMemory, err := newMemory(ctx, *llmCfg)
	if err != nil {
		return err
	}
	defer closeMemory()

	repo, closeRepo, err := newRepository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	profile, err := repository.SeedProfile(ctx, repo, appCfg.BusinessProfileFile, appCfg.BusinessID)
	if err != nil {
		return fmt.Errorf("seed business profile: %w", err)
	}
	if profile.BusinessID != appCfg.BusinessID {
		return fmt.Errorf("%w: %s describes business %q, BUSINESS_ID is %q",
			contractx.ErrValidation, appCfg.BusinessProfileFile, profile.BusinessID, appCfg.BusinessID)
	}
	if agentCfg.BusinessName == "" {
		agentCfg.BusinessName = profile.Name
	}

	primary, fallback, err := newChatModels(ctx, *llmCfg)
	if err != nil {
		return err
	}

	loc, err := agentCfg.Location()
	if err != nil {
		return err
	}
	tools, err := toolx.NewSet(toolx.Deps{
		BusinessID:   appCfg.BusinessID,
		Store:        store,
		Profiles:     repo,
		Clients:      repo,
		Appointments: repo,
		Location:     loc,
		Slots:        agentCfg.Slots,
		Now:          time.Now,
	})
	if err != nil {
		return err
	}

	agent, err := booking.New(ctx, *agentCfg, booking.Deps{
		Store:    store,
		Memory:   mem,
		Tools:    tools,
		Primary:  primary,
		Fallback: fallback,
		Limiter:  llmCfg.Limiter(),
		Prompts:  promptx.LoadPromptSet(),
	})
	if err != nil {
		return err
	}

	var opts []server.Option
	if qstashCfg.Enabled() {
		publisher, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			return fmt.Errorf("qstash client: %w", err)
		}
		receiver, err := qstashx.NewReceiver(*qstashCfg)
		if err != nil {
			return fmt.Errorf("qstash receiver: %w", err)
		}
		opts = append(opts, server.WithQStash(publisher, receiver, qstashCfg.DestinationURL))
		log.Info().Str("destination", qstashCfg.DestinationURL).Msg("async messages enabled")
	}

	if httpCfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := server.New(*httpCfg, agent, opts...)
	if err != nil {
		return err
	}

	log.Info().
		Str("business_id", appCfg.BusinessID).
		Str("session_backend", appCfg.SessionBackend).
		Strs("tools", tools.Names()).
		Msg("whatsbot agent ready")
	return srv.Run(ctx)
}

func newSessionStore(backend string) (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "memory":
		return statex.NewMemoryStore(), nil
	case "upstash":
		cfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		return statex.NewUpstashStore(*cfg)
	default:
		return nil, fmt.Errorf("%w: unknown session backend %q", contractx.ErrValidation, backend)
	}
}

func newMemory(ctx context.Context, llmCfg llm.Config) (*memory.Memory, func(), error) {
	memCfg := configx.MustNew[memory.Config]("MEMORY")
	noop := func() {}

	opts := []memory.Option{memory.WithMaxTurns(memCfg.MaxTurns)}
	clientCfg, summaryModel := llmCfg.Summary()
	client, err := openrouterx.NewClient(clientCfg)
	if err != nil {
		return nil, noop, err
	}
	summarizer, err := memory.NewOpenAISummarizer(client, summaryModel, llmCfg.SummaryMaxTokens)
	if err != nil {
		return nil, noop, err
	}
	opts = append(opts, memory.WithSummarizer(summarizer))

	switch strings.ToLower(strings.TrimSpace(memCfg.Backend)) {
	case "", "memory":
		m, err := memory.New(memory.NewInMemoryStore(), opts...)
		return m, noop, err
	case "redis":
		redisCfg := configx.MustNew[memory.RedisConfig]("REDIS")
		rdb, err := memory.NewRedisClient(ctx, *redisCfg)
		if err != nil {
			return nil, noop, err
		}
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("close redis")
			}
		}
		m, err := memory.New(memory.NewRedisStore(rdb, redisCfg.TTL), opts...)
		if err != nil {
			closeFn()
			return nil, noop, err
		}
		return m, closeFn, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown memory backend %q", contractx.ErrValidation, memCfg.Backend)
	}
}

// newRepository uses Postgres when DATABASE_DSN is set and an in-process
// repository otherwise.
func newRepository(ctx context.Context) (businessRepository, func(), error) {
	dbCfg := configx.MustNew[database.Config]("DATABASE")
	if !dbCfg.Enabled() {
		log.Warn().Msg("DATABASE_DSN not set; clients and appointments are kept in memory")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	db, err := database.Open(ctx, *dbCfg)
	if err != nil {
		return nil, func() {}, err
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}

	repo := repository.NewPostgresRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		closeFn()
		return nil, func() {}, fmt.Errorf("migrate: %w", err)
	}
	return repo, closeFn, nil
}

func newChatModels(ctx context.Context, cfg llm.Config) (einomodel.ToolCallingChatModel, einomodel.ToolCallingChatModel, error) {
	primaryCfg := cfg.Primary()
	primary, err := primaryCfg.New(ctx)
	if err != nil {
		return nil, nil, err
	}

	fallbackCfg, ok := cfg.Fallback()
	if !ok {
		return primary, nil, nil
	}
	fallback, err := fallbackCfg.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fallback model: %w", err)
	}
	return primary, fallback, nil
}
