package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	orchestratorx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	handlerx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/handler"
	llmx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/llm"
	promptx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/prompt"
	routerx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/router"
	statex "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/state"
	actionsvcx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/actionsvc"
	configx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/config"
	postgresx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/postgres"
	qstashx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/qstash"
	retrievalx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/retrieval"
)

const (
	BackendMemory  = "memory"
	BackendSQLite  = "sqlite"
	BackendUpstash = "upstash"
)

type AppConfig struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	SessionBackend  string        `split_words:"true" default:"memory"`
	Notify          bool          `split_words:"true" default:"false"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

func (c *AppConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.SessionBackend)) {
	case BackendMemory, BackendSQLite, BackendUpstash:
	default:
		return fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("http addr is required")
	}
	return nil
}

// app is the wired engine plus whatever must be closed on exit.
type app struct {
	engine  *orchestratorx.Orchestrator
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func configError(what string, err error) error {
	if errors.Is(err, contractx.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", contractx.ErrConfiguration, what, err)
}

// buildApp constructs every collaborator up front so a missing or invalid
// setting fails before the first turn.
func buildApp(ctx context.Context, conf AppConfig) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	llmCfg, err := configx.New[llmx.Config]("LLM")
	if err != nil {
		return nil, configError("llm", err)
	}
	completer, err := llmx.NewCompleter(ctx, *llmCfg)
	if err != nil {
		return nil, configError("llm", err)
	}

	store, err := newSessionStore(conf.SessionBackend, a)
	if err != nil {
		return nil, err
	}

	pgCfg, err := configx.New[postgresx.Config]("QUERY_DB")
	if err != nil {
		return nil, configError("query database", err)
	}
	queries, err := postgresx.New(ctx, *pgCfg)
	if err != nil {
		return nil, configError("query database", err)
	}
	a.closers = append(a.closers, queries.Close)

	retrievalCfg, err := configx.New[retrievalx.Config]("RETRIEVAL")
	if err != nil {
		return nil, configError("retrieval", err)
	}
	retriever, err := retrievalx.NewClient(*retrievalCfg)
	if err != nil {
		return nil, configError("retrieval", err)
	}

	actionCfg, err := configx.New[actionsvcx.Config]("ACTION")
	if err != nil {
		return nil, configError("action service", err)
	}
	actions, err := actionsvcx.NewClient(*actionCfg)
	if err != nil {
		return nil, configError("action service", err)
	}

	var notifier contractx.Notifier
	if conf.Notify {
		qstashCfg, err := configx.New[qstashx.Config]("QSTASH")
		if err != nil {
			return nil, configError("qstash", err)
		}
		client, err := qstashx.NewClient(*qstashCfg)
		if err != nil {
			return nil, configError("qstash", err)
		}
		notifier = client
	}

	engine, err := newEngine(store, completer, *llmCfg, queries, retriever, actions, notifier)
	if err != nil {
		return nil, err
	}
	a.engine = engine
	return a, nil
}

func newSessionStore(backend string, a *app) (statex.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendSQLite:
		cfg, err := configx.New[statex.SQLiteConfig]("SQLITE")
		if err != nil {
			return nil, configError("sqlite", err)
		}
		store, err := statex.NewSQLiteStore(*cfg)
		if err != nil {
			return nil, configError("sqlite", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case BackendUpstash:
		cfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, configError("upstash redis", err)
		}
		store, err := statex.NewUpstashRedisStore(*cfg)
		if err != nil {
			return nil, configError("upstash redis", err)
		}
		return store, nil
	case BackendMemory, "":
		return statex.NewMemoryStore(), nil
	default:
		return nil, configError("session store", fmt.Errorf("unknown backend %q", backend))
	}
}

func newEngine(
	store statex.Store,
	completer contractx.Completer,
	llmCfg llmx.Config,
	queries contractx.QueryService,
	retriever contractx.Retriever,
	actions contractx.ActionService,
	notifier contractx.Notifier,
) (*orchestratorx.Orchestrator, error) {
	sqlHandler, err := handlerx.NewSQLHandler(completer, queries, llmCfg.ParamsFor(llmx.PurposeSQL))
	if err != nil {
		return nil, configError("sql handler", err)
	}
	ragHandler, err := handlerx.NewRAGHandler(completer, retriever, llmCfg.ParamsFor(llmx.PurposeRAG))
	if err != nil {
		return nil, configError("rag handler", err)
	}
	actionHandler, err := handlerx.NewActionHandler(completer, actions, notifier, llmCfg.ParamsFor(llmx.PurposeAction))
	if err != nil {
		return nil, configError("action handler", err)
	}
	generalHandler, err := handlerx.NewGeneralHandler(completer, llmCfg.ParamsFor(llmx.PurposeDefault))
	if err != nil {
		return nil, configError("default handler", err)
	}

	registry, err := handlerx.NewRegistry(sqlHandler, ragHandler, actionHandler, generalHandler)
	if err != nil {
		return nil, configError("handler registry", err)
	}

	intents, err := promptx.LoadIntents()
	if err != nil {
		return nil, configError("intent catalog", err)
	}
	router, err := routerx.New(completer, intents, llmCfg.ParamsFor(llmx.PurposeRouter))
	if err != nil {
		return nil, configError("router", err)
	}

	engine, err := orchestratorx.New(store, router, registry)
	if err != nil {
		return nil, configError("orchestrator", err)
	}
	return engine, nil
}
