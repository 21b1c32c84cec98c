// Agent assembly for CLI commands.
//
// Information Hiding:
// - Settings, logger and tracer setup hidden
// - Corpus source selection (capability provider, then static files) hidden
// - Provider construction from settings hidden

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sahana359/sahanarajashekara/agent"
	"github.com/sahana359/sahanarajashekara/config"
	"github.com/sahana359/sahanarajashekara/corpus"
	"github.com/sahana359/sahanarajashekara/llm"
	"github.com/sahana359/sahanarajashekara/mcp"
	"github.com/sahana359/sahanarajashekara/portfolio"
	"github.com/sahana359/sahanarajashekara/telemetry"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	MaxTurns int
	Verbose  bool

	// LocalTools serves the portfolio tools in-process over the static
	// corpus when no capability provider is configured.
	LocalTools bool

	Stdout io.Writer
	Stderr io.Writer
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{
		MaxTurns: agent.DefaultMaxTurns,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}
}

func (o Options) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func (o Options) stderr() io.Writer {
	if o.Stderr == nil {
		return os.Stderr
	}
	return o.Stderr
}

// environment is everything a command needs besides the model.
type environment struct {
	settings config.Settings
	logger   *slog.Logger
	snap     *corpus.Snapshot
	tools    []llm.ToolDefinition
	sessions agent.SessionFactory
	// dial reaches the capability provider, nil when there is none.
	dial     mcp.Dialer
	endpoint string
	shutdown telemetry.ShutdownFunc
}

func (e *environment) Close() {
	if e.shutdown != nil {
		if err := e.shutdown(context.Background()); err != nil {
			e.logger.Warn("tracer shutdown failed", "error", err)
		}
	}
}

// newClient opens a fresh capability provider client.
func (e *environment) newClient() *mcp.Client {
	return mcp.NewClient(e.dial, e.logger, mcp.WithCallTimeout(e.settings.MCP.CallTimeout))
}

// setup loads settings, configures logging and tracing, and loads the
// corpus and tool list.
func setup(ctx context.Context, opts Options) (*environment, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.MaxTurns > 0 {
		settings.Agent.MaxTurns = opts.MaxTurns
	}

	level, err := telemetry.ParseLogLevel(settings.Log.Level)
	if err != nil {
		return nil, &config.ConfigurationError{Key: "LOG_LEVEL", Reason: err.Error()}
	}
	if opts.Verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	logger, err := telemetry.NewLogger(level, settings.Log.Format, opts.stderr())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	shutdown, err := telemetry.SetupTracing(ctx, telemetry.TracingConfig{
		Endpoint:    settings.Tracing.Endpoint,
		ServiceName: settings.Tracing.ServiceName,
		Version:     portfolio.Version,
	})
	if err != nil {
		return nil, err
	}

	env := &environment{settings: settings, logger: logger, shutdown: shutdown}

	dial, endpoint, err := resolveDialer(settings.MCP)
	if err != nil {
		env.Close()
		return nil, err
	}

	if dial == nil {
		env.snap = loadStatic(settings.Data.Dir, logger)
		if opts.LocalTools && env.snap.Loaded() {
			srv := portfolio.NewServer(env.snap, portfolio.Options{Owner: settings.Agent.Owner, Logger: logger})
			env.dial = mcp.InProcessDialer(srv)
			env.tools, err = listTools(ctx, env.newClient())
			if err != nil {
				logger.Warn("local tools unavailable", "error", err)
				env.dial = nil
			}
		}
	} else {
		env.dial = dial
		env.endpoint = endpoint
		env.snap, env.tools = loadFromProvider(ctx, env.newClient(), settings.Data.Dir, logger)
	}

	if env.dial != nil && len(env.tools) > 0 {
		env.sessions = func() agent.ToolSession { return env.newClient() }
	}
	return env, nil
}

// resolveDialer picks the capability provider from MCP_SERVER_URL or the
// MCP config file, and returns it with its display endpoint. A nil dialer
// means no provider is configured.
func resolveDialer(cfg config.MCPConfig) (mcp.Dialer, string, error) {
	if cfg.ServerURL != "" {
		return mcp.SSEDialer(cfg.ServerURL), cfg.ServerURL, nil
	}
	if cfg.ConfigPath == "" {
		return nil, "", nil
	}
	file, err := mcp.LoadConfig(cfg.ConfigPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load MCP config: %w", err)
	}
	srvCfg, err := file.Server(cfg.ServerName)
	if err != nil {
		return nil, "", err
	}
	dial, err := mcp.DialerFromConfig(srvCfg)
	if err != nil {
		return nil, "", err
	}
	return dial, srvCfg.Endpoint(), nil
}

// loadFromProvider fetches the corpus and tool list over one session and
// closes it. If the provider is unreachable or serves nothing, the static
// corpus is used without tools.
func loadFromProvider(ctx context.Context, client *mcp.Client, dataDir string, logger *slog.Logger) (*corpus.Snapshot, []llm.ToolDefinition) {
	var snap *corpus.Snapshot
	var tools []llm.ToolDefinition
	err := client.WithSession(ctx, func(ctx context.Context) error {
		var err error
		if snap, err = client.FetchResources(ctx); err != nil {
			return err
		}
		tools, err = client.ListTools(ctx)
		return err
	})
	if err != nil {
		logger.Warn("capability provider unavailable, using static corpus", "error", err)
		return loadStatic(dataDir, logger), nil
	}
	if !snap.Loaded() {
		logger.Warn("capability provider served no resources, using static corpus")
		return loadStatic(dataDir, logger), tools
	}
	logger.Info("corpus loaded", "source", snap.Source(), "resources", snap.Keys(), "tools", len(tools))
	return snap, tools
}

func listTools(ctx context.Context, client *mcp.Client) ([]llm.ToolDefinition, error) {
	var tools []llm.ToolDefinition
	err := client.WithSession(ctx, func(ctx context.Context) error {
		var err error
		tools, err = client.ListTools(ctx)
		return err
	})
	return tools, err
}

// loadStatic reads the corpus directory. A missing or unreadable directory
// yields an empty snapshot.
func loadStatic(dir string, logger *slog.Logger) *corpus.Snapshot {
	snap, err := corpus.LoadDir(dir, logger)
	if err != nil {
		logger.Warn("static corpus unavailable", "dir", dir, "error", err)
		return corpus.Empty()
	}
	logger.Info("corpus loaded", "source", snap.Source(), "resources", snap.Keys())
	return snap
}

// createProvider builds the model provider selected by settings.
func createProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := settings.RequireAPIKey()
	if err != nil {
		return nil, err
	}

	return providerType.
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}

// createAgent builds the agent for env using provider.
func createAgent(env *environment, provider llm.Provider) *agent.Agent {
	s := env.settings
	b := agent.NewBuilder(provider).
		Corpus(env.snap).
		MaxTurns(s.Agent.MaxTurns).
		MaxInputChars(s.Agent.MaxInputChars).
		MaxParallelTools(s.Agent.MaxParallelTools).
		MaxTokens(int64(s.LLM.MaxTokens)).
		Owner(s.Agent.Owner).
		Guard(agent.ParseGuardMode(s.Agent.InjectionAction)).
		Logger(env.logger)
	if env.sessions != nil {
		b = b.Tools(env.tools, env.sessions)
	}
	return b.Build()
}
