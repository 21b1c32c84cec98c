// Command execution for CLI commands.
//
// Information Hiding:
// - Command dispatch logic hidden
// - Agent and server setup hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sahana359/sahanarajashekara/agent"
	"github.com/sahana359/sahanarajashekara/portfolio"
	"github.com/sahana359/sahanarajashekara/prompt"
	"github.com/sahana359/sahanarajashekara/ratelimit"
	"github.com/sahana359/sahanarajashekara/server"
)

// MCP server transports accepted by ServeMCP.
const (
	TransportSSE   = "sse"
	TransportStdio = "stdio"
)

// Serve runs the chat HTTP API until ctx is cancelled. An empty addr uses
// HOST and PORT.
func Serve(ctx context.Context, addr string, opts Options) error {
	env, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	provider, err := createProvider(env.settings)
	if err != nil {
		return err
	}

	rl := env.settings.RateLimit
	target := rl.SQLitePath
	if rl.Store == ratelimit.StoreRedis {
		target = rl.RedisURL
	}
	var store ratelimit.QuotaStore
	if rl.QuotaPerDay > 0 {
		if store, err = ratelimit.OpenStore(ctx, rl.Store, target); err != nil {
			return fmt.Errorf("failed to open quota store: %w", err)
		}
	}
	limiter := ratelimit.New(ratelimit.Config{
		RPM:         rl.RPM,
		Burst:       rl.Burst,
		QuotaPerDay: rl.QuotaPerDay,
		Store:       store,
	}, env.logger)
	defer limiter.Close()

	srv := server.New(server.Options{
		Agent:          createAgent(env, provider),
		Corpus:         env.snap,
		MCPURL:         env.endpoint,
		AllowedOrigins: env.settings.Server.CORSOrigins,
		Limiter:        limiter,
		Logger:         env.logger,
	})

	if addr == "" {
		addr = env.settings.Server.Addr()
	}
	env.logger.Info("serving chat API",
		"addr", addr,
		"provider", provider.Name(),
		"model", provider.Model(),
		"corpus_source", env.snap.Source(),
		"tools", len(env.tools),
		"rate_limited", limiter.Enabled(),
	)
	return srv.ListenAndServe(ctx, addr)
}

// Ask answers a single message and prints the reply. With template set,
// the message is rendered from the provider's prompt template of that name.
func Ask(ctx context.Context, message, template string, args map[string]string, opts Options) error {
	env, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	if template != "" {
		if message, err = renderTemplate(ctx, env, template, args); err != nil {
			return err
		}
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("a message or --template is required")
	}

	provider, err := createProvider(env.settings)
	if err != nil {
		return err
	}
	a := createAgent(env, provider)

	resp, err := a.Execute(ctx, message, nil)
	if err != nil {
		return err
	}

	out := opts.stdout()
	fmt.Fprintf(out, "%s\n", resp.Text)
	if opts.Verbose {
		printRunStats(out, resp)
	}
	return nil
}

// Chat runs an interactive session. History lives only in memory.
func Chat(ctx context.Context, in io.Reader, opts Options) error {
	env, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	provider, err := createProvider(env.settings)
	if err != nil {
		return err
	}
	a := createAgent(env, provider)

	out := opts.stdout()
	fmt.Fprintf(out, "Ask about the portfolio (%s data, %d tools). Type 'exit' to quit.\n\n", env.snap.Source(), len(env.tools))

	var history []agent.HistoryEntry
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		resp, err := a.Execute(ctx, input, history)
		if err != nil {
			fmt.Fprintf(opts.stderr(), "\nError: %v\n\n", err)
			continue
		}

		fmt.Fprintf(out, "\n%s\n\n", resp.Text)
		if opts.Verbose {
			printRunStats(out, resp)
		}
		history = append(history,
			agent.HistoryEntry{Role: "user", Content: input},
			agent.HistoryEntry{Role: "assistant", Content: resp.Text},
		)
	}

	return scanner.Err()
}

// ServeMCP runs the portfolio capability provider over the static corpus.
func ServeMCP(ctx context.Context, transport, addr, baseURL string, opts Options) error {
	env, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	snap := loadStatic(env.settings.Data.Dir, env.logger)
	srv := portfolio.NewServer(snap, portfolio.Options{Owner: env.settings.Agent.Owner, Logger: env.logger})

	switch transport {
	case TransportStdio:
		env.logger.Info("serving portfolio MCP over stdio", "resources", snap.Keys())
		return portfolio.ServeStdio(srv)
	case "", TransportSSE:
		if baseURL == "" {
			baseURL = "http://" + addr
		}
		env.logger.Info("serving portfolio MCP over SSE", "addr", addr, "base_url", baseURL, "resources", snap.Keys())
		return portfolio.ServeSSE(ctx, srv, addr, baseURL)
	default:
		return fmt.Errorf("unknown transport %q (use sse or stdio)", transport)
	}
}

// ShowCorpus prints the loaded corpus keys and where they came from.
func ShowCorpus(ctx context.Context, opts Options) error {
	env, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	out := opts.stdout()
	fmt.Fprintf(out, "Source: %s\n", env.snap.Source())
	fmt.Fprintf(out, "Resources (%d):\n", env.snap.Len())
	for _, key := range env.snap.Keys() {
		fmt.Fprintf(out, "  %s\n", key)
	}
	return nil
}

// ShowSystemPrompt prints the system prompt the model would receive today.
func ShowSystemPrompt(ctx context.Context, opts Options) error {
	env, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	a := createAgent(env, nil)
	cfg := a.Config()
	text := prompt.BuildSystem(cfg.Corpus, cfg.Now(), prompt.Options{Owner: cfg.Owner})
	fmt.Fprintln(opts.stdout(), text)
	return nil
}

// ListTools prints the tools offered by the capability provider.
func ListTools(ctx context.Context, verbose bool, opts Options) error {
	env, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer env.Close()

	out := opts.stdout()
	if len(env.tools) == 0 {
		fmt.Fprintln(out, "No tools available. Set MCP_SERVER_URL or MCP_CONFIG, or pass --local-tools.")
		return nil
	}

	fmt.Fprintln(out, "Available tools:")
	fmt.Fprintln(out)
	for _, tool := range env.tools {
		fmt.Fprintf(out, "  %s\n", tool.Name)
		fmt.Fprintf(out, "    %s\n", tool.Description)
		if verbose {
			printToolParameters(out, tool.InputSchema)
		}
		fmt.Fprintln(out)
	}

	if verbose && env.dial != nil {
		client := env.newClient()
		err := client.WithSession(ctx, func(ctx context.Context) error {
			prompts, err := client.ListPrompts(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Prompt templates:")
			for _, p := range prompts {
				fmt.Fprintf(out, "  %s - %s\n", p.Name, p.Description)
			}
			return nil
		})
		if err != nil {
			env.logger.Warn("failed to list prompt templates", "error", err)
		}
	}
	return nil
}

func renderTemplate(ctx context.Context, env *environment, name string, args map[string]string) (string, error) {
	if env.dial == nil {
		return "", errors.New("--template needs a capability provider; set MCP_SERVER_URL or MCP_CONFIG, or pass --local-tools")
	}
	client := env.newClient()
	var text string
	err := client.WithSession(ctx, func(ctx context.Context) error {
		var err error
		text, err = client.GetPrompt(ctx, name, args)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("render template %q: %w", name, err)
	}
	return text, nil
}

func printToolParameters(out io.Writer, schema map[string]any) {
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return
	}
	required := make(map[string]bool)
	if list, ok := schema["required"].([]any); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}
	if list, ok := schema["required"].([]string); ok {
		for _, s := range list {
			required[s] = true
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "    Parameters:")
	for _, name := range names {
		prop, _ := props[name].(map[string]any)
		req := ""
		if required[name] {
			req = "*"
		}
		typ, _ := prop["type"].(string)
		desc, _ := prop["description"].(string)
		fmt.Fprintf(out, "      %s%s: %s - %s\n", name, req, typ, desc)
	}
}

func printRunStats(out io.Writer, resp agent.Response) {
	meta := resp.Metadata
	fmt.Fprintln(out, "--- Run ---")
	fmt.Fprintf(out, "  Outcome: %s\n", resp.Type)
	fmt.Fprintf(out, "  Model calls: %d\n", meta.ModelCalls)
	for _, call := range meta.ToolCalls {
		status := "ok"
		if !call.Success {
			status = "failed"
		}
		fmt.Fprintf(out, "  Tool %s: %s (%d ms, %d bytes)\n", call.Name, status, call.DurationMs, call.OutputSize)
	}
	if len(meta.GuardMatches) > 0 {
		fmt.Fprintf(out, "  Guard matches: %s\n", strings.Join(meta.GuardMatches, ", "))
	}
	usage, _ := json.Marshal(meta.TokenUsage)
	fmt.Fprintf(out, "  Tokens: %s\n", usage)
	fmt.Fprintf(out, "  Time: %d ms\n", meta.ExecutionTimeMs)
	fmt.Fprintln(out, "-----------")
}
