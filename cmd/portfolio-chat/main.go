// Package main provides the portfolio-chat CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sahana359/sahanarajashekara/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider   string
	maxTurns   int
	verbose    bool
	localTools bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "portfolio-chat",
		Short: "Chat assistant that answers questions about a portfolio",
		Long: `A chat assistant grounded in a personal portfolio.

Portfolio data comes from an MCP capability provider (MCP_SERVER_URL or
MCP_CONFIG) or from the JSON files in PORTFOLIO_DATA_DIR. When a provider is
configured its tools are offered to the model.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (anthropic, openai, deepseek, gemini)")
	rootCmd.PersistentFlags().IntVarP(&maxTurns, "max-turns", "m", 0, "Maximum model calls per answer (default from MAX_TURNS)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")
	rootCmd.PersistentFlags().BoolVar(&localTools, "local-tools", false, "Serve portfolio tools in-process when no MCP provider is configured")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(mcpServerCmd())
	rootCmd.AddCommand(corpusCmd())
	rootCmd.AddCommand(systemPromptCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	opts := cli.DefaultOptions()
	opts.Provider = provider
	opts.MaxTurns = maxTurns
	opts.Verbose = verbose
	opts.LocalTools = localTools
	return opts
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP API",
		Long: `Run the chat HTTP API.

Endpoints:
- POST /chat    answer a message given prior history
- GET  /health  corpus status
- GET  /debug   corpus keys and the redacted provider URL`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Serve(cmd.Context(), addr, options())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from HOST and PORT)")

	return cmd
}

func askCmd() *cobra.Command {
	var template string
	var templateArgs map[string]string

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Answer a single message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := ""
			if len(args) == 1 {
				message = args[0]
			}
			return cli.Ask(cmd.Context(), message, template, templateArgs, options())
		},
	}

	cmd.Flags().StringVar(&template, "template", "", "Render the message from a provider prompt template")
	cmd.Flags().StringToStringVar(&templateArgs, "arg", nil, "Template argument as key=value (repeatable)")

	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(cmd.Context(), os.Stdin, options())
		},
	}
}

func mcpServerCmd() *cobra.Command {
	var transport string
	var addr string
	var baseURL string

	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve the portfolio data and tools over MCP",
		Long: `Serve the JSON files in PORTFOLIO_DATA_DIR as an MCP capability provider.

Resources are exposed as portfolio://{name}, along with the portfolio
search tools and prompt templates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ServeMCP(cmd.Context(), transport, addr, baseURL, options())
		},
	}

	cmd.Flags().StringVar(&transport, "transport", cli.TransportSSE, "Transport (sse, stdio)")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8001", "Listen address for SSE")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL for SSE (default http://{addr})")

	return cmd
}

func corpusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "corpus",
		Short: "Show the loaded portfolio resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ShowCorpus(cmd.Context(), options())
		},
	}
}

func systemPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "system-prompt",
		Short: "Print the system prompt built from the current corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ShowSystemPrompt(cmd.Context(), options())
		},
	}
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(cmd.Context(), verboseTools, options())
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters and prompt templates")

	return cmd
}
