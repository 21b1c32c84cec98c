// Agent configuration types.
//
// Information Hiding:
// - Default values hidden
// - Guard mode parsing hidden

package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sahana359/sahanarajashekara/corpus"
	"github.com/sahana359/sahanarajashekara/llm"
	"github.com/sahana359/sahanarajashekara/mcp"
)

// Defaults applied by New when a Config field is zero.
const (
	DefaultMaxTurns         = 10
	DefaultMaxInputChars    = 2000
	DefaultMaxTokens        = 1024
	DefaultMaxParallelTools = 4
)

// ToolSession is one connection to the capability provider, used for a
// single batch of tool calls and then closed. *mcp.Client implements it.
type ToolSession interface {
	Connect(ctx context.Context) error
	Disconnect() error
	CallTool(ctx context.Context, name string, input json.RawMessage) (*mcp.ToolResult, error)
}

// SessionFactory returns a fresh, disconnected session. Each call must
// return a session that is not shared with any other run.
type SessionFactory func() ToolSession

// Config holds agent configuration.
type Config struct {
	// Provider answers model requests.
	Provider llm.Provider

	// Corpus grounds the system prompt. Nil means no data.
	Corpus *corpus.Snapshot

	// Tools are offered to the model. They are only offered when Sessions
	// is set.
	Tools []llm.ToolDefinition

	// Sessions opens capability provider sessions. Nil disables tool access.
	Sessions SessionFactory

	// MaxTurns bounds the number of model calls per run.
	MaxTurns int

	// MaxInputChars caps each inbound message, in characters.
	MaxInputChars int

	// MaxTokens caps each model response.
	MaxTokens int64

	// MaxParallelTools bounds concurrent tool calls within one turn.
	MaxParallelTools int

	// Owner is the portfolio subject named in the system prompt.
	Owner string

	// Guard decides what happens when a message looks like prompt injection.
	Guard GuardMode

	Logger *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// HasTools returns true if the agent can call tools.
func (c *Config) HasTools() bool {
	return c.Sessions != nil && len(c.Tools) > 0
}

func (c Config) withDefaults() Config {
	if c.Corpus == nil {
		c.Corpus = corpus.Empty()
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	if c.MaxInputChars <= 0 {
		c.MaxInputChars = DefaultMaxInputChars
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MaxParallelTools <= 0 {
		c.MaxParallelTools = DefaultMaxParallelTools
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
