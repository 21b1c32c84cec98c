// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"log/slog"
	"time"

	"github.com/sahana359/sahanarajashekara/corpus"
	"github.com/sahana359/sahanarajashekara/llm"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder(provider).Corpus(snap).Build()
type Builder struct {
	config Config
}

// NewBuilder creates a new agent builder for the given provider.
func NewBuilder(provider llm.Provider) *Builder {
	return &Builder{config: Config{Provider: provider}}
}

// Corpus sets the snapshot that grounds the system prompt.
func (b *Builder) Corpus(snap *corpus.Snapshot) *Builder {
	b.config.Corpus = snap
	return b
}

// Tools sets the tool definitions offered to the model and the factory
// that opens sessions to run them.
func (b *Builder) Tools(defs []llm.ToolDefinition, sessions SessionFactory) *Builder {
	b.config.Tools = append([]llm.ToolDefinition(nil), defs...)
	b.config.Sessions = sessions
	return b
}

// MaxTurns sets the model call budget per run.
func (b *Builder) MaxTurns(n int) *Builder {
	b.config.MaxTurns = n
	return b
}

// MaxInputChars sets the per-message character cap.
func (b *Builder) MaxInputChars(n int) *Builder {
	b.config.MaxInputChars = n
	return b
}

// MaxTokens sets the per-response token cap.
func (b *Builder) MaxTokens(n int64) *Builder {
	b.config.MaxTokens = n
	return b
}

// MaxParallelTools bounds concurrent tool calls within one turn.
func (b *Builder) MaxParallelTools(n int) *Builder {
	b.config.MaxParallelTools = n
	return b
}

// Owner sets the portfolio subject.
func (b *Builder) Owner(owner string) *Builder {
	b.config.Owner = owner
	return b
}

// Guard sets the injection guard mode.
func (b *Builder) Guard(mode GuardMode) *Builder {
	b.config.Guard = mode
	return b
}

// Logger sets the logger.
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.config.Logger = logger
	return b
}

// Clock overrides the time source used for the prompt's date.
func (b *Builder) Clock(now func() time.Time) *Builder {
	b.config.Now = now
	return b
}

// Build creates the agent.
func (b *Builder) Build() *Agent {
	return New(b.config)
}
