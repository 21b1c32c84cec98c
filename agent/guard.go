// Input guard for prompt injection detection.
//
// InputGuard scans user messages for known injection patterns. What
// happens on a match depends on GuardMode:
//   - off:   scanning disabled
//   - log:   info-level logging
//   - warn:  warning-level logging (default)
//   - block: answer with the redirect reply without calling the model

package agent

import (
	"regexp"
	"strings"
)

// GuardMode selects the action taken on suspected injection.
type GuardMode string

const (
	GuardWarn  GuardMode = "warn"
	GuardOff   GuardMode = "off"
	GuardLog   GuardMode = "log"
	GuardBlock GuardMode = "block"
)

// ParseGuardMode parses a mode name. Unknown values fall back to warn.
func ParseGuardMode(s string) GuardMode {
	switch GuardMode(strings.ToLower(strings.TrimSpace(s))) {
	case GuardOff:
		return GuardOff
	case GuardLog:
		return GuardLog
	case GuardBlock:
		return GuardBlock
	default:
		return GuardWarn
	}
}

// guardPattern pairs a human-readable name with a compiled regex.
type guardPattern struct {
	name    string
	pattern *regexp.Regexp
}

// InputGuard scans user input for known prompt injection patterns.
type InputGuard struct {
	patterns []guardPattern
}

// NewInputGuard creates an InputGuard with the default set of injection detection patterns.
func NewInputGuard() *InputGuard {
	return &InputGuard{patterns: defaultGuardPatterns}
}

// Scan checks a message against all known injection patterns.
// Returns the names of matched patterns (empty slice = no matches).
func (g *InputGuard) Scan(message string) []string {
	if message == "" {
		return nil
	}
	var matches []string
	for _, gp := range g.patterns {
		if gp.pattern.MatchString(message) {
			matches = append(matches, gp.name)
		}
	}
	return matches
}

// PatternNames returns the names of all configured patterns.
func (g *InputGuard) PatternNames() []string {
	names := make([]string, len(g.patterns))
	for i, gp := range g.patterns {
		names[i] = gp.name
	}
	return names
}

var defaultGuardPatterns = []guardPattern{
	{
		name:    "ignore_instructions",
		pattern: regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(of\s+)?(your|the|previous|prior|above|earlier|preceding)\s+(instructions?|rules?|prompts?|directives?|guidelines?)`),
	},
	{
		name:    "reveal_prompt",
		pattern: regexp.MustCompile(`(?i)(reveal|show|print|repeat|output|tell me)\s+(me\s+)?(your|the)\s+(system\s+|hidden\s+|initial\s+)?(prompt|instructions)`),
	},
	{
		name:    "role_override",
		pattern: regexp.MustCompile(`(?i)(you are now|from now on you are|pretend you are|act as if you are|imagine you are)\s+`),
	},
	{
		name:    "system_tags",
		pattern: regexp.MustCompile(`(?i)</?system>|\[SYSTEM\]|\[INST\]|<<SYS>>|<\|im_start\|>system`),
	},
	{
		name:    "instruction_injection",
		pattern: regexp.MustCompile(`(?i)(new instructions?:|override:|system prompt:|<\|system\|>)`),
	},
	{
		name:    "null_bytes",
		pattern: regexp.MustCompile(`\x00`),
	},
	{
		name:    "delimiter_escape",
		pattern: regexp.MustCompile(`(?i)(end of system|begin user input|</?(instructions?|rules|prompt|context)>)`),
	},
}
