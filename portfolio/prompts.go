package portfolio

import (
	"context"
	"fmt"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/sahana359/sahanarajashekara/corpus"
)

// Prompt template names.
const (
	PromptIntroduce  = "introduce_owner"
	PromptWhyHire    = "why_hire_owner"
	PromptDeepDive   = "project_deep_dive"
	ArgProjectName   = "project_name"
	defaultEducation = "(education details unavailable)"
)

func (p *Portfolio) registerPrompts(s *server.MCPServer) {
	first := firstName(p.owner)

	s.AddPrompt(mcpgo.NewPrompt(PromptIntroduce,
		mcpgo.WithPromptDescription(fmt.Sprintf("Generate an introduction for %s.", first)),
	), p.introduce)

	s.AddPrompt(mcpgo.NewPrompt(PromptWhyHire,
		mcpgo.WithPromptDescription(fmt.Sprintf("Generate reasons to hire %s.", first)),
	), p.whyHire)

	s.AddPrompt(mcpgo.NewPrompt(PromptDeepDive,
		mcpgo.WithPromptDescription("Generate a detailed explanation of a specific project."),
		mcpgo.WithArgument(ArgProjectName,
			mcpgo.ArgumentDescription("Name of the project to explain"),
			mcpgo.RequiredArgument(),
		),
	), p.deepDive)
}

func userPrompt(description, body string) *mcpgo.GetPromptResult {
	return mcpgo.NewGetPromptResult(description, []mcpgo.PromptMessage{
		mcpgo.NewPromptMessage(mcpgo.RoleUser, mcpgo.NewTextContent(body)),
	})
}

// displayName prefers firstName/lastName, then name, then the configured owner.
func (p *Portfolio) displayName() string {
	about, _ := p.object(corpus.KeyAbout)
	if about != nil {
		if f := text(about, "firstName"); f != "" {
			return strings.TrimSpace(f + " " + text(about, "lastName"))
		}
		if n := text(about, "name"); n != "" {
			return n
		}
	}
	return p.owner
}

func (p *Portfolio) introduce(ctx context.Context, req mcpgo.GetPromptRequest) (*mcpgo.GetPromptResult, error) {
	name := p.displayName()
	about, _ := p.object(corpus.KeyAbout)

	education := defaultEducation
	if schools, err := p.list(corpus.KeyEducation); err == nil && len(schools) > 0 {
		s := schools[0]
		education = fmt.Sprintf("%s in %s from %s", text(s, "degree"), text(s, "field"), text(s, "institution"))
	}

	body := fmt.Sprintf(`Please introduce %s based on this information:

Name: %s
Title: %s
Summary: %s
Highlights: %s
Education: %s

Create a warm, professional introduction in first person.`,
		firstName(name), name, text(about, "title"), text(about, "summary"),
		strings.Join(texts(about, "highlights"), ", "), education)

	return userPrompt("Introduction", body), nil
}

func (p *Portfolio) whyHire(ctx context.Context, req mcpgo.GetPromptRequest) (*mcpgo.GetPromptResult, error) {
	name := p.displayName()
	about, _ := p.object(corpus.KeyAbout)

	var experience, projects []string
	if entries, err := p.list(corpus.KeyExperience); err == nil {
		for _, e := range entries {
			experience = append(experience, fmt.Sprintf("- %s at %s", text(e, "role"), text(e, "company")))
		}
	}
	if entries, err := p.list(corpus.KeyProjects); err == nil {
		for _, e := range entries {
			projects = append(projects, fmt.Sprintf("- %s: %s", text(e, "name"), text(e, "description")))
		}
	}

	body := fmt.Sprintf(`Based on this information, explain why someone should hire %s:

Title: %s
Focus Areas: %s

Experience:
%s

Projects:
%s

Provide compelling reasons to hire %s, highlighting skills and experience.`,
		name, text(about, "title"), strings.Join(texts(about, "highlights"), ", "),
		strings.Join(experience, "\n"), strings.Join(projects, "\n"), name)

	return userPrompt("Reasons to hire", body), nil
}

func (p *Portfolio) deepDive(ctx context.Context, req mcpgo.GetPromptRequest) (*mcpgo.GetPromptResult, error) {
	projectName := req.Params.Arguments[ArgProjectName]
	if projectName == "" {
		return nil, fmt.Errorf("%s is required", ArgProjectName)
	}

	projects, _ := p.list(corpus.KeyProjects)
	proj := findContaining(projects, "name", projectName)
	if proj == nil {
		return userPrompt("Project not found", fmt.Sprintf("Project '%s' not found.", projectName)), nil
	}

	body := fmt.Sprintf(`Explain this project in detail:

Name: %s
Description: %s
Long Description: %s
Technologies: %s
Categories: %s
Highlights: %s

Provide a detailed, engaging explanation of this project.`,
		text(proj, "name"), text(proj, "description"), text(proj, "longDescription"),
		strings.Join(texts(proj, "technologies"), ", "),
		strings.Join(texts(proj, "categories"), ", "),
		strings.Join(texts(proj, "highlights"), ", "))

	return userPrompt("Project deep dive", body), nil
}
