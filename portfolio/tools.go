package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/text/cases"

	"github.com/sahana359/sahanarajashekara/corpus"
	"github.com/sahana359/sahanarajashekara/prompt"
)

func (p *Portfolio) registerTools(s *server.MCPServer) {
	first := firstName(p.owner)

	s.AddTool(mcpgo.NewTool("search_projects",
		mcpgo.WithDescription("Search for projects by name, technology, category or description."),
		mcpgo.WithString("query", mcpgo.Required(), mcpgo.Description("Search term to find relevant projects")),
	), p.searchProjects)

	s.AddTool(mcpgo.NewTool("get_experience_by_company",
		mcpgo.WithDescription("Get experience details for a specific company."),
		mcpgo.WithString("company", mcpgo.Required(), mcpgo.Description("Company name to search for")),
	), p.experienceByCompany)

	s.AddTool(mcpgo.NewTool("get_skills_by_category",
		mcpgo.WithDescription("Get skills filtered by category."),
		mcpgo.WithString("category", mcpgo.Required(),
			mcpgo.Description("Category name (e.g., 'languages', 'frontend', 'backend', 'ml_ai', 'tools')")),
	), p.skillsByCategory)

	s.AddTool(mcpgo.NewTool("get_certificate_by_name",
		mcpgo.WithDescription("Get a specific certificate by name."),
		mcpgo.WithString("name", mcpgo.Required(), mcpgo.Description("Certificate name to search for")),
	), p.certificateByName)

	s.AddTool(mcpgo.NewTool("get_jackie_facts",
		mcpgo.WithDescription(fmt.Sprintf("Get fun facts about Jackie, %s's dog.", first)),
	), p.jackieFacts)
}

func (p *Portfolio) searchProjects(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	projects, err := p.list(corpus.KeyProjects)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	fold := cases.Fold()
	needle := fold.String(query)

	var matches []any
	for _, project := range projects {
		searchable := strings.Join([]string{
			text(project, "name"),
			text(project, "description"),
			strings.Join(texts(project, "technologies"), " "),
			strings.Join(texts(project, "categories"), " "),
		}, " ")
		if strings.Contains(fold.String(searchable), needle) {
			matches = append(matches, project)
		}
	}

	if len(matches) == 0 {
		return mcpgo.NewToolResultText(fmt.Sprintf("No projects found matching '%s'", query)), nil
	}
	return mcpgo.NewToolResultText(prompt.Render(matches)), nil
}

func (p *Portfolio) experienceByCompany(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	company, err := req.RequireString("company")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	entries, err := p.list(corpus.KeyExperience)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	if entry := findContaining(entries, "company", company); entry != nil {
		return mcpgo.NewToolResultText(prompt.Render(entry)), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("No experience found for company '%s'", company)), nil
}

func (p *Portfolio) skillsByCategory(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	category, err := req.RequireString("category")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	skills, err := p.object(corpus.KeySkills)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	key := strings.ReplaceAll(strings.ToLower(category), " ", "_")
	if found, ok := skills[key]; ok {
		return mcpgo.NewToolResultText(prompt.Render(found)), nil
	}

	available := make([]string, 0, len(skills))
	for k := range skills {
		available = append(available, k)
	}
	sort.Strings(available)
	return mcpgo.NewToolResultText(fmt.Sprintf("Category '%s' not found. Available: %s",
		category, strings.Join(available, ", "))), nil
}

func (p *Portfolio) certificateByName(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	certs, err := p.list(corpus.KeyCertificates)
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}

	if cert := findContaining(certs, "name", name); cert != nil {
		return mcpgo.NewToolResultText(prompt.Render(cert)), nil
	}
	return mcpgo.NewToolResultText(fmt.Sprintf("No certificate found matching '%s'", name)), nil
}

func (p *Portfolio) jackieFacts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	doc, ok := p.snap.Get(corpus.KeyJackie)
	jackie, isMap := doc.(map[string]any)
	if !ok || !isMap {
		return mcpgo.NewToolResultError("no data about Jackie is available"), nil
	}

	facts := make(map[string]any)
	for _, field := range []string{"name", "breed", "personality", "likes"} {
		if v, ok := jackie[field]; ok {
			facts[field] = v
		}
	}
	return mcpgo.NewToolResultText(prompt.Render(facts)), nil
}

// list returns the entries of a section. Sections are stored either as
// {"<key>": [...]} or as a bare array.
func (p *Portfolio) list(key string) ([]map[string]any, error) {
	doc, ok := p.snap.Get(key)
	if !ok {
		return nil, fmt.Errorf("no %s data is available", key)
	}
	if m, ok := doc.(map[string]any); ok {
		doc = m[key]
	}
	raw, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("%s data has an unexpected shape", key)
	}

	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// object returns a keyed section, unwrapping {"<key>": {...}} when present.
func (p *Portfolio) object(key string) (map[string]any, error) {
	doc, ok := p.snap.Get(key)
	if !ok {
		return nil, fmt.Errorf("no %s data is available", key)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s data has an unexpected shape", key)
	}
	if inner, ok := m[key].(map[string]any); ok {
		return inner, nil
	}
	return m, nil
}

func findContaining(entries []map[string]any, field, query string) map[string]any {
	fold := cases.Fold()
	needle := fold.String(query)
	for _, entry := range entries {
		if strings.Contains(fold.String(text(entry, field)), needle) {
			return entry
		}
	}
	return nil
}

func text(m map[string]any, field string) string {
	s, _ := m[field].(string)
	return s
}

func texts(m map[string]any, field string) []string {
	raw, _ := m[field].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func firstName(owner string) string {
	if fields := strings.Fields(owner); len(fields) > 0 {
		return fields[0]
	}
	return owner
}
