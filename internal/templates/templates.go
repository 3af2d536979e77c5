// Package templates holds the catalog of meeting templates that shape the
// enhancement prompt.
package templates

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned for an unknown template id.
var ErrNotFound = errors.New("template not found")

// DefaultID is used when no template is selected.
const DefaultID = "general"

// Template describes one meeting type.
type Template struct {
	ID                      string `json:"id" yaml:"id"`
	Name                    string `json:"name" yaml:"name"`
	Prompt                  string `json:"prompt" yaml:"prompt"`
	EnhancementInstructions string `json:"enhancementInstructions" yaml:"enhancement_instructions"`
}

var builtins = []Template{
	{
		ID:                      "general",
		Name:                    "General Meeting",
		Prompt:                  "General discussion or meeting.",
		EnhancementInstructions: "Summarize the key points, decisions made, and action items. Group related topics under clear headings.",
	},
	{
		ID:                      "standup",
		Name:                    "Daily Standup",
		Prompt:                  "Team standup covering progress, plans and blockers.",
		EnhancementInstructions: "Organize notes per person into what they did, what they will do next and any blockers. Keep it brief.",
	},
	{
		ID:                      "one_on_one",
		Name:                    "1:1 Meeting",
		Prompt:                  "One-on-one conversation between a manager and a report.",
		EnhancementInstructions: "Capture discussion topics, feedback given in both directions, career or growth notes and agreed follow-ups.",
	},
	{
		ID:                      "client_call",
		Name:                    "Client Call",
		Prompt:                  "Call with a client or customer.",
		EnhancementInstructions: "Highlight client requirements, concerns, commitments made by either side and next steps with owners and dates.",
	},
	{
		ID:                      "interview",
		Name:                    "Interview",
		Prompt:                  "Candidate interview.",
		EnhancementInstructions: "Summarize the candidate's background, answers to key questions, strengths, concerns and the recommended next step.",
	},
	{
		ID:                      "brainstorm",
		Name:                    "Brainstorming",
		Prompt:                  "Open ideation session.",
		EnhancementInstructions: "List every idea raised, group similar ideas, note which ones gained support and any experiments to run.",
	},
}

// Catalog is an immutable set of templates keyed by id.
type Catalog struct {
	byID  map[string]Template
	order []string
}

// Builtin returns the catalog of built-in templates.
func Builtin() *Catalog {
	c := &Catalog{byID: make(map[string]Template)}
	for _, t := range builtins {
		c.add(t)
	}
	return c
}

// Load returns the built-in catalog extended or overridden by the YAML file
// at path. An empty path yields the built-ins.
func Load(path string) (*Catalog, error) {
	c := Builtin()
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}
	var file struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse templates file %s: %w", path, err)
	}
	for i, t := range file.Templates {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, fmt.Errorf("templates file %s: entry %d has no id", path, i)
		}
		if existing, ok := c.byID[t.ID]; ok {
			t = merge(existing, t)
		}
		if strings.TrimSpace(t.Name) == "" {
			t.Name = t.ID
		}
		c.add(t)
	}
	return c, nil
}

func merge(base, override Template) Template {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.Prompt != "" {
		base.Prompt = override.Prompt
	}
	if override.EnhancementInstructions != "" {
		base.EnhancementInstructions = override.EnhancementInstructions
	}
	return base
}

func (c *Catalog) add(t Template) {
	if _, ok := c.byID[t.ID]; !ok {
		c.order = append(c.order, t.ID)
	}
	c.byID[t.ID] = t
}

// Get returns the template with id.
func (c *Catalog) Get(id string) (Template, error) {
	t, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return t, nil
}

// List returns templates with built-ins first, in declaration order.
func (c *Catalog) List() []Template {
	out := make([]Template, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns the sorted template ids.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}

// Hint builds the instruction text passed to the enhancer.
func (t Template) Hint() string {
	var b strings.Builder
	b.WriteString(t.Name)
	if t.Prompt != "" {
		b.WriteString(": ")
		b.WriteString(t.Prompt)
	}
	if t.EnhancementInstructions != "" {
		b.WriteString("\n")
		b.WriteString(t.EnhancementInstructions)
	}
	return b.String()
}
