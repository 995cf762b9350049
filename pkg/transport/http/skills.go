package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/copaw/pkg/api"
)

// SkillSource is reported as the source of every built-in skill.
const SkillSource = "CoPaw"

// builtinSkills lists the capabilities advertised by /skills in order.
var builtinSkills = []struct {
	name        string
	description string
}{
	{"chat", "General-purpose conversational AI assistant"},
	{"code_assist", "Help with code writing, debugging, and explanation"},
	{"translation", "Translate text between languages"},
	{"summarization", "Summarize long texts and documents"},
}

// BuiltinSkills returns the fixed skill descriptors. Each descriptor's
// content is a YAML front-matter document carrying its description.
func BuiltinSkills() []api.Skill {
	skills := make([]api.Skill, 0, len(builtinSkills))
	for _, s := range builtinSkills {
		content, err := frontMatter(s.description)
		if err != nil {
			slog.Error("failed to render skill front matter", "skill", s.name, "error", err.Error())
			continue
		}
		skills = append(skills, api.Skill{
			Name:    s.name,
			Content: content,
			Source:  SkillSource,
			Enabled: true,
		})
	}
	return skills
}

// frontMatter renders
//
//	---
//	description: "..."
//	---
func frontMatter(description string) (string, error) {
	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "description"},
			{Kind: yaml.ScalarNode, Value: description, Style: yaml.DoubleQuotedStyle},
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return "---\n" + strings.TrimRight(string(out), "\n") + "\n---", nil
}

// handleSkills handles GET /skills.
func (a *Adapter) handleSkills(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.skills)
}

// RuntimeName is reported by the health endpoint.
const RuntimeName = "CoPaw (AgentScope)"

// handleHealth handles GET /health. It reports ok regardless of whether an
// upstream credential is configured.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(api.HealthStatus{
		Status:  "ok",
		Runtime: RuntimeName,
		Model:   a.config.Model,
		Version: a.config.Version,
	})
}
