package tools

// roleTools is the capability matrix enforced in Registry.Execute: each
// core role maps to the tools it may invoke.
var roleTools = map[string][]string{
	"ceo": {"file_read", "file_write", "file_list", "shell_exec",
		"web_fetch", "delegate_task", "create_plan", "send_message", "n8n_trigger"},
	"researcher":   {"file_read", "file_list", "web_fetch"},
	"coder":        {"file_read", "file_write", "file_list", "shell_exec", "web_fetch"},
	"communicator": {"file_read", "file_list", "send_message"},
}

// presetRoleBase maps preset agent names to the core role whose tool
// permissions they inherit.
var presetRoleBase = map[string]string{
	// Architecture
	"system-designer":     "ceo",
	"database-planner":    "researcher",
	"api-designer":        "coder",
	"feature-spec-writer": "researcher",
	"tech-stack-advisor":  "researcher",

	// Code quality
	"code-reviewer":         "coder",
	"refactoring-expert":    "coder",
	"documentation-writer":  "coder",
	"test-strategist":       "coder",
	"security-auditor":      "coder",
	"performance-optimizer": "coder",

	// Design
	"ui-designer":           "researcher",
	"brand-designer":        "researcher",
	"icon-designer":         "researcher",
	"layout-designer":       "researcher",
	"color-specialist":      "researcher",
	"typography-expert":     "researcher",
	"wireframe-creator":     "researcher",
	"design-system-builder": "researcher",

	// Marketing
	"copywriter":           "communicator",
	"seo-optimizer":        "researcher",
	"email-writer":         "communicator",
	"social-media-creator": "communicator",
	"landing-page-writer":  "communicator",
	"blog-writer":          "communicator",
	"ad-copy-creator":      "communicator",

	// Product
	"user-story-writer":     "researcher",
	"feature-prioritizer":   "ceo",
	"ux-reviewer":           "researcher",
	"accessibility-checker": "researcher",
	"feedback-analyzer":     "researcher",
	"competitor-researcher": "researcher",

	// Business
	"privacy-policy-writer":   "communicator",
	"terms-writer":            "communicator",
	"pricing-strategist":      "ceo",
	"market-researcher":       "researcher",
	"business-model-analyzer": "researcher",
	"financial-planner":       "researcher",

	// DevOps
	"error-investigator":        "coder",
	"deployment-troubleshooter": "coder",
	"monitoring-setup":          "coder",
	"cost-optimizer":            "ceo",
	"backup-planner":            "coder",

	// Data
	"sql-expert":        "coder",
	"data-visualizer":   "coder",
	"analytics-setup":   "coder",
	"report-generator":  "coder",
	"dashboard-planner": "researcher",

	// Communication
	"technical-writer":     "communicator",
	"api-documenter":       "coder",
	"changelog-writer":     "communicator",
	"support-responder":    "communicator",
	"team-communicator":    "communicator",
	"presentation-builder": "communicator",

	// Research
	"technology-researcher": "researcher",
	"trend-analyzer":        "researcher",
	"library-evaluator":     "researcher",
	"best-practice-finder":  "researcher",
	"solution-architect":    "ceo",
}

// ToolsForRole returns the allowed tool names for a role. Preset agents
// inherit from their base role; unknown roles get nothing.
func ToolsForRole(role string) []string {
	if allowed, ok := roleTools[role]; ok {
		return allowed
	}
	if base, ok := presetRoleBase[role]; ok {
		return roleTools[base]
	}
	return nil
}

// BaseRole resolves a preset agent name to its core role, or returns the
// role unchanged when it already is one.
func BaseRole(role string) string {
	if _, ok := roleTools[role]; ok {
		return role
	}
	if base, ok := presetRoleBase[role]; ok {
		return base
	}
	return role
}

// PresetNames lists every known preset agent name.
func PresetNames() []string {
	names := make([]string, 0, len(presetRoleBase))
	for name := range presetRoleBase {
		names = append(names, name)
	}
	return names
}
