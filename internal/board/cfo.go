// Package board holds the governance middleware the coordinator
// consults before dispatching work: budget allocation (CFO), security
// review (CSO), and filesystem event binding (COO). All three are pure
// rule engines; none of them calls a model.
package board

import (
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/teamclaw/internal/config"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// Keyword signals for complexity scoring.
var complexSignals = []string{
	"architect", "design", "debug", "refactor", "analyze", "implement",
	"optimize", "explain", "compare", "evaluate", "write code", "build",
	"system", "algorithm", "pipeline", "integration", "security",
}

var fastSignals = []string{
	"summarize", "translate", "bullet", "list", "quick", "brief",
	"format", "convert", "rename", "fix typo", "spell", "grammar",
}

// Blended $/1K token estimates per model tier.
var costPer1K = map[string]float64{
	"complex": 0.003,
	"simple":  0.0003,
	"fast":    0.0001,
}

var tierMultiplier = map[string]float64{
	"complex": 1.0,
	"simple":  0.75,
	"fast":    0.5,
}

// CFODecision is the budget verdict for one task.
type CFODecision struct {
	TaskType         string // "complex", "simple", "fast"
	MaxTokens        int
	Approved         bool
	Reason           string
	ProjectedCostUSD float64
}

// CFO decides the model tier and token allocation for each task, and
// vetoes tasks the remaining daily budget cannot cover. A single tier
// downgrade is attempted before a veto.
type CFO struct {
	cfg   *config.Config
	store *store.Store
}

func NewCFO(cfg *config.Config, st *store.Store) *CFO {
	return &CFO{cfg: cfg, store: st}
}

// Allocate classifies a task, sizes its token budget, and checks the
// projected cost against what is left of today's budget.
func (c *CFO) Allocate(taskText, agentRole string) CFODecision {
	taskType := c.classify(taskText, agentRole)
	maxTokens := c.tokenAlloc(taskType, agentRole)
	projected := projectCost(taskType, maxTokens)

	dailyUsed, err := c.store.GetDailyCost()
	if err != nil {
		dailyUsed = 0
	}
	dailyLimit := c.cfg.Budget.DailyUSD
	remaining := dailyLimit - dailyUsed

	if projected > remaining {
		if down := downgrade(taskType); down != taskType {
			projectedDown := projectCost(down, maxTokens)
			if projectedDown <= remaining {
				return CFODecision{
					TaskType:  down,
					MaxTokens: maxTokens,
					Approved:  true,
					Reason: fmt.Sprintf("Downgraded %s→%s: $%.5f fits remaining $%.4f",
						taskType, down, projectedDown, remaining),
					ProjectedCostUSD: projectedDown,
				}
			}
		}
		return CFODecision{
			TaskType:  taskType,
			MaxTokens: maxTokens,
			Approved:  false,
			Reason: fmt.Sprintf("Budget veto: projected $%.5f > remaining $%.4f (daily $%.2f)",
				projected, remaining, dailyLimit),
			ProjectedCostUSD: projected,
		}
	}

	return CFODecision{
		TaskType:  taskType,
		MaxTokens: maxTokens,
		Approved:  true,
		Reason: fmt.Sprintf("Approved %s ($%.5f, $%.4f/$%.2f used)",
			taskType, projected, dailyUsed, dailyLimit),
		ProjectedCostUSD: projected,
	}
}

// CostReport summarizes spend for status reporting.
type CostReport struct {
	DailyUsed  float64
	DailyLimit float64
	DailyPct   float64
	WeeklyUsed float64
	Status     string // "ok", "warning", "exhausted"
}

func (c *CFO) Report() CostReport {
	daily, _ := c.store.GetDailyCost()
	weekly, _ := c.store.GetWeeklyCost()
	limit := c.cfg.Budget.DailyUSD
	pct := 0.0
	if limit > 0 {
		pct = daily / limit * 100
	}
	status := "ok"
	switch {
	case pct >= 100:
		status = "exhausted"
	case pct >= 80:
		status = "warning"
	}
	return CostReport{
		DailyUsed:  daily,
		DailyLimit: limit,
		DailyPct:   pct,
		WeeklyUsed: weekly,
		Status:     status,
	}
}

// classify maps task text to a model tier by keyword scoring. The
// researcher always gets "simple"; retrieval is not heavy reasoning.
func (c *CFO) classify(text, agentRole string) string {
	if agentRole == "researcher" || agentRole == "cko" {
		return "simple"
	}
	lower := strings.ToLower(text)

	complexHits := 0
	for _, kw := range complexSignals {
		if strings.Contains(lower, kw) {
			complexHits++
		}
	}
	fastHits := 0
	for _, kw := range fastSignals {
		if strings.Contains(lower, kw) {
			fastHits++
		}
	}

	switch {
	case complexHits >= 2 || len(text) > 400:
		return "complex"
	case fastHits >= 1 && complexHits == 0:
		return "fast"
	case len(text) < 80:
		return "fast"
	default:
		return "simple"
	}
}

func (c *CFO) tokenAlloc(taskType, agentRole string) int {
	budget := c.cfg.AgentBudgetFor(agentRole)
	mult, ok := tierMultiplier[taskType]
	if !ok {
		mult = 0.75
	}
	alloc := int(float64(budget.MaxOutputTokens) * mult)
	if alloc < 256 {
		alloc = 256
	}
	return alloc
}

func projectCost(taskType string, maxTokens int) float64 {
	rate, ok := costPer1K[taskType]
	if !ok {
		rate = 0.001
	}
	return rate * float64(maxTokens) / 1000
}

func downgrade(taskType string) string {
	switch taskType {
	case "complex":
		return "simple"
	case "simple":
		return "fast"
	default:
		return "fast"
	}
}
