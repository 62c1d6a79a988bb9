package board

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// Shell fragments that must never run, no matter which agent asks.
var blockCommands = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+-[rf]{1,2}\s+/`),
	regexp.MustCompile(`(?i)\brmdir\s+/s\b`),
	regexp.MustCompile(`\b(dd|shred)\b.*\b/dev/`),
	regexp.MustCompile(`\bcurl\b.*\|\s*(sh|bash|python)`),
	regexp.MustCompile(`\bwget\b.*-O\s*-\b.*\|\s*(sh|bash|python)`),
	regexp.MustCompile(`\bsudo\s+rm\b`),
	regexp.MustCompile(`\bchmod\s+777\b`),
	regexp.MustCompile(`\b(mkfs|fdisk|parted)\b`),
	regexp.MustCompile(`\b(nc|netcat)\b.*-e\b`),
	regexp.MustCompile(`\b(python|python3|perl|ruby)\s+-c\b.*exec`),
	regexp.MustCompile(`>\s*/etc/(passwd|shadow|sudoers)`),
	regexp.MustCompile(`\bkill\s+-9\s+1\b`),
	regexp.MustCompile(`:\(\)\{:\|:&\};:`),
}

type piiPattern struct {
	name string
	re   *regexp.Regexp
}

var piiPatterns = []piiPattern{
	{"credit_card", regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13})\b`)},
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"api_key_sk", regexp.MustCompile(`\bsk-[A-Za-z0-9]{20,}\b`)},
	{"api_key_gsk", regexp.MustCompile(`\bgsk_[A-Za-z0-9]{20,}\b`)},
	{"private_key", regexp.MustCompile(`-----BEGIN (RSA |EC )?PRIVATE KEY-----`)},
	{"aws_key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
}

// HighRiskTools are tool names whose arguments get a security review
// before every execution.
var HighRiskTools = map[string]bool{
	"shell_exec": true,
	"run_python": true,
	"file_write": true,
}

var blockedPathPrefixes = []string{
	"/etc/", "/sys/", "/proc/", "/boot/",
	`C:\Windows\`, `C:\System32\`,
}

var riskOrder = map[string]int{"low": 0, "medium": 1, "high": 2, "critical": 3}

// CSODecision is the security verdict for one task or tool call.
type CSODecision struct {
	Approved     bool
	RiskLevel    string // "low", "medium", "high", "critical"
	Findings     []string
	RedactedText string
}

// CSO is the veto gate called before task execution. Pattern matching
// only; the coordinator must not proceed when Approved is false.
type CSO struct {
	store *store.Store
}

func NewCSO(st *store.Store) *CSO {
	return &CSO{store: st}
}

// Review inspects a task or command before execution. An empty tool
// name means a general task-text review, which still checks commands.
func (c *CSO) Review(taskText, toolName, agentRole string) CSODecision {
	var findings []string
	risk := "low"

	if toolName == "" || HighRiskTools[toolName] {
		if blocked := checkCommands(taskText); len(blocked) > 0 {
			findings = append(findings, blocked...)
			risk = "critical"
		}
	}

	redacted, piiHits := redactPII(taskText)
	if len(piiHits) > 0 {
		findings = append(findings, piiHits...)
		risk = maxRisk(risk, "high")
	}

	if pathIssues := checkPaths(taskText); len(pathIssues) > 0 {
		findings = append(findings, pathIssues...)
		risk = "critical"
	}

	approved := risk != "critical"

	if c.store != nil {
		role := agentRole
		if role == "" {
			role = "cso"
		}
		tool := toolName
		if tool == "" {
			tool = "policy_review"
		}
		detail := "clean"
		if len(findings) > 0 {
			detail = strings.Join(findings, "; ")
		}
		verdict := store.AuditAllowed
		if !approved {
			verdict = store.AuditDenied
		}
		c.store.Audit(role, tool, map[string]any{"task_preview": preview(taskText, 200)}, verdict, detail)
	}

	return CSODecision{
		Approved:     approved,
		RiskLevel:    risk,
		Findings:     findings,
		RedactedText: redacted,
	}
}

// ReviewToolArgs flattens tool arguments to text and reviews them.
func (c *CSO) ReviewToolArgs(toolName string, args map[string]any, agentRole string) CSODecision {
	parts := make([]string, 0, len(args))
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%v", args[k]))
	}
	return c.Review(strings.Join(parts, " "), toolName, agentRole)
}

func checkCommands(text string) []string {
	var issues []string
	for _, pattern := range blockCommands {
		if pattern.MatchString(text) {
			issues = append(issues, "Blocked command pattern: "+preview(pattern.String(), 60))
		}
	}
	return issues
}

// redactPII masks matches in place so redacted text is safe to log or
// forward. Re-running on already redacted text is a no-op.
func redactPII(text string) (string, []string) {
	var hits []string
	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			text = p.re.ReplaceAllString(text, "[REDACTED:"+strings.ToUpper(p.name)+"]")
			hits = append(hits, "PII detected and redacted: "+p.name)
		}
	}
	return text, hits
}

func checkPaths(text string) []string {
	var issues []string
	lower := strings.ToLower(text)
	for _, prefix := range blockedPathPrefixes {
		if strings.Contains(lower, strings.ToLower(prefix)) {
			issues = append(issues, "Blocked system path reference: "+prefix)
		}
	}
	return issues
}

func maxRisk(a, b string) string {
	if riskOrder[b] > riskOrder[a] {
		return b
	}
	return a
}

func preview(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
