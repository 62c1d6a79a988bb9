// Package tools defines the tool contract, the permission-enforcing
// registry, and the built-in tools every agent role draws from.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nextlevelbuilder/teamclaw/internal/providers"
	"github.com/nextlevelbuilder/teamclaw/internal/store"
)

// Tool is implemented by every capability an agent can invoke. Execute
// returns a result map carrying at least a "result" or "error" key; the
// map is serialized back to the model verbatim.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) map[string]any
}

// Errorf builds the conventional error result map.
func Errorf(format string, a ...any) map[string]any {
	return map[string]any{"error": fmt.Sprintf(format, a...)}
}

// Registry holds registered tools and gates execution on the caller's
// role permissions, auditing every attempt.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemasFor returns function-call schemas for the tools in allowed,
// in registry order.
func (r *Registry) SchemasFor(allowed []string) []providers.ToolDefinition {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var defs []providers.ToolDefinition
	for _, name := range sortedKeys(r.tools) {
		if _, ok := set[name]; !ok {
			continue
		}
		t := r.tools[name]
		defs = append(defs, providers.ToolDefinition{
			Type: "function",
			Function: providers.ToolFunctionSchema{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Execute validates permission, writes the audit row, and runs the tool.
// A panicking tool is recovered into an error result so one bad tool
// cannot take the agent loop down.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any,
	agentRole string, allowed []string, audit store.AuditFunc) (out map[string]any) {

	permitted := false
	for _, a := range allowed {
		if a == name {
			permitted = true
			break
		}
	}
	if !permitted {
		if audit != nil {
			audit(agentRole, name, args, store.AuditDenied, "not in allowed list")
		}
		return Errorf("Tool '%s' not permitted for role '%s'", name, agentRole)
	}

	tool := r.Get(name)
	if tool == nil {
		return Errorf("Tool '%s' not found", name)
	}

	if audit != nil {
		audit(agentRole, name, args, store.AuditAllowed, "")
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool.panic", "tool", name, "role", agentRole, "panic", rec)
			if audit != nil {
				audit(agentRole, name, args, store.AuditError, fmt.Sprint(rec))
			}
			out = Errorf("%v", rec)
		}
	}()

	out = tool.Execute(ctx, args)
	if msg, failed := out["error"].(string); failed && audit != nil {
		audit(agentRole, name, args, store.AuditError, msg)
	}
	return out
}

func sortedKeys(m map[string]Tool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// argString reads a string argument, returning fallback when absent.
func argString(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return fallback
}

// argInt reads an integer argument tolerant of JSON float decoding.
func argInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

func argBool(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func argMap(args map[string]any, key string) map[string]any {
	v, _ := args[key].(map[string]any)
	return v
}
