package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pablo-lozano-martin/genesis-sub004/core"
	"github.com/pablo-lozano-martin/genesis-sub004/model"
)

// Registry maps tool names to implementations and validates arguments against
// each tool's JSON schema before dispatch. Unknown tool names and schema
// violations are reported through the tool result content, never as errors,
// so a confused model can recover on its next turn.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*gojsonschema.Schema
	order   []string
}

// NewRegistry creates a registry pre-populated with the given tools.
// Registration failures (duplicate names, malformed schemas) panic here since
// they indicate a programming error, not a runtime condition.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*gojsonschema.Schema),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(fmt.Sprintf("tool registry: %v", err))
		}
	}
	return r
}

// Register adds a tool, compiling its parameter schema once up front.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Parameters()))
	if err != nil {
		return fmt.Errorf("compile schema for tool %q: %w", name, err)
	}

	r.tools[name] = t
	r.schemas[name] = schema
	r.order = append(r.order, name)
	return nil
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Definitions builds the tool declarations handed to the generation model,
// one per registered tool in registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Dispatch resolves and executes a single tool call. The returned ToolResult
// always carries content; unknown names and invalid arguments produce
// explanatory content with no patch.
func (r *Registry) Dispatch(ctx context.Context, inv *Invocation, call core.ToolCall) core.ToolResult {
	r.mu.RLock()
	t, ok := r.tools[call.Name]
	schema := r.schemas[call.Name]
	r.mu.RUnlock()

	if !ok {
		inv.Log().Warn("tool.dispatch.unknown", "tool", call.Name)
		return core.ToolResult{
			CallID:  call.ID,
			Content: fmt.Sprintf("Unknown tool '%s'. Available tools: %s", call.Name, strings.Join(r.Names(), ", ")),
		}
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	if err := validateArguments(schema, args); err != nil {
		inv.Log().Warn("tool.dispatch.invalid_args", "tool", call.Name, "error", err.Error())
		return core.ToolResult{
			CallID:  call.ID,
			Content: fmt.Sprintf("Invalid arguments for tool '%s': %v", call.Name, err),
		}
	}

	inv.CallID = call.ID
	result := t.Call(ctx, inv, args)
	return core.ToolResult{
		CallID:  call.ID,
		Content: result.Content,
		Patch:   result.Patch,
	}
}

func validateArguments(schema *gojsonschema.Schema, args map[string]any) error {
	if schema == nil {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		sort.Strings(msgs)
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}
