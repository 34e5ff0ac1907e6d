package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	invopopSchema "github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Handle provides the shared client. Acquire fails when the client is not
// initialized or not ready; the dispatcher reports that as client_unavailable
// without running the action.
type Handle[C any] interface {
	Acquire(ctx context.Context) (C, error)
}

// HandleFunc adapts a function to the Handle interface.
type HandleFunc[C any] func(ctx context.Context) (C, error)

// Acquire calls f(ctx).
func (f HandleFunc[C]) Acquire(ctx context.Context) (C, error) {
	return f(ctx)
}

// Action describes one callable operation. In must be a struct; its json
// tags name the arguments and its jsonschema tags describe and constrain them.
type Action[C, In, Out any] struct {
	Name        string
	Title       string
	Description string
	ReadOnly    bool
	Destructive bool
	Run         func(ctx context.Context, client C, in In) (Out, error)
}

// Descriptor is the immutable, client independent view of a registered action.
type Descriptor struct {
	Name        string
	Title       string
	Description string
	ReadOnly    bool
	Destructive bool

	// Schema is the reflected JSON schema of the input.
	Schema json.RawMessage
	// Properties maps argument names to their schema fragments.
	Properties map[string]any
	// Required lists required arguments in declaration order.
	Required []string

	order        []string
	descriptions map[string]string
}

// Arguments returns the argument names in declaration order.
func (d *Descriptor) Arguments() []string {
	return append([]string(nil), d.order...)
}

// Missing returns the required arguments absent from args, in declaration order.
func (d *Descriptor) Missing(args map[string]any) []string {
	var missing []string
	for _, name := range d.Required {
		if v, ok := args[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// Tool returns the MCP tool definition.
func (d *Descriptor) Tool() mcp.Tool {
	tool := mcp.NewTool(d.Name,
		mcp.WithDescription(d.Description),
		mcp.WithTitleAnnotation(d.Title),
		mcp.WithReadOnlyHintAnnotation(d.ReadOnly),
		mcp.WithDestructiveHintAnnotation(d.Destructive),
	)
	props := make(map[string]any, len(d.Properties))
	for k, v := range d.Properties {
		props[k] = v
	}
	tool.InputSchema.Properties = props
	tool.InputSchema.Required = append([]string(nil), d.Required...)
	return tool
}

// Prompt returns the MCP prompt definition exposing the same arguments.
func (d *Descriptor) Prompt() mcp.Prompt {
	required := make(map[string]bool, len(d.Required))
	for _, name := range d.Required {
		required[name] = true
	}

	opts := []mcp.PromptOption{mcp.WithPromptDescription(d.Description)}
	for _, name := range d.order {
		argOpts := []mcp.ArgumentOption{mcp.ArgumentDescription(d.descriptions[name])}
		if required[name] {
			argOpts = append(argOpts, mcp.RequiredArgument())
		}
		opts = append(opts, mcp.WithArgument(name, argOpts...))
	}
	return mcp.NewPrompt(d.Name, opts...)
}

// Register adds an action to the dispatcher. It must be called before the
// dispatcher serves calls.
func Register[C, In, Out any](d *Dispatcher[C], a Action[C, In, Out]) error {
	if a.Name == "" {
		return fmt.Errorf("action name cannot be empty")
	}
	if a.Run == nil {
		return fmt.Errorf("action %s has no run function", a.Name)
	}
	if _, exists := d.entries[a.Name]; exists {
		return fmt.Errorf("action %s already registered", a.Name)
	}

	desc, compiled, err := describe[In](a.Name)
	if err != nil {
		return err
	}
	desc.Title = a.Title
	desc.Description = a.Description
	desc.ReadOnly = a.ReadOnly
	desc.Destructive = a.Destructive

	run := a.Run
	d.entries[a.Name] = &entry[C]{
		desc: desc,
		bind: func(args map[string]any) (any, *Error) {
			return bind[In](desc, compiled, args)
		},
		invoke: func(ctx context.Context, client C, in any) (any, error) {
			return run(ctx, client, in.(In))
		},
	}
	d.order = append(d.order, a.Name)
	return nil
}

// describe reflects In into a descriptor and compiles its schema.
func describe[In any](name string) (*Descriptor, *jsonschema.Schema, error) {
	t := reflect.TypeOf((*In)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("action %s: input must be a struct, got %s", name, t.Kind())
	}

	reflector := &invopopSchema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		Anonymous:                  true,
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	s := reflector.ReflectFromType(t)

	raw, err := json.Marshal(s)
	if err != nil {
		return nil, nil, fmt.Errorf("action %s: failed to encode schema: %w", name, err)
	}

	compiled, err := jsonschema.CompileString("mem:///"+name+".json", string(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("action %s: invalid schema: %w", name, err)
	}

	desc := &Descriptor{
		Name:         name,
		Schema:       raw,
		Properties:   map[string]any{},
		Required:     append([]string(nil), s.Required...),
		descriptions: map[string]string{},
	}
	if s.Properties != nil {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			fragment, err := json.Marshal(pair.Value)
			if err != nil {
				return nil, nil, fmt.Errorf("action %s: failed to encode property %s: %w", name, pair.Key, err)
			}
			var prop map[string]any
			if err := json.Unmarshal(fragment, &prop); err != nil {
				return nil, nil, fmt.Errorf("action %s: failed to decode property %s: %w", name, pair.Key, err)
			}
			desc.Properties[pair.Key] = prop
			desc.descriptions[pair.Key] = pair.Value.Description
			desc.order = append(desc.order, pair.Key)
		}
	}
	return desc, compiled, nil
}
