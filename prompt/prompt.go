// Package prompt provides an explicit registry mapping verb strings to prompt
// templates, resolved by direct lookup. It replaces "any method name is a
// prompt" dynamic dispatch with a closed, inspectable set: unknown verbs are
// errors, and no reflection or proxying is involved.
package prompt

import (
	"fmt"
	"sort"
	"sync"

	"github.com/johnhenry/aimatey/internal/util"
	"github.com/johnhenry/aimatey/ir"
)

// Registry maps verbs to templates. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: map[string]string{}}
}

// Register binds a verb to a Go text/template body. Re-registering a verb
// replaces its template.
func (r *Registry) Register(verb, template string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[verb] = template
}

// Verbs returns the registered verbs in sorted order.
func (r *Registry) Verbs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	verbs := make([]string, 0, len(r.templates))
	for v := range r.templates {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	return verbs
}

// Resolve returns the raw template for a verb.
func (r *Registry) Resolve(verb string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tmpl, ok := r.templates[verb]
	if !ok {
		return "", fmt.Errorf("unknown prompt verb %q", verb)
	}
	return tmpl, nil
}

// Render resolves a verb and renders its template with the given data.
func (r *Registry) Render(verb string, data map[string]any) (string, error) {
	tmpl, err := r.Resolve(verb)
	if err != nil {
		return "", err
	}
	rendered, err := util.RenderTemplate(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("render prompt %q: %w", verb, err)
	}
	return rendered, nil
}

// Request renders a verb into a single-user-message chat request, ready to
// hand to a bridge or router.
func (r *Registry) Request(verb string, data map[string]any) (*ir.ChatRequest, error) {
	rendered, err := r.Render(verb, data)
	if err != nil {
		return nil, err
	}
	return &ir.ChatRequest{
		Messages: []ir.Message{ir.NewTextMessage(ir.RoleUser, rendered)},
		Metadata: ir.NewMetadata(),
	}, nil
}
