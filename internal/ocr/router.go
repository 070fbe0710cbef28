package ocr

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Router sends each document to the engine registered for its content type
// and falls back to the default engine for everything else.
type Router struct {
	fallback Engine
	byType   map[string]Engine
}

// NewRouter builds a Router. byType keys are MIME types such as application/pdf.
func NewRouter(fallback Engine, byType map[string]Engine) (*Router, error) {
	if fallback == nil {
		return nil, errors.New("fallback engine is required")
	}
	routes := make(map[string]Engine, len(byType))
	for contentType, engine := range byType {
		if engine == nil {
			return nil, errors.New("engine for " + contentType + " is nil")
		}
		routes[strings.ToLower(strings.TrimSpace(contentType))] = engine
	}
	return &Router{fallback: fallback, byType: routes}, nil
}

// Name lists the default engine first, then the routed ones.
func (r *Router) Name() string {
	names := make([]string, 0, len(r.byType))
	for _, engine := range r.byType {
		names = append(names, engine.Name())
	}
	sort.Strings(names)
	return strings.Join(append([]string{r.fallback.Name()}, names...), "+")
}

// Recognize delegates to the engine for in.ContentType and stamps the engine
// name on the result.
func (r *Router) Recognize(ctx context.Context, in Input) (Result, error) {
	engine := r.engineFor(in.ContentType)
	res, err := engine.Recognize(ctx, in)
	if err != nil {
		return Result{}, err
	}
	if res.Engine == "" {
		res.Engine = engine.Name()
	}
	return res, nil
}

func (r *Router) engineFor(contentType string) Engine {
	if engine, ok := r.byType[strings.ToLower(strings.TrimSpace(contentType))]; ok {
		return engine
	}
	return r.fallback
}
