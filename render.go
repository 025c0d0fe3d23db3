package hxwire

import (
	"bytes"
	"context"
	"fmt"
)

// Renderer turns a hydrated component into markup.
type Renderer interface {
	RenderComponent(ctx context.Context, c Component) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, c Component) (string, error)

func (f RendererFunc) RenderComponent(ctx context.Context, c Component) (string, error) {
	return f(ctx, c)
}

// TemplRenderer renders the templ.Component returned by Component.Render.
type TemplRenderer struct{}

// RenderComponent implements Renderer. Failures match ErrRenderFailed.
func (TemplRenderer) RenderComponent(ctx context.Context, c Component) (string, error) {
	tmpl := c.Render(ctx)
	if tmpl == nil {
		return "", fmt.Errorf("%w: %s returned no template", ErrRenderFailed, c.ComponentName())
	}
	var buf bytes.Buffer
	if err := tmpl.Render(ctx, &buf); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrRenderFailed, c.ComponentName(), err)
	}
	return buf.String(), nil
}
