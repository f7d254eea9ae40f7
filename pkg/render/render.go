// Package render defines the contract of external diagram compilers.
package render

import "context"

// Compiler turns diagram source into an SVG document.
type Compiler interface {
	// Render returns the SVG for source, or an error when the compiler is
	// unreachable or rejects the source.
	Render(ctx context.Context, source string) (string, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, source string) (string, error)

func (f CompilerFunc) Render(ctx context.Context, source string) (string, error) {
	return f(ctx, source)
}
