package chat

import "context"

// TokenStream is a lazy, finite, non-restartable sequence of text fragments.
// Recv returns io.EOF on normal exhaustion; any other error aborts the
// stream.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Source opens completion streams against the external provider.
type Source interface {
	// Configured reports whether provider credentials are present. Checked
	// before any persistence so an unconfigured deployment writes nothing.
	Configured() bool
	Stream(ctx context.Context, prompt string) (TokenStream, error)
}
