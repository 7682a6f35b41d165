package transcribe

import "context"

// Engine converts one audio file into recognized text. Implementations load
// their model once at construction and are safe for sequential reuse across
// files; they are never invoked concurrently.
type Engine interface {
	Transcribe(ctx context.Context, path, language string) (string, error)
	Close() error
}
