package ports

import "context"

// CopyProvider is a remote text-generation backend able to turn a plain-text
// instruction block into raw model output. Implementations must bound the
// call with a timeout; a failed or non-2xx call is an error, never a panic.
type CopyProvider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
