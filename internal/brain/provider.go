package brain

import "context"

// Provider is a text-completion backend for the oracle strategy. Complete
// honors ctx cancellation; the oracle wraps every call in a timeout.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}
