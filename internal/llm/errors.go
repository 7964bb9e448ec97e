package llm

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNoProvider means no provider had credentials for the call.
var ErrNoProvider = eris.New("llm: no provider configured")

// ProviderError is returned when every candidate provider failed. Provider
// and Model identify the last provider tried and are empty when none was
// configured.
type ProviderError struct {
	Task     TaskType
	Provider string
	Model    string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("llm: %s: %v", e.Task, e.Err)
	}
	return fmt.Sprintf("llm: %s via %s/%s: %v", e.Task, e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
