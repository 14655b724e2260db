// Package pipeline contains the report generation engine: the stage
// contract, the fixed stage registry, and the orchestrator that drives a
// report through every stage in order.
package pipeline

import "context"

// Input is what a stage collaborator sees: the seed parameters fixed at
// orchestration start plus a read-only view over the outputs accumulated by
// earlier stages.
type Input struct {
	URL         string
	Domain      string
	CompanyName string

	outputs map[string]map[string]any
}

// NewInput builds an Input over the given accumulated outputs.
func NewInput(url, domain, companyName string, outputs map[string]map[string]any) Input {
	return Input{URL: url, Domain: domain, CompanyName: companyName, outputs: outputs}
}

// Output returns the payload an earlier stage stored under key, or nil.
// Callers must treat the returned map as read-only.
func (in Input) Output(key string) map[string]any {
	return in.outputs[key]
}

// OutputKeys lists the keys present so far.
func (in Input) OutputKeys() []string {
	keys := make([]string, 0, len(in.outputs))
	for k := range in.outputs {
		keys = append(keys, k)
	}
	return keys
}

// Collaborator is one unit of work in the pipeline. Implementations must
// translate every internal failure into a returned error; the orchestrator
// never inspects the payload beyond storing it.
type Collaborator interface {
	Collect(ctx context.Context, in Input) (map[string]any, error)
}

// CollaboratorFunc adapts a function to the Collaborator interface.
type CollaboratorFunc func(ctx context.Context, in Input) (map[string]any, error)

func (f CollaboratorFunc) Collect(ctx context.Context, in Input) (map[string]any, error) {
	return f(ctx, in)
}

// FallbackFunc produces the deterministic substitute payload merged into the
// outputs when a stage fails. Downstream stages always see a value under the
// stage's output key, never a missing entry.
type FallbackFunc func(in Input, err error) map[string]any

// Stage is one entry of the fixed registry.
type Stage struct {
	// Name identifies the stage in progress entries and error messages.
	Name string

	// OutputKey is where the stage's payload (real or fallback) lands in
	// the report outputs.
	OutputKey string

	// Weight is the stage's share of overall progress.
	Weight int

	// Message is the human-readable description published while running.
	Message string

	Collaborator Collaborator
	Fallback     FallbackFunc
}
