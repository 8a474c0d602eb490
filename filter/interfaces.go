package filter

import "github.com/s0up4200/aitl/aitl"

// Filter decides whether a job is kept
type Filter interface {
	// Evaluate checks if a job matches the filter criteria
	Evaluate(job *aitl.Job) (bool, error)
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Expression returns the original filter expression
	Expression() string
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}
