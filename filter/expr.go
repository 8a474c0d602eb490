package filter

import (
	"maps"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/aitl/aitl"
)

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression  string
	program     *vm.Program
	helperFuncs map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) Compiler {
	c := &exprCompiler{
		helperFuncs: map[string]any{},
	}
	addHelperFunctions(c.helperFuncs)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
}

// Compile compiles an expression into an executable filter. Names are checked
// against the job environment, so a misspelt field fails here rather than at
// evaluation time.
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	env := createRuntimeEnvironment(&aitl.Job{})
	maps.Copy(env, c.helperFuncs)

	program, err := expr.Compile(expression,
		expr.Env(env),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	return &exprFilter{
		expression:  expression,
		program:     program,
		helperFuncs: c.helperFuncs,
	}, nil
}

// Compile compiles expression with the default helper set
func Compile(expression string) (CompiledFilter, error) {
	return NewExprCompiler().Compile(expression)
}

// Evaluate evaluates the filter against a job
func (f *exprFilter) Evaluate(job *aitl.Job) (bool, error) {
	env := createRuntimeEnvironment(job)
	maps.Copy(env, f.helperFuncs)

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			JobName:    job.Name,
			Reason:     "failed to run expression",
			Err:        err,
		}
	}

	// Result is guaranteed to be bool due to AsBool() option during compilation
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// addHelperFunctions adds the job-independent helper functions to env
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["hoursSince"] = func(t time.Time) float64 {
		return time.Since(t).Hours()
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse("2006-01-02", dateStr)
		return t
	}
	// String helpers
	// Case-insensitive; contains, startsWith and endsWith are expr operators
	env["containsFold"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["hasPrefix"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["hasSuffix"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	env["lower"] = strings.ToLower
	env["upper"] = strings.ToUpper
	// Current time
	env["now"] = time.Now
}

// createRuntimeEnvironment creates the evaluation environment for one job
func createRuntimeEnvironment(job *aitl.Job) map[string]any {
	env := make(map[string]any, 32)

	addHelperFunctions(env)

	env["Job"] = job

	// Job-specific helpers
	env["hasTag"] = createHasTagFunc(job.Metadata)
	env["tag"] = createTagFunc(job.Metadata)

	// Direct job properties for convenience
	env["ID"] = job.ID
	env["Name"] = job.Name
	env["Location"] = job.Location
	env["Status"] = string(job.Status)
	env["Terminal"] = job.Status.IsTerminal()
	env["TemplateName"] = job.TemplateName
	env["Tags"] = job.Metadata
	env["CreatedAt"] = job.CreatedAt
	env["UpdatedAt"] = job.UpdatedAt
	env["StartedAt"] = job.StartedAt
	env["FinishedAt"] = job.FinishedAt

	return env
}

// createHasTagFunc reports whether a tag is present, and equal to value when one is given
func createHasTagFunc(tags map[string]string) func(string, ...string) bool {
	return func(key string, value ...string) bool {
		v, ok := tags[key]
		if !ok {
			return false
		}
		if len(value) == 0 {
			return true
		}
		return strings.EqualFold(v, value[0])
	}
}

func createTagFunc(tags map[string]string) func(string) string {
	return func(key string) string {
		return tags[key]
	}
}
