package filter

import (
	"iter"

	"github.com/s0up4200/aitl/aitl"
)

// Apply returns the jobs of seq that match f, in the order seq yields them.
// Errors from seq are passed through; an evaluation error ends the sequence.
func Apply(seq iter.Seq2[*aitl.Job, error], f Filter) iter.Seq2[*aitl.Job, error] {
	return func(yield func(*aitl.Job, error) bool) {
		for job, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}

			ok, err := f.Evaluate(job)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok && !yield(job, nil) {
				return
			}
		}
	}
}
