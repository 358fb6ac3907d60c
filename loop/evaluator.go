package loop

import (
	"context"

	"github.com/arloliu/brio/value"
)

// Evaluator is the external collaborator that gives exec/eval
// instructions meaning. The loop core neither parses nor interprets
// source strings (spec.md §4.5): it only dispatches to Eval and relays
// whatever Value comes back.
//
// def instructions never reach Eval; binding a name to a value is the
// loop's own bookkeeping, not the evaluator's concern. exec and eval
// instructions call Eval with the instruction's source string. Eval
// returns the updated environment and, for eval only, the produced
// Value.
type Evaluator interface {
	Eval(ctx context.Context, source string, env Env) (Env, *value.Value, error)
}
