package loop

import (
	"context"

	"github.com/arloliu/brio/value"
)

// NoopEvaluator is a pass-through Evaluator: env is returned unchanged
// and eval produces no result value. spec.md §2 specifies the host
// evaluator only as an opaque "string-in / value-out" contract external
// to BRIO; cmd/brioloopd wires NoopEvaluator as its default so the daemon
// runs standalone without requiring a real embedded language, leaving a
// concrete evaluator as something an embedder supplies via this
// interface.
type NoopEvaluator struct{}

func (NoopEvaluator) Eval(ctx context.Context, source string, env Env) (Env, *value.Value, error) {
	return env, nil, nil
}
