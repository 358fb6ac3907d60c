package loop

import "github.com/arloliu/brio/value"

// Env is the string-to-Value environment persisted across instructions
// within one connection (spec.md §4.5). The evaluator owns its
// semantics; the loop only threads it through def/exec/eval dispatch.
type Env map[string]value.Value

// Clone returns a shallow copy of env, used when handing the environment
// to an Evaluator that returns a replacement rather than mutating in
// place.
func (env Env) Clone() Env {
	cp := make(Env, len(env))
	for k, v := range env {
		cp[k] = v
	}
	return cp
}
