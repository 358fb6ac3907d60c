package loop

import (
	"fmt"

	"github.com/arloliu/brio/value"
)

// kind discriminates the three instruction shapes spec.md §4.5 allows.
type kind int

const (
	kindDef kind = iota
	kindExec
	kindEval
)

// instruction is a single parsed entry from a Ready-state instruction
// list: exactly one of def/exec/eval, per spec.md §4.5.
type instruction struct {
	kind   kind
	name   string      // def
	bound  value.Value // def's optional v, defaults to Null
	source string      // exec, eval
}

// parseInstruction decodes one instruction dict. A dict carrying none or
// more than one of def/exec/eval is rejected, matching the "exactly one
// of" requirement.
func parseInstruction(d *value.Dict) (instruction, error) {
	if d == nil {
		return instruction{}, fmt.Errorf("loop: instruction dict is nil")
	}

	defV, hasDef := d.Get("def")
	execV, hasExec := d.Get("exec")
	evalV, hasEval := d.Get("eval")

	count := 0
	for _, has := range []bool{hasDef, hasExec, hasEval} {
		if has {
			count++
		}
	}
	if count != 1 {
		return instruction{}, fmt.Errorf("loop: instruction dict must have exactly one of def/exec/eval, found %d", count)
	}

	switch {
	case hasDef:
		bound := value.Null()
		if v, ok := d.Get("v"); ok {
			bound = v
		}
		return instruction{kind: kindDef, name: defV.Str(), bound: bound}, nil // bound is applied directly to env by the caller, not via Evaluator
	case hasExec:
		return instruction{kind: kindExec, source: execV.Str()}, nil
	default:
		return instruction{kind: kindEval, source: evalV.Str()}, nil
	}
}
