package exprtree_test

import (
	"testing"

	"github.com/zephyrtronium/exprtree"
)

func FuzzEval(f *testing.F) {
	f.Add("x")
	f.Add("y")
	f.Add("1×2")
	f.Add(`sum(x, {1, 2}) + if(x > 0, "a", 1/0)`)
	f.Add(`map(\(a) a^2, {x, 2})`)
	f.Fuzz(func(t *testing.T, s string) {
		exprtree.EvalString(s, exprtree.SetVar("x", int64(0)))
	})
}
