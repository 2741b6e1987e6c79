package common

import "fmt"

// Assert panics with a formatted message when the condition is false.
// Reserved for invariants that indicate engine bugs, not user errors.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}
