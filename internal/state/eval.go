// internal/state/eval.go
package state

import (
	"time"

	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

// evalTimeout caps script execution; page bundles can loop forever
// without a DOM to settle against.
const evalTimeout = 2 * time.Second

// evalScript runs the script in a minimal browser-ish environment and
// reads the marker expression back out. This recovers states that are
// valid JavaScript object literals but not valid JSON (unquoted keys,
// trailing commas, expressions).
func evalScript(script, marker string) (node *Node, ok bool) {
	vm := goja.New()

	// window aliases the global object so assignments to window.* land
	// where we can read them back.
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("document", map[string]interface{}{})
	vm.Set("console", map[string]interface{}{
		"log":   func(call goja.FunctionCall) goja.Value { return nil },
		"warn":  func(call goja.FunctionCall) goja.Value { return nil },
		"error": func(call goja.FunctionCall) goja.Value { return nil },
	})

	timer := time.AfterFunc(evalTimeout, func() {
		vm.Interrupt("script evaluation timed out")
	})
	defer timer.Stop()

	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("Script evaluation panicked")
			node, ok = nil, false
		}
	}()

	if _, err := vm.RunString(script); err != nil {
		// Most page scripts fail without a real DOM; the assignment may
		// still have executed before the failure, so read on regardless.
		log.Debug().Err(err).Msg("Script evaluation reported an error")
	}

	val, err := vm.RunString(marker)
	if err != nil || val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, false
	}

	result := FromAny(val.Export())
	if result.Kind() != KindMapping {
		return nil, false
	}
	return result, true
}
