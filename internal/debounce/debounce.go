// Package debounce collapses bursts of calls into the last one.
package debounce

import (
	"sync"
	"time"
)

// Func wraps fn so that each call cancels any pending one and reschedules it
// wait after the latest call. Only the final arguments of a burst are used.
// There is no maximum wait: continuous calls postpone fn indefinitely.
func Func[T any](wait time.Duration, fn func(T)) func(T) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	return func(arg T) {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(wait, func() { fn(arg) })
	}
}

// Void is Func for callbacks without arguments.
func Void(wait time.Duration, fn func()) func() {
	d := Func(wait, func(struct{}) { fn() })
	return func() { d(struct{}{}) }
}
