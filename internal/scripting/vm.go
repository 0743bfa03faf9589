package scripting

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
)

// LogEntry is a single message written by the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// VM wraps a goja runtime with sandbox restrictions and the autoplay
// globals (log, stop, cashout, resetstats).
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	// Set from inside script callbacks, so they must not take mu.
	stopRequested    atomic.Bool
	cashoutRequested atomic.Bool
	resetRequested   atomic.Bool
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
	maxLogEntries     = 500
)

// NewVM creates a sandboxed runtime. difficulties is exposed to the
// script as the DIFFICULTIES array.
func NewVM(difficulties []string) *VM {
	vm := &VM{
		runtime: goja.New(),
		maxLogs: maxLogEntries,
	}
	vm.injectGlobalFunctions()
	injectConstants(vm.runtime, difficulties)
	return vm
}

func (vm *VM) injectGlobalFunctions() {
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		vm.appendLog(strings.Join(parts, " "))
		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	_ = console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	vm.runtime.Set("stop", func(call goja.FunctionCall) goja.Value {
		vm.stopRequested.Store(true)
		vm.runtime.Set("running", false)
		return goja.Undefined()
	})

	// cashout() takes effect before the next step of the current round.
	vm.runtime.Set("cashout", func(call goja.FunctionCall) goja.Value {
		vm.cashoutRequested.Store(true)
		return goja.Undefined()
	})

	vm.runtime.Set("resetstats", func(call goja.FunctionCall) goja.Value {
		vm.resetRequested.Store(true)
		return goja.Undefined()
	})

	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

func (vm *VM) appendLog(msg string) {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	if len(vm.logs) >= vm.maxLogs {
		vm.logs = vm.logs[1:]
	}
	vm.logs = append(vm.logs, LogEntry{Time: time.Now().UTC(), Message: msg})
}

// Execute runs the script body once so it can register its callbacks and
// set initial variables.
func (vm *VM) Execute(source string) error {
	return vm.runWithTimeout(scriptInitTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if _, err := vm.runtime.RunString(source); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		return nil
	})
}

// HasFunc reports whether the script defined a global function name.
func (vm *VM) HasFunc(name string) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	_, ok := goja.AssertFunction(vm.runtime.Get(name))
	return ok
}

// Call invokes the script function name with no arguments.
func (vm *VM) Call(name string) error {
	return vm.runWithTimeout(scriptCallTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		callable, ok := goja.AssertFunction(vm.runtime.Get(name))
		if !ok {
			return fmt.Errorf("%s is not a function", name)
		}
		if _, err := callable(goja.Undefined()); err != nil {
			return fmt.Errorf("%s() error: %w", name, err)
		}
		return nil
	})
}

// Interrupt aborts whatever the runtime is executing, now or next.
func (vm *VM) Interrupt(reason string) {
	vm.runtime.Interrupt(reason)
}

// StopRequested reports whether the script called stop().
func (vm *VM) StopRequested() bool {
	return vm.stopRequested.Load()
}

// TakeCashout reports and clears a pending cashout() request.
func (vm *VM) TakeCashout() bool {
	return vm.cashoutRequested.Swap(false)
}

// TakeResetStats reports and clears a pending resetstats() request.
func (vm *VM) TakeResetStats() bool {
	return vm.resetRequested.Swap(false)
}

// SetVariables pushes vars into the runtime.
func (vm *VM) SetVariables(vars *Variables) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	injectVariables(vm.runtime, vars)
}

// SyncVariables reads the script-writable variables back into vars.
func (vm *VM) SyncVariables(vars *Variables) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	syncFromVM(vm.runtime, vars)
}

// Logs returns a copy of the log buffer.
func (vm *VM) Logs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		vm.runtime.Interrupt("script execution timeout")
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("script timed out: %w", err)
			}
			return fmt.Errorf("script timed out")
		case <-time.After(200 * time.Millisecond):
			return fmt.Errorf("script timed out")
		}
	}
}
