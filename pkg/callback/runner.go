package callback

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/merith-tk/smart-keymap/internal/logging"
)

// RestartPolicy controls what a handler's runner does after its Lua
// function panics or returns an error, mirroring
// pkg/scripting.RestartPolicy's three-way choice but applied to a
// per-event handler instead of a long-running background loop.
type RestartPolicy int

const (
	// RestartAlways keeps dispatching further events to the handler after
	// an error (the default: one bad callback shouldn't silence a key).
	RestartAlways RestartPolicy = iota
	// RestartNever disables the handler permanently after its first error.
	RestartNever
	// RestartOnce tolerates exactly one error before disabling.
	RestartOnce
)

// Runner owns one persistent *lua.LState for a single callback tag's
// script, so a script's `state` table survives across repeated callback
// firings the way pkg/scripting.ScriptRunner's shared state table does.
type Runner struct {
	mu sync.Mutex

	Tag        uint16
	ScriptPath string

	l             *lua.LState
	state         *lua.LTable
	restartPolicy RestartPolicy
	errCount      int
	disabled      bool

	log *logging.Logger
}

// NewRunner loads scriptPath, registers the host module set, and runs the
// script body once (to define its handle() function and any globals).
func NewRunner(tag uint16, scriptPath string) (*Runner, error) {
	r := &Runner{
		Tag:           tag,
		ScriptPath:    scriptPath,
		restartPolicy: RestartAlways,
		log:           logging.New(fmt.Sprintf("callback:%d", tag)),
	}

	r.l = lua.NewState()
	r.state = r.l.NewTable()
	r.l.SetGlobal("state", r.state)
	r.l.SetGlobal("TAG", lua.LNumber(tag))

	registerModules(r.l, r.log)

	if err := r.l.DoFile(scriptPath); err != nil {
		r.l.Close()
		return nil, fmt.Errorf("callback: failed to load %s: %w", scriptPath, err)
	}

	if policy := r.l.GetGlobal("RESTART_POLICY"); policy.Type() == lua.LTString {
		switch policy.String() {
		case "never":
			r.restartPolicy = RestartNever
		case "once":
			r.restartPolicy = RestartOnce
		case "always":
			r.restartPolicy = RestartAlways
		}
	}

	return r, nil
}

// Handle invokes the script's handle(tag, payload, state) function for one
// CallbackEvent. A disabled runner (per its restart policy) is a no-op.
func (r *Runner) Handle(payload uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled {
		return nil
	}

	fn := r.l.GetGlobal("handle")
	if fn.Type() != lua.LTFunction {
		return nil
	}

	r.l.Push(fn)
	r.l.Push(lua.LNumber(r.Tag))
	r.l.Push(lua.LNumber(payload))
	r.l.Push(r.state)

	err := r.l.PCall(3, 0, nil)
	if err == nil {
		return nil
	}

	r.errCount++
	r.log.Errorf("handle error (attempt %d): %v", r.errCount, err)

	switch r.restartPolicy {
	case RestartNever:
		r.disabled = true
	case RestartOnce:
		if r.errCount > 1 {
			r.disabled = true
		}
	case RestartAlways:
	}

	return err
}

// Close releases the runner's Lua state.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.l != nil {
		r.l.Close()
		r.l = nil
	}
}
