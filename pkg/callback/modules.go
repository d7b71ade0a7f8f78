package callback

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/merith-tk/smart-keymap/internal/logging"
)

// registerModules preloads the Lua modules available to a callback
// handler script. Adapted from pkg/scripting/modules/log.go's
// preloaded-module Loader shape, trimmed to what a keymap callback
// script needs: structured logging. The shell/http/streamdeck modules a
// button script could reach for have no place here — a callback handler
// runs inside the keymap's tick path, not a display-refresh loop.
func registerModules(l *lua.LState, log *logging.Logger) {
	l.PreloadModule("log", newLogModule(log).Loader)
}

type logModule struct {
	log *logging.Logger
}

func newLogModule(log *logging.Logger) *logModule { return &logModule{log: log} }

func (m *logModule) Loader(l *lua.LState) int {
	mod := l.SetFuncs(l.NewTable(), map[string]lua.LGFunction{
		"info":  m.info,
		"warn":  m.warn,
		"error": m.error,
		"debug": m.debug,
	})
	l.Push(mod)
	return 1
}

func (m *logModule) info(l *lua.LState) int {
	m.log.Info(l.CheckString(1))
	return 0
}

func (m *logModule) warn(l *lua.LState) int {
	m.log.Warn(l.CheckString(1))
	return 0
}

func (m *logModule) error(l *lua.LState) int {
	m.log.Error(l.CheckString(1))
	return 0
}

func (m *logModule) debug(l *lua.LState) int {
	m.log.Debug(l.CheckString(1))
	return 0
}
