package scripting

import (
	"context"
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/feforecast/internal/forecast"
	"github.com/cory-johannsen/feforecast/internal/game/ruleset"
)

// Evaluator is the subset of forecast.Service used by scripts.
type Evaluator interface {
	Evaluate(ctx context.Context, m forecast.Matchup) (forecast.Forecast, error)
	Simulate(ctx context.Context, m forecast.Matchup) (forecast.Forecast, error)
}

// Manager owns one sandboxed LState holding the currently loaded script.
//
// Manager is safe for concurrent use; an LState is single-threaded, so every
// call into Lua holds the mutex.
type Manager struct {
	mu          sync.Mutex
	L           *lua.LState
	cancel      context.CancelFunc
	eval        Evaluator
	logger      *zap.Logger
	defaultGame ruleset.Game
	instLimit   int
}

// NewManager creates a Manager whose scripts evaluate through eval. Tables
// passed to forecast.evaluate without a game use defaultGame.
//
// Precondition: eval and logger must be non-nil; instLimit >= 0.
// Postcondition: Returns a Manager with no script loaded.
func NewManager(eval Evaluator, logger *zap.Logger, defaultGame ruleset.Game, instLimit int) *Manager {
	if eval == nil || logger == nil {
		panic("scripting: NewManager requires a non-nil evaluator and logger")
	}
	return &Manager{
		eval:        eval,
		logger:      logger,
		defaultGame: defaultGame,
		instLimit:   instLimit,
	}
}

// LoadFile replaces the loaded script with the file at path and runs its top
// level. The script's Lua calls are bounded by ctx and the instruction limit.
//
// Postcondition: On success the new VM is installed; on failure the previous
// VM is kept and a non-nil error is returned.
func (m *Manager) LoadFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("scripting: reading %q: %w", path, err)
	}
	return m.LoadString(ctx, path, string(src))
}

// LoadString is LoadFile for an in-memory script; name labels errors and logs.
func (m *Manager) LoadString(ctx context.Context, name, src string) error {
	L, cancel := NewSandboxedState(ctx, m.instLimit)
	m.RegisterModules(L)

	if err := L.DoString(src); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}

	m.mu.Lock()
	m.closeLocked()
	m.L, m.cancel = L, cancel
	m.mu.Unlock()

	m.logger.Debug("script loaded", zap.String("script", name))
	return nil
}

// Call invokes the named global function of the loaded script with args.
//
// Postcondition: Returns the function's first return value, LNil when the
// function returns nothing, or an error when no script is loaded, the global
// is not a function, or Lua raises an error.
func (m *Manager) Call(fn string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.L == nil {
		return lua.LNil, fmt.Errorf("scripting: no script loaded")
	}
	f, ok := m.L.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return lua.LNil, fmt.Errorf("scripting: %q is not a function", fn)
	}
	if err := m.L.CallByParam(lua.P{Fn: f, NRet: 1, Protect: true}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("function", fn),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: calling %q: %w", fn, err)
	}
	ret := m.L.Get(-1)
	m.L.Pop(1)
	return ret, nil
}

// Close releases the loaded VM, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	if m.L == nil {
		return
	}
	m.cancel()
	m.L.Close()
	m.L, m.cancel = nil, nil
}
