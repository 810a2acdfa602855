package registry

import (
	"context"
	"sync"

	"github.com/rzpsarthak13/rowmap/internal/core"
)

// LifecycleHook observes persisted writes. Hooks run after the statement
// has completed, so they cannot veto the write.
type LifecycleHook interface {
	// OnWrite is called with the change produced by a save, update or remove.
	OnWrite(ctx context.Context, event *core.ChangeEvent) error
}

// LifecycleHookFunc adapts a plain function to LifecycleHook.
type LifecycleHookFunc func(ctx context.Context, event *core.ChangeEvent) error

// OnWrite calls f.
func (f LifecycleHookFunc) OnWrite(ctx context.Context, event *core.ChangeEvent) error {
	return f(ctx, event)
}

// LifecycleManager fans change events out to registered hooks.
type LifecycleManager struct {
	mu    sync.RWMutex
	hooks []LifecycleHook
}

// NewLifecycleManager creates a new lifecycle manager.
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		hooks: make([]LifecycleHook, 0),
	}
}

// RegisterHook registers a hook. Hooks run in registration order.
func (lm *LifecycleManager) RegisterHook(hook LifecycleHook) {
	if hook == nil {
		return
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.hooks = append(lm.hooks, hook)
}

// ExecuteWriteHooks runs every hook with the event. All hooks run even if
// an earlier one fails; the first error is returned.
func (lm *LifecycleManager) ExecuteWriteHooks(ctx context.Context, event *core.ChangeEvent) error {
	lm.mu.RLock()
	hooks := make([]LifecycleHook, len(lm.hooks))
	copy(hooks, lm.hooks)
	lm.mu.RUnlock()

	var first error
	for _, hook := range hooks {
		if err := hook.OnWrite(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ClearHooks removes all registered hooks.
func (lm *LifecycleManager) ClearHooks() {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.hooks = make([]LifecycleHook, 0)
}

// HookCount returns the number of registered hooks.
func (lm *LifecycleManager) HookCount() int {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return len(lm.hooks)
}
