package project

import (
	"log/slog"

	"github.com/loomkit/loom/internal/pipeline"
)

// Listener receives typed build notifications. Any field may be nil.
type Listener struct {
	// OnUpdate receives the build output payload after a successful run.
	OnUpdate func(*pipeline.BuildOutput)
	// OnComplete fires after OnUpdate once the run has fully settled.
	OnComplete func()
	// OnError receives pipeline failures. When no subscriber provides
	// OnError, failures surface on the default diagnostic channel.
	OnError func(error)
}

// Subscribe registers a listener. Safe to call at any time; notifications
// fire on the build goroutine.
func (i *Instance) Subscribe(l Listener) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = append(i.listeners, l)
}

func (i *Instance) emitUpdate(out *pipeline.BuildOutput) {
	i.mu.Lock()
	listeners := append([]Listener(nil), i.listeners...)
	i.mu.Unlock()
	for _, l := range listeners {
		if l.OnUpdate != nil {
			l.OnUpdate(out)
		}
	}
}

func (i *Instance) emitComplete() {
	i.mu.Lock()
	listeners := append([]Listener(nil), i.listeners...)
	i.mu.Unlock()
	for _, l := range listeners {
		if l.OnComplete != nil {
			l.OnComplete()
		}
	}
}

// emitError routes a failure to error listeners, or to the default
// diagnostic channel when none is registered.
func (i *Instance) emitError(err error) {
	i.mu.Lock()
	listeners := append([]Listener(nil), i.listeners...)
	i.mu.Unlock()

	delivered := false
	for _, l := range listeners {
		if l.OnError != nil {
			l.OnError(err)
			delivered = true
		}
	}
	if !delivered {
		slog.Error("build failed", "error", err)
	}
}
