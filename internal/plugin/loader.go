package plugin

import (
	"log/slog"

	"github.com/loomkit/loom/internal/compiler"
	"github.com/loomkit/loom/internal/errors"
)

// LoadResult records the outcome of resolving one plugin reference.
type LoadResult struct {
	Name   string
	Plugin Plugin // nil on failure
	Err    error  // nil on success
}

// Load resolves an ordered sequence of plugin references against the
// registry. Resolution failures are non-fatal: the failing reference is
// skipped, recorded in its LoadResult, and logged. The returned processors
// preserve configuration order.
func Load(reg *Registry, names []string) ([]compiler.Processor, []LoadResult) {
	results := make([]LoadResult, 0, len(names))
	procs := make([]compiler.Processor, 0, len(names))

	for _, name := range names {
		p, err := reg.Get(name)
		if err != nil {
			lerr := errors.PluginLoadError(err, name)
			slog.Warn("skipping plugin", "plugin", name, "error", lerr)
			results = append(results, LoadResult{Name: name, Err: lerr})
			continue
		}
		results = append(results, LoadResult{Name: name, Plugin: p})
		procs = append(procs, p)
	}
	return procs, results
}

// Failed filters a result set down to the failures.
func Failed(results []LoadResult) []LoadResult {
	var out []LoadResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
