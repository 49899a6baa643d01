package hydrate

import "context"

// EnsureTypesForFile inspects a file's imports and loads declarations for
// every referenced package not yet loaded or queued. Packages matching a
// configured path alias are skipped; aliased specifiers point into the
// project, not at node_modules.
//
// Draining is serialized: concurrent calls enqueue their packages, and
// whichever caller finds the queue idle drains everything, including
// entries added while it runs. Each drain round processes a small batch
// with one discovery round-trip and one bulk content read.
func (e *Engine) EnsureTypesForFile(ctx context.Context, content string) error {
	e.mu.Lock()
	if e.resolver == nil {
		e.mu.Unlock()
		return ErrNoWorkspace
	}
	aliases := e.aliases

	for _, pkg := range ScanImports(content) {
		if aliases.Matches(pkg) {
			continue
		}
		if _, done := e.loaded[pkg]; done {
			continue
		}
		if _, pending := e.queued[pkg]; pending {
			continue
		}
		e.queued[pkg] = struct{}{}
		e.queue = append(e.queue, pkg)
	}

	if e.draining || len(e.queue) == 0 {
		e.mu.Unlock()
		return nil
	}
	e.draining = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.draining = false
		e.mu.Unlock()
	}()

	batchSize := e.budget.LazyBatchSize
	if batchSize <= 0 {
		batchSize = DefaultLazyBatchSize
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e.mu.Lock()
		if len(e.queue) == 0 {
			e.mu.Unlock()
			return nil
		}
		n := batchSize
		if n > len(e.queue) {
			n = len(e.queue)
		}
		batch := make([]string, n)
		copy(batch, e.queue[:n])
		e.queue = e.queue[n:]
		e.mu.Unlock()

		e.loadPackages(ctx, batch)
	}
}

// QueueLen reports how many packages are waiting for lazy loading.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}
