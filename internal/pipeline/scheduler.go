package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/collage-pipeline/internal/post"
)

// DefaultConcurrency is the worker pool bound used when the caller passes a
// non-positive value.
const DefaultConcurrency = 5

// result pairs a finished job with its original batch index.
type result struct {
	index int
	path  string
}

// RunBatch generates collages for every post concurrently, bounded by
// concurrency, and returns the collage paths aligned with the input order.
// An empty string means no collage was produced for that post.
//
// Workers report (index, path) over a channel; a single collector goroutine
// owns the results slice, so out-of-order completion never affects output
// order and no locks touch business data.
func (p *Pipeline) RunBatch(ctx context.Context, posts []post.Descriptor, concurrency int) []string {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	start := time.Now()
	log.Info().
		Str("run", p.runID).
		Int("posts", len(posts)).
		Int("concurrency", concurrency).
		Msg("Starting collage batch")

	paths := make([]string, len(posts))
	results := make(chan result)
	collected := make(chan struct{})
	go func() {
		for r := range results {
			paths[r.index] = r.path
		}
		close(collected)
	}()

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)
	for i := range posts {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}        // Acquire semaphore
			defer func() { <-sem }() // Release semaphore

			results <- result{index: idx, path: p.generate(ctx, &posts[idx], idx)}
		}(i)
	}
	wg.Wait()
	close(results)
	<-collected

	produced := 0
	for _, path := range paths {
		if path != "" {
			produced++
		}
	}
	log.Info().
		Str("run", p.runID).
		Int("posts", len(posts)).
		Int("collages", produced).
		Int("skipped", len(posts)-produced).
		Dur("elapsed", time.Since(start)).
		Msg("Collage batch complete")

	return paths
}

// Apply attaches each collage path to its originating descriptor and returns
// the augmented slice. Input order is preserved.
func Apply(posts []post.Descriptor, paths []string) []post.Descriptor {
	for i := range posts {
		if i < len(paths) {
			posts[i].CollagePath = paths[i]
		}
	}
	return posts
}
