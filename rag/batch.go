package rag

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Result is the outcome of one query answered by AnswerAll.
type Result struct {
	Query  string
	Answer string
	Err    error
}

// AnswerAll answers each query independently on a fixed-size worker pool.
// Results are returned in input order; a failed query only sets its own Err.
func (a *Answerer) AnswerAll(ctx context.Context, queries []string) ([]Result, error) {
	results := make([]Result, len(queries))
	if len(queries) == 0 {
		return results, nil
	}

	pool, err := ants.NewPool(a.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, query := range queries {
		results[i].Query = query
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			answer, err := a.Answer(ctx, query)
			results[i].Answer = answer
			results[i].Err = err
		}); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("failed to submit query %d: %w", i, err)
		}
	}
	wg.Wait()

	a.logger.Debug("answered batch", "queries", len(queries))
	return results, nil
}
