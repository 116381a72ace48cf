package workflow

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MapConfig controls Map.
type MapConfig struct {
	// MaxConcurrency bounds parallel branches; zero means unbounded.
	MaxConcurrency int
	Step           []StepOption
}

// MapOption configures Map.
type MapOption func(c *MapConfig)

// WithMaxConcurrency sets the number of parallel branches.
func WithMaxConcurrency(n int) MapOption {
	return func(c *MapConfig) {
		c.MaxConcurrency = n
	}
}

// WithBranchOptions applies step options to every branch.
func WithBranchOptions(options ...StepOption) MapOption {
	return func(c *MapConfig) {
		c.Step = append(c.Step, options...)
	}
}

// Map runs fn for every item as a step named <name>-<index>. All branches
// must succeed; after the first failure no new branch starts and that error
// is returned. Results keep the order of items.
func Map[T, R any](ctx Context, name string, items []T, fn func(ctx context.Context, item T, index int) (R, error), options ...MapOption) ([]R, error) {
	config := &MapConfig{}
	for _, option := range options {
		option(config)
	}
	results := make([]R, len(items))
	group, groupCtx := errgroup.WithContext(ctx.Context())
	if config.MaxConcurrency > 0 {
		group.SetLimit(config.MaxConcurrency)
	}
	for i := range items {
		index, item := i, items[i]
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, err := Step[R](ctx, fmt.Sprintf("%v-%d", name, index), func(stepCtx context.Context) (R, error) {
				return fn(stepCtx, item, index)
			}, config.Step...)
			if err != nil {
				return err
			}
			results[index] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
