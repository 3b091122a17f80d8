package studio

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

// BatchResult is the outcome of one project in GenerateMany.
type BatchResult struct {
	ProjectID string
	Project   domain.Project
	Err       error
}

// GenerateMany renders first clips for several projects concurrently. One
// project's failure does not stop the others; results keep the input order.
func (s *Service) GenerateMany(ctx context.Context, ids []string, opts GenerateOptions) []BatchResult {
	results := make([]BatchResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batch)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			p, err := s.Generate(gctx, id, opts)
			results[i] = BatchResult{ProjectID: id, Project: p, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
