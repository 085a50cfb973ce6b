package service

import (
	"context"
	"time"

	"github.com/martinmana808/braintube/internal/cache"
)

const dequeueTimeout = 5 * time.Second

// RunSummaryWorker consumes queued summary jobs until the context is
// cancelled. It is only started when both Redis and a summarizer are
// configured.
func (s *Service) RunSummaryWorker(ctx context.Context) {
	s.logger.Printf("summary worker started")
	for {
		if ctx.Err() != nil {
			s.logger.Printf("summary worker stopped")
			return
		}

		job, err := cache.Dequeue(ctx, s.redis, cache.SummaryQueue, dequeueTimeout)
		if err != nil {
			s.logger.Printf("summary worker: dequeue failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if _, err := s.GenerateSummary(ctx, job.VideoID, job.Title); err != nil {
			s.logger.Printf("summary worker: video %s: %v", job.VideoID, err)
		}
	}
}
