package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"mailagent/internal/agent/usecase"
)

// MailScheduler runs a processing pass on a fixed interval and whenever the
// wake channel fires (Gmail push notifications). A fatal index error stops
// the loop; everything else is logged and the next tick retries.
type MailScheduler struct {
	pipeline *usecase.Pipeline
	interval time.Duration
	wake     chan struct{}
	stopChan chan struct{}
}

func NewMailScheduler(pipeline *usecase.Pipeline, interval time.Duration) *MailScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &MailScheduler{
		pipeline: pipeline,
		interval: interval,
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
}

// Wake requests an immediate pass. Safe to call from any goroutine; a pass
// already pending absorbs additional wake calls.
func (s *MailScheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start begins the scheduler loop
func (s *MailScheduler) Start() {
	log.Printf("[Scheduler] Starting mail scheduler (interval: %s)", s.interval)

	go func() {
		// Run immediately on start
		if !s.runPass() {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if !s.runPass() {
					return
				}
			case <-s.wake:
				log.Println("[Scheduler] Wake signal received, running pass now")
				if !s.runPass() {
					return
				}
			case <-s.stopChan:
				log.Println("[Scheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *MailScheduler) Stop() {
	close(s.stopChan)
}

// runPass executes one pass; returns false when the loop must halt.
func (s *MailScheduler) runPass() bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	stats, err := s.pipeline.ProcessPass(ctx)
	if err != nil {
		if usecase.IsIndexError(err) {
			log.Printf("[Scheduler] FATAL: similarity index failed, halting scheduler: %v", err)
			return false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Printf("[Scheduler] Pass exceeded interval, remaining emails picked up next tick")
			return true
		}
		log.Printf("[Scheduler] Pass failed: %v", err)
		return true
	}

	if stats.Fetched > 0 {
		log.Printf("[Scheduler] Pass complete: %d processed, %d duplicates, %d errors",
			stats.Processed, stats.Duplicates, stats.Errors)
	}
	return true
}
