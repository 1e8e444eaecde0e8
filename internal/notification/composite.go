package notification

import (
	"context"
	"errors"

	"mailagent/internal/agent/domain"
	"mailagent/internal/agent/usecase"
)

// CompositeSink fans out to every configured sink. All sinks are attempted;
// errors are joined so one dead webhook does not silence the others.
type CompositeSink struct {
	sinks []usecase.NotificationSink
}

func NewCompositeSink(sinks ...usecase.NotificationSink) *CompositeSink {
	return &CompositeSink{sinks: sinks}
}

func (c *CompositeSink) Notify(ctx context.Context, rec *domain.EmailRecord, cls *domain.Classification) error {
	var errs []error
	for _, sink := range c.sinks {
		if err := sink.Notify(ctx, rec, cls); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *CompositeSink) SendDigest(ctx context.Context, stats domain.PassStats, items []usecase.DigestItem) error {
	var errs []error
	for _, sink := range c.sinks {
		if err := sink.SendDigest(ctx, stats, items); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
