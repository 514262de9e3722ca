// Package audit appends the activity trail recorded for every mutation
// of companies, users and transactions.
package audit

import (
	"context"
	"time"

	"github.com/myfin/backend/internal/domain/activity"
	"github.com/myfin/backend/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

// Writer appends activity entries. Recording is best-effort: a failed
// append is logged and never fails the operation that triggered it.
type Writer struct {
	store  docstore.Store
	logger *zap.Logger
	clock  func() time.Time
}

// NewWriter creates an activity writer
func NewWriter(store docstore.Store, logger *zap.Logger) *Writer {
	return &Writer{
		store:  store,
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock overrides the time source, for tests
func (w *Writer) WithClock(clock func() time.Time) *Writer {
	w.clock = clock
	return w
}

// Record appends one activity entry. Missing username and company fall
// back to the "System" and "Global" sentinels.
func (w *Writer) Record(ctx context.Context, action, details, username, companyID, companyName string) {
	entry := activity.New(action, details, username, companyID, companyName, w.clock())
	if _, err := w.store.Create(ctx, activity.Collection, entry); err != nil {
		w.logger.Warn("failed to record activity",
			zap.String("action", action),
			zap.String("details", details),
			zap.Error(err))
	}
}

// List returns the activity entries visible to the given tenant scope.
// An empty companyID returns the global trail.
func (w *Writer) List(ctx context.Context, companyID string) ([]activity.Activity, error) {
	filter := map[string]any{}
	if companyID != "" {
		filter["company_id"] = companyID
	}
	var entries []activity.Activity
	if err := w.store.Find(ctx, activity.Collection, filter, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
