package report

import "context"

// Store is the persistence interface for reports.
type Store interface {
	Get(ctx context.Context, id string) (*Report, bool, error)
	Put(ctx context.Context, r *Report) error

	// ListBySession returns up to limit reports for a session, newest first.
	// A limit <= 0 means no limit.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]*Report, error)
}
