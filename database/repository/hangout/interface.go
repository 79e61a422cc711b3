package hangoutRepo

import (
	"context"
	"errors"
	"time"

	"proxo/models"
)

// ErrNotFound is returned when no request has the given id.
var ErrNotFound = errors.New("hangout request not found")

// SortKey is a single ordering key. Desc orders largest first.
type SortKey struct {
	Field string
	Desc  bool
}

const (
	FieldExpiresAt = "expiresAt"
	FieldCreatedAt = "createdAt"
	FieldCreatedBy = "createdBy"
)

// DefaultOrder sorts by expiry, newest first, with creation time breaking ties.
var DefaultOrder = []SortKey{
	{Field: FieldExpiresAt, Desc: true},
	{Field: FieldCreatedAt, Desc: true},
}

// Query restricts and orders a read of the hangoutRequests collection.
// Zero-valued fields are not applied.
type Query struct {
	Status           models.RequestStatus
	CreatedBy        string
	ExcludeCreatedBy string
	ExpiresAfter     time.Time
	Order            []SortKey
}

// Matches evaluates the query predicate against a single record.
func (q Query) Matches(r models.HangoutRequest) bool {
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.CreatedBy != "" && r.CreatedBy != q.CreatedBy {
		return false
	}
	if q.ExcludeCreatedBy != "" && r.CreatedBy == q.ExcludeCreatedBy {
		return false
	}
	if !q.ExpiresAfter.IsZero() && (r.ExpiresAt == nil || !r.ExpiresAt.After(q.ExpiresAfter)) {
		return false
	}
	return true
}

// ChangeFeed yields one notification per committed write to the collection.
// *mongo.ChangeStream satisfies it.
type ChangeFeed interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// HangoutRepository defines methods for hangout request data access.
type HangoutRepository interface {
	// Create assigns ID, inserts the record and returns it as stored.
	Create(ctx context.Context, req *models.HangoutRequest) error
	// GetByID retrieves a request by id, returning ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*models.HangoutRequest, error)
	// UpdateStatus sets status to `to` only when the stored status equals `from`.
	// It reports whether a record was modified.
	UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus) (bool, error)
	// Find returns every record matching q in q.Order.
	Find(ctx context.Context, q Query) ([]models.HangoutRequest, error)
	// Watch opens a change notification feed over the collection.
	Watch(ctx context.Context) (ChangeFeed, error)
}
