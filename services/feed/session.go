package feed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"proxo/models"
	"proxo/services/geo"
	"proxo/services/hangout"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionClosed is returned by actions sent to a session that has stopped.
var ErrSessionClosed = errors.New("feed session closed")

// Canceller issues cancel commands on behalf of the viewer.
type Canceller interface {
	Cancel(ctx context.Context, id, actor string) error
}

// Options configures a Session.
type Options struct {
	// Viewer is the username whose feed is being built.
	Viewer          string
	PositionOptions models.PositionOptions
	// RefreshInterval re-renders time remaining and re-queries expiry. Zero disables it.
	RefreshInterval time.Duration
	Now             func() time.Time
	Logger          *zap.Logger
}

type actionKind int

const (
	actionAcquire actionKind = iota
	actionResolve
	actionClear
	actionRender
)

type action struct {
	kind       actionKind
	positioner geo.Positioner
	coords     models.Coordinates
	accuracy   float64
}

type locationResult struct {
	seq uint64
	fix models.UserLocationFix
	err error
}

// Session drives one viewer's live feed. All state below the channels is
// owned by the Run goroutine.
type Session struct {
	ID string

	store     *hangout.Store
	resolver  *geo.Resolver
	canceller Canceller
	opts      Options

	actions  chan action
	results  chan locationResult
	views    chan models.FeedView
	started  chan struct{}
	done     chan struct{}
	runOnce  sync.Once
	stopOnce sync.Once
	stop     context.CancelFunc

	own             *hangout.Subscription
	nearby          *hangout.Subscription
	ownReqs         []models.HangoutRequest
	nearbyReqs      []models.HangoutRequest
	ownAvailable    bool
	nearbyAvailable bool
	fix             *models.UserLocationFix
	status          models.LocationStatus
	acquireSeq      uint64
	revision        uint64
}

// NewSession creates a session for opts.Viewer. Call Run to start it.
func NewSession(store *hangout.Store, resolver *geo.Resolver, canceller Canceller, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	id := uuid.New().String()
	opts.Logger = opts.Logger.With(zap.String("session", id), zap.String("viewer", opts.Viewer))
	return &Session{
		ID:        id,
		store:     store,
		resolver:  resolver,
		canceller: canceller,
		opts:      opts,
		actions:   make(chan action),
		results:   make(chan locationResult),
		views:     make(chan models.FeedView, 1),
		started:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Views delivers complete feed views. Only the latest undelivered view is
// kept. The channel is closed when the session stops.
func (s *Session) Views() <-chan models.FeedView {
	return s.views
}

// Done is closed when Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Run processes events until ctx is done or Close is called.
func (s *Session) Run(ctx context.Context) {
	ran := false
	s.runOnce.Do(func() { ran = true })
	if !ran {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	close(s.started)

	defer func() {
		cancel()
		s.closeSubscriptions()
		close(s.views)
		close(s.done)
		s.opts.Logger.Debug("feed: session stopped")
	}()

	s.opts.Logger.Debug("feed: session started")
	s.own = s.store.Subscribe(ctx, hangout.Own(s.opts.Viewer))
	s.publish()

	var tick <-chan time.Time
	if s.opts.RefreshInterval > 0 {
		ticker := time.NewTicker(s.opts.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case snap, ok := <-subChan(s.own):
			s.ownReqs, s.ownAvailable = s.applySnapshot("own", &s.own, snap, ok)

		case snap, ok := <-subChan(s.nearby):
			s.nearbyReqs, s.nearbyAvailable = s.applySnapshot("nearby", &s.nearby, snap, ok)

		case res := <-s.results:
			if res.seq != s.acquireSeq {
				// Superseded by a later acquire or a clear.
				continue
			}
			s.applyLocation(ctx, res)

		case a := <-s.actions:
			s.handle(ctx, a)

		case <-tick:
			if s.own != nil {
				s.own.Refresh()
			}
			if s.nearby != nil {
				s.nearby.Refresh()
			}
		}
		s.publish()
	}
}

// subChan returns nil for a missing subscription so its select case never fires.
func subChan(sub *hangout.Subscription) <-chan hangout.Snapshot {
	if sub == nil {
		return nil
	}
	return sub.C()
}

func (s *Session) applySnapshot(name string, sub **hangout.Subscription, snap hangout.Snapshot, ok bool) ([]models.HangoutRequest, bool) {
	if !ok {
		*sub = nil
		return nil, false
	}
	if snap.Err != nil {
		s.opts.Logger.Warn("feed: subscription unavailable", zap.String("view", name), zap.Error(snap.Err))
		return nil, false
	}
	return snap.Requests, true
}

func (s *Session) handle(ctx context.Context, a action) {
	switch a.kind {
	case actionAcquire:
		s.acquireSeq++
		seq := s.acquireSeq
		s.status = models.LocationStatus{Acquiring: true, Message: "Getting your location..."}
		go s.deliver(ctx, seq, func(ctx context.Context) (models.UserLocationFix, error) {
			return s.resolver.Acquire(ctx, a.positioner, s.opts.PositionOptions)
		})

	case actionResolve:
		s.acquireSeq++
		seq := s.acquireSeq
		s.status = models.LocationStatus{Acquiring: true, Message: "Looking up that location..."}
		go s.deliver(ctx, seq, func(ctx context.Context) (models.UserLocationFix, error) {
			return s.resolver.Resolve(ctx, a.coords, a.accuracy), nil
		})

	case actionClear:
		s.acquireSeq++
		s.fix = nil
		s.status = models.LocationStatus{}
		if s.nearby != nil {
			s.nearby.Unsubscribe()
			s.nearby = nil
		}
		s.nearbyReqs = nil
		s.nearbyAvailable = false

	case actionRender:
	}
}

func (s *Session) deliver(ctx context.Context, seq uint64, fn func(context.Context) (models.UserLocationFix, error)) {
	fix, err := fn(ctx)
	select {
	case s.results <- locationResult{seq: seq, fix: fix, err: err}:
	case <-ctx.Done():
	}
}

func (s *Session) applyLocation(ctx context.Context, res locationResult) {
	if res.err != nil {
		status := models.LocationStatus{Message: "Location access failed. Please try again."}
		if pe, ok := geo.AsPositioningError(res.err); ok {
			status.ErrorKind = string(pe.Kind)
			status.Message = pe.Message()
		}
		s.status = status
		s.opts.Logger.Info("feed: location acquisition failed", zap.Error(res.err))
		return
	}

	fix := res.fix
	s.fix = &fix
	s.status = models.LocationStatus{Message: accuracyMessage(fix)}
	if s.nearby == nil {
		s.nearby = s.store.Subscribe(ctx, hangout.Others(s.opts.Viewer))
	}
}

func accuracyMessage(fix models.UserLocationFix) string {
	if fix.AccuracyMeters <= 0 {
		return "Location detected"
	}
	return fmt.Sprintf("Location detected (±%dm accuracy)", int(math.Round(fix.AccuracyMeters)))
}

func (s *Session) publish() {
	s.revision++
	view := Assemble(Input{
		Own:             s.ownReqs,
		Nearby:          s.nearbyReqs,
		Fix:             s.fix,
		Now:             s.opts.Now(),
		OwnAvailable:    s.ownAvailable,
		NearbyAvailable: s.nearbyAvailable,
		Status:          s.status,
	})
	view.Revision = s.revision

	// Latest wins: replace any view the consumer has not picked up yet.
	select {
	case <-s.views:
	default:
	}
	s.views <- view
}

func (s *Session) closeSubscriptions() {
	if s.own != nil {
		s.own.Unsubscribe()
		s.own = nil
	}
	if s.nearby != nil {
		s.nearby.Unsubscribe()
		s.nearby = nil
	}
}

func (s *Session) send(a action) error {
	select {
	case s.actions <- a:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// AcquireLocation asks p for the viewer's position. The outcome shows up in a
// later view as a fix or a classified location status.
func (s *Session) AcquireLocation(p geo.Positioner) error {
	return s.send(action{kind: actionAcquire, positioner: p})
}

// SetLocation uses coords as the viewer's position, e.g. a chosen place.
func (s *Session) SetLocation(coords models.Coordinates, accuracyMeters float64) error {
	if !coords.Valid() {
		return fmt.Errorf("set location: invalid coordinates %v", coords)
	}
	return s.send(action{kind: actionResolve, coords: coords, accuracy: accuracyMeters})
}

// ClearLocation drops the fix and stops following nearby requests until a new one.
func (s *Session) ClearLocation() error {
	return s.send(action{kind: actionClear})
}

// Render publishes a fresh view of the current state.
func (s *Session) Render() error {
	return s.send(action{kind: actionRender})
}

// Cancel cancels one of the viewer's requests. Views change only when the
// store reports the new status.
func (s *Session) Cancel(ctx context.Context, requestID string) error {
	if s.canceller == nil {
		return errors.New("cancel: no lifecycle controller configured")
	}
	return s.canceller.Cancel(ctx, requestID, s.opts.Viewer)
}

// Close stops the session and waits for Run to return. Safe to call more than once.
func (s *Session) Close() {
	s.stopOnce.Do(func() {
		neverRan := false
		s.runOnce.Do(func() { neverRan = true })
		if neverRan {
			close(s.views)
			close(s.done)
			return
		}
		<-s.started
		s.stop()
	})
	<-s.done
}
