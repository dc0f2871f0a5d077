// Package store is the household Entity Collection Store.
//
// A Store owns the ordered collections of family members and retirement funds
// of one household. Mutations are applied locally first and then pushed to the
// retirement service on a best effort basis: a failed push is logged, the
// collection is marked unsynced, and the local state stays authoritative for
// the session. Remote errors never escape the Store, they are recorded and
// exposed through Err and ErrorMessage.
//
// Store methods are safe for concurrent use. Network calls are made without
// holding the lock, so two concurrent mutations race on the remote write like
// in any optimistic client: the last local write wins locally.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"

	"github.com/etnz/retirement"
	"github.com/etnz/retirement/date"
	"github.com/etnz/retirement/remote"
	"github.com/etnz/retirement/snapshot"
)

// Remote is the retirement service as seen by the Store. *remote.Client implements it.
type Remote interface {
	GetFamilyInfo(ctx context.Context, userID string) ([]retirement.FamilyMember, error)
	UpdateFamilyInfo(ctx context.Context, userID string, members []retirement.FamilyMember) error
	GetRetirementData(ctx context.Context, userID string) (remote.RetirementData, error)
	UpdateRetirementData(ctx context.Context, userID string, funds []retirement.RetirementFund) error
	UpdateFundActuals(ctx context.Context, userID, fundID string, data []retirement.ActualOverride) error
}

// Snapshots saves and restores the last known good household. *snapshot.Store implements it.
type Snapshots interface {
	Load(ctx context.Context, userID string) (snapshot.Household, bool, error)
	Save(ctx context.Context, userID string, h snapshot.Household) error
}

var _ Remote = (*remote.Client)(nil)
var _ Snapshots = (*snapshot.Store)(nil)

// collection identifies one of the two collections.
type collection int

const (
	members collection = iota
	funds
	collections
)

func (c collection) String() string {
	if c == members {
		return "family members"
	}
	return "retirement funds"
}

// Store is the household store. Create it with New or Open and release it with Close.
type Store struct {
	remote    Remote // nil when offline
	userID    string
	snapshots Snapshots
	logger    *log.Logger
	today     func() date.Date
	newID     func() string
	closers   []io.Closer

	mu        sync.Mutex
	members   []retirement.FamilyMember
	funds     []retirement.RetirementFund
	loading   int
	err       error
	fetching  [collections]chan struct{} // closed when the fetch in flight ends
	loaded    [collections]bool
	unsynced  [collections]bool
	version   uint64
	household retirement.HouseholdProjection
	computed  uint64 // version household was computed for, 0 for never
	listeners []func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for failures that are recorded but not returned.
func WithLogger(l *log.Logger) Option { return func(s *Store) { s.logger = l } }

// WithSnapshots saves every local change to snapshots.
func WithSnapshots(snap Snapshots) Option { return func(s *Store) { s.snapshots = snap } }

// WithClock sets the function returning today, used for defaults.
func WithClock(today func() date.Date) Option { return func(s *Store) { s.today = today } }

// WithIDs sets the generator of new entity ids.
func WithIDs(newID func() string) Option { return func(s *Store) { s.newID = newID } }

// withCloser registers a resource to release on Close.
func withCloser(c io.Closer) Option { return func(s *Store) { s.closers = append(s.closers, c) } }

// New returns an empty Store of the household userID. A nil remote makes it offline.
func New(r Remote, userID string, opts ...Option) *Store {
	s := &Store{
		remote: r,
		userID: userID,
		logger: log.Default(),
		today:  date.Today,
		newID:  retirement.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the resources acquired by Open.
func (s *Store) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// UserID returns the household identity.
func (s *Store) UserID() string { return s.userID }

// Today returns the store's current day.
func (s *Store) Today() date.Date { return s.today() }

// Offline reports whether the store has no remote service.
func (s *Store) Offline() bool { return s.remote == nil }

// Restore seeds the local state from the saved snapshot of the household, if any.
// It returns whether a snapshot was found.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.snapshots == nil {
		return false, nil
	}
	h, ok, err := s.snapshots.Load(ctx, s.userID)
	if err != nil || !ok {
		return false, err
	}
	s.mu.Lock()
	s.members, s.funds = h.Members, h.Funds
	s.unsynced[members], s.unsynced[funds] = h.MembersUnsynced, h.FundsUnsynced
	s.loaded[members], s.loaded[funds] = true, true
	s.version++
	s.mu.Unlock()
	s.notify()
	return true, nil
}

// Members returns a copy of the family members, in order.
func (s *Store) Members() []retirement.FamilyMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.members)
}

// Funds returns a copy of the retirement funds, in order.
func (s *Store) Funds() []retirement.RetirementFund {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.funds)
}

// Member returns the member with the given id.
func (s *Store) Member(id string) (retirement.FamilyMember, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return retirement.MemberByID(s.members, id)
}

// Fund returns the fund with the given id.
func (s *Store) Fund(id string) (retirement.RetirementFund, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return retirement.FundByID(s.funds, id)
}

// Loading reports whether an operation is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// Err returns the error recorded by the last operation, nil if it succeeded.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// ErrorMessage returns Err as a display string, "" when there is no error.
func (s *Store) ErrorMessage() string {
	err := s.Err()
	if err == nil {
		return ""
	}
	var e *retirement.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// Unsynced reports whether local members or funds have changes the service has not accepted.
func (s *Store) Unsynced() (m, f bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsynced[members], s.unsynced[funds]
}

// Household returns the aggregate projection of the current funds.
// It is recomputed only after a change.
func (s *Store) Household() retirement.HouseholdProjection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.computed != s.version || s.computed == 0 {
		s.household = retirement.Aggregate(s.funds, s.members)
		s.computed = s.version
	}
	return s.household
}

// OnChange registers fn to be called after each local state change.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// begin brackets an operation: it raises the loading flag and clears the error.
func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading++
	s.err = nil
}

// end closes an operation started with begin, recording err if not nil.
func (s *Store) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if err != nil {
		s.err = err
	}
}

// fail records err as the operation error.
func (s *Store) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// record records err as the operation error, unless nil.
func (s *Store) record(err error) {
	if err != nil {
		s.fail(err)
	}
}

// changed must be called with the lock held after each change of the collections.
func (s *Store) changed() {
	s.version++
	if s.version == 0 {
		s.version++
	}
}

// commit saves the snapshot and notifies listeners after a change.
func (s *Store) commit(ctx context.Context) {
	s.save(ctx)
	s.notify()
}

func (s *Store) notify() {
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// save writes the current state to the snapshots, failures are only logged.
func (s *Store) save(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	s.mu.Lock()
	h := snapshot.Household{
		Members:         slices.Clone(s.members),
		Funds:           slices.Clone(s.funds),
		MembersUnsynced: s.unsynced[members],
		FundsUnsynced:   s.unsynced[funds],
	}
	s.mu.Unlock()
	if err := s.snapshots.Save(ctx, s.userID, h); err != nil {
		s.logger.Printf("snapshot save failed (ignored): %v", err)
	}
}

// validation returns err as a KindValidation *retirement.Error for op.
func validation(op string, err error) error {
	var e *retirement.Error
	if errors.As(err, &e) {
		return retirement.NewError(retirement.KindValidation, op, e.Message, nil)
	}
	return retirement.NewError(retirement.KindValidation, op, err.Error(), nil)
}

func notFound(op, what, id string) error {
	return retirement.NewError(retirement.KindNotFound, op, fmt.Sprintf("no %s with id %q", what, id), nil)
}
