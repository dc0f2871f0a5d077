package store

import (
	"context"
	"errors"

	"github.com/etnz/retirement"
	"github.com/etnz/retirement/remote"
)

// acquire marks c as being fetched. It returns false if a fetch of c is already in flight.
func (s *Store) acquire(c collection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetching[c] != nil {
		return false
	}
	s.fetching[c] = make(chan struct{})
	return true
}

func (s *Store) release(c collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.fetching[c])
	s.fetching[c] = nil
}

// await blocks until the fetch of c in flight, if any, ends.
func (s *Store) await(ctx context.Context, c collection) error {
	s.mu.Lock()
	done := s.fetching[c]
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// known returns whether c was loaded and holds entities, in which case a 404
// means the service lost them or never got them, not that the household is new.
func (s *Store) known(c collection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded[c] {
		return false
	}
	if c == members {
		return len(s.members) > 0
	}
	return len(s.funds) > 0
}

// Fetch loads the members then the funds of the household.
func (s *Store) Fetch(ctx context.Context) {
	s.FetchMembers(ctx)
	s.FetchFunds(ctx)
}

// FetchMembers replaces the local members with the service ones.
//
// A household without data gets a default member, saved to the service.
// Members already loaded, from a snapshot for instance, are saved instead.
// On failure the local members are left untouched and the error is recorded.
// A call while another FetchMembers is in flight does nothing.
func (s *Store) FetchMembers(ctx context.Context) {
	if !s.acquire(members) {
		return
	}
	defer s.release(members)
	s.begin()
	s.end(s.loadMembers(ctx))
}

// FetchFunds replaces the local funds, with their projections, by the service ones.
// The members sent along are applied too.
//
// A household without funds gets a default fund owned by the first member,
// saved to the service, then fetched back to get its projection. Funds
// already loaded are saved and fetched back instead.
// On failure the local funds are left untouched and the error is recorded.
// A call while another FetchFunds is in flight does nothing.
func (s *Store) FetchFunds(ctx context.Context) {
	if !s.acquire(funds) {
		return
	}
	defer s.release(funds)
	s.begin()
	s.end(s.loadFunds(ctx))
}

// loadMembers must be called while holding the members fetch guard.
func (s *Store) loadMembers(ctx context.Context) error {
	if s.remote == nil {
		s.bootstrapOffline(ctx, members)
		return nil
	}
	got, err := s.remote.GetFamilyInfo(ctx, s.userID)
	switch {
	case errors.Is(err, retirement.ErrNotFound) && s.known(members):
		s.logger.Printf("no %v stored for %q, saving the local ones", members, s.userID)
		s.pushMembers(ctx)
		return nil
	case errors.Is(err, retirement.ErrNotFound):
		s.bootstrapMembers(ctx)
		return nil
	case err != nil:
		s.logger.Printf("fetching %v failed, keeping local state: %v", members, err)
		return err
	}
	s.apply(ctx, got, nil)
	return nil
}

// loadFunds must be called while holding the funds fetch guard.
func (s *Store) loadFunds(ctx context.Context) error {
	if s.remote == nil {
		s.bootstrapOffline(ctx, funds)
		return nil
	}
	data, err := s.remote.GetRetirementData(ctx, s.userID)
	switch {
	case errors.Is(err, retirement.ErrNotFound) && s.known(funds):
		s.logger.Printf("no %v stored for %q, saving the local ones", funds, s.userID)
		return s.pushAndReadFunds(ctx)
	case errors.Is(err, retirement.ErrNotFound):
		return s.bootstrapFunds(ctx)
	case err != nil:
		s.logger.Printf("fetching %v failed, keeping local state: %v", funds, err)
		return err
	}
	s.applyData(ctx, data)
	return nil
}

// refreshFunds fetches the funds again after a change so that projections are up to date.
// It does nothing if a fetch is already in flight, that one brings the projections.
func (s *Store) refreshFunds(ctx context.Context) error {
	if s.remote == nil || !s.acquire(funds) {
		return nil
	}
	defer s.release(funds)
	data, err := s.remote.GetRetirementData(ctx, s.userID)
	if errors.Is(err, retirement.ErrNotFound) {
		// the write was accepted but nothing to read back yet.
		return nil
	}
	if err != nil {
		s.logger.Printf("refreshing projections failed: %v", err)
		return err
	}
	s.applyData(ctx, data)
	return nil
}

func (s *Store) applyData(ctx context.Context, data remote.RetirementData) {
	if data.Members == nil {
		s.apply(ctx, nil, data.Funds)
		return
	}
	s.apply(ctx, data.Members, data.Funds)
}

// apply replaces the collections given not nil, unless the local one has unsynced changes.
func (s *Store) apply(ctx context.Context, m []retirement.FamilyMember, f []retirement.RetirementFund) {
	s.mu.Lock()
	if m != nil {
		if s.unsynced[members] {
			s.logger.Printf("keeping local %v, they have changes not yet accepted by the service", members)
		} else {
			s.members = m
		}
		s.loaded[members] = true
	}
	if f != nil {
		if s.unsynced[funds] {
			s.logger.Printf("keeping local %v, they have changes not yet accepted by the service", funds)
		} else {
			s.funds = f
		}
		s.loaded[funds] = true
	}
	s.changed()
	s.mu.Unlock()
	s.commit(ctx)
}

// bootstrapOffline creates the default entity of c the first time a never loaded, empty collection is fetched.
func (s *Store) bootstrapOffline(ctx context.Context, c collection) {
	s.mu.Lock()
	if s.loaded[c] {
		s.mu.Unlock()
		return
	}
	s.loaded[c] = true
	switch c {
	case members:
		if len(s.members) == 0 {
			s.members = []retirement.FamilyMember{retirement.DefaultMember(s.newID(), s.today())}
		}
	case funds:
		if len(s.funds) == 0 {
			s.funds = []retirement.RetirementFund{retirement.DefaultFund(s.newID(), s.firstMemberID(), s.today())}
		}
	}
	s.changed()
	s.mu.Unlock()
	s.commit(ctx)
}

// firstMemberID must be called with the lock held.
func (s *Store) firstMemberID() string {
	if len(s.members) == 0 {
		return ""
	}
	return s.members[0].ID
}

// bootstrapMembers creates and saves the default member of a new household.
func (s *Store) bootstrapMembers(ctx context.Context) retirement.FamilyMember {
	m := retirement.DefaultMember(s.newID(), s.today())
	s.logger.Printf("no %v stored for %q, creating %q", members, s.userID, m.ID)
	s.mu.Lock()
	s.members = []retirement.FamilyMember{m}
	s.loaded[members] = true
	s.changed()
	s.mu.Unlock()
	s.pushMembers(ctx)
	s.commit(ctx)
	return m
}

// bootstrapFunds creates and saves the default fund of a new household, then reads it back.
func (s *Store) bootstrapFunds(ctx context.Context) error {
	s.mu.Lock()
	owner := s.firstMemberID()
	s.mu.Unlock()
	if owner == "" {
		// The fund must be owned: load (or create) the members first, or wait
		// for the members fetch already doing it.
		if s.acquire(members) {
			err := s.loadMembers(ctx)
			s.release(members)
			if err != nil {
				return err
			}
		} else if err := s.await(ctx, members); err != nil {
			return err
		}
		s.mu.Lock()
		owner = s.firstMemberID()
		s.mu.Unlock()
	}

	f := retirement.DefaultFund(s.newID(), owner, s.today())
	s.logger.Printf("no %v stored for %q, creating %q", funds, s.userID, f.ID)
	s.mu.Lock()
	s.funds = []retirement.RetirementFund{f}
	s.loaded[funds] = true
	s.changed()
	s.mu.Unlock()
	s.commit(ctx)
	return s.pushAndReadFunds(ctx)
}

// pushAndReadFunds saves the local funds, then reads them back once to get their projections.
func (s *Store) pushAndReadFunds(ctx context.Context) error {
	if !s.pushFunds(ctx) {
		return nil
	}
	data, err := s.remote.GetRetirementData(ctx, s.userID)
	if errors.Is(err, retirement.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Printf("fetching the projections failed: %v", err)
		return err
	}
	s.applyData(ctx, data)
	return nil
}
