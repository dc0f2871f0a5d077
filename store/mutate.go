package store

import (
	"context"
	"slices"

	"github.com/etnz/retirement"
)

// pushMembers writes the whole local members collection to the service.
// It reports whether the service accepted it. Offline stores accept silently.
func (s *Store) pushMembers(ctx context.Context) bool {
	if s.remote == nil {
		return true
	}
	err := s.remote.UpdateFamilyInfo(ctx, s.userID, s.Members())
	return s.synced(ctx, members, err)
}

// pushFunds writes the whole local funds collection to the service.
func (s *Store) pushFunds(ctx context.Context) bool {
	if s.remote == nil {
		return true
	}
	err := s.remote.UpdateRetirementData(ctx, s.userID, s.Funds())
	return s.synced(ctx, funds, err)
}

// synced records the outcome of a push of c. A failure is logged, never returned.
func (s *Store) synced(ctx context.Context, c collection, err error) bool {
	if err != nil {
		s.logger.Printf("backend sync of %v failed, continuing offline: %v", c, err)
	}
	s.mu.Lock()
	flip := s.unsynced[c] != (err != nil)
	s.unsynced[c] = err != nil
	s.mu.Unlock()
	if flip {
		s.save(ctx)
	}
	return err == nil
}

// AddMember appends m to the members. An empty id is replaced by a fresh one.
// It returns the stored member and false if m is invalid.
func (s *Store) AddMember(ctx context.Context, m retirement.FamilyMember) (retirement.FamilyMember, bool) {
	const op = "add member"
	s.begin()
	defer s.end(nil)
	if m.ID == "" {
		m.ID = s.newID()
	}
	if err := m.Validate(); err != nil {
		s.fail(validation(op, err))
		return m, false
	}

	s.mu.Lock()
	if _, exists := retirement.MemberByID(s.members, m.ID); exists {
		s.mu.Unlock()
		s.fail(retirement.NewError(retirement.KindValidation, op, "id "+m.ID+" is already used", nil))
		return m, false
	}
	s.members = append(slices.Clone(s.members), m)
	s.changed()
	s.mu.Unlock()

	s.pushMembers(ctx)
	s.commit(ctx)
	return m, true
}

// UpdateMember merges patch into the member id. Fields not set in patch are preserved.
// It returns false if the member does not exist or patch is invalid.
func (s *Store) UpdateMember(ctx context.Context, id string, patch retirement.MemberPatch) bool {
	const op = "update member"
	s.begin()
	defer s.end(nil)
	if err := patch.Validate(); err != nil {
		s.fail(validation(op, err))
		return false
	}

	s.mu.Lock()
	i := slices.IndexFunc(s.members, func(m retirement.FamilyMember) bool { return m.ID == id })
	if i < 0 {
		s.mu.Unlock()
		s.fail(notFound(op, "member", id))
		return false
	}
	s.members = slices.Clone(s.members)
	s.members[i] = patch.Apply(s.members[i])
	s.changed()
	s.mu.Unlock()

	if s.pushMembers(ctx) {
		// the owner's ages drive the projections.
		s.record(s.refreshFunds(ctx))
	}
	s.commit(ctx)
	return true
}

// DeleteMember removes the member id. Funds it owns are kept and become unowned.
func (s *Store) DeleteMember(ctx context.Context, id string) bool {
	const op = "delete member"
	s.begin()
	defer s.end(nil)

	s.mu.Lock()
	n := len(s.members)
	s.members = slices.DeleteFunc(slices.Clone(s.members), func(m retirement.FamilyMember) bool { return m.ID == id })
	if len(s.members) == n {
		s.mu.Unlock()
		s.fail(notFound(op, "member", id))
		return false
	}
	s.changed()
	s.mu.Unlock()

	s.pushMembers(ctx)
	s.commit(ctx)
	return true
}

// AddFund appends f to the funds and refreshes the projections.
// An empty id is replaced by a fresh one. It returns the stored fund and false if f is invalid.
func (s *Store) AddFund(ctx context.Context, f retirement.RetirementFund) (retirement.RetirementFund, bool) {
	const op = "add fund"
	s.begin()
	defer s.end(nil)
	if f.ID == "" {
		f.ID = s.newID()
	}
	f.RetirementProjection = nil
	if err := f.Validate(); err != nil {
		s.fail(validation(op, err))
		return f, false
	}

	s.mu.Lock()
	if _, exists := retirement.FundByID(s.funds, f.ID); exists {
		s.mu.Unlock()
		s.fail(retirement.NewError(retirement.KindValidation, op, "id "+f.ID+" is already used", nil))
		return f, false
	}
	s.funds = append(slices.Clone(s.funds), f)
	s.changed()
	s.mu.Unlock()

	s.afterFundsChange(ctx)
	return f, true
}

// UpdateFund merges patch into the fund id and refreshes the projections.
// It returns false if the fund does not exist or patch is invalid.
func (s *Store) UpdateFund(ctx context.Context, id string, patch retirement.FundPatch) bool {
	const op = "update fund"
	s.begin()
	defer s.end(nil)
	if err := patch.Validate(); err != nil {
		s.fail(validation(op, err))
		return false
	}

	s.mu.Lock()
	i := slices.IndexFunc(s.funds, func(f retirement.RetirementFund) bool { return f.ID == id })
	if i < 0 {
		s.mu.Unlock()
		s.fail(notFound(op, "fund", id))
		return false
	}
	s.funds = slices.Clone(s.funds)
	s.funds[i] = patch.Apply(s.funds[i])
	s.changed()
	s.mu.Unlock()

	s.afterFundsChange(ctx)
	return true
}

// DeleteFund removes the fund id.
func (s *Store) DeleteFund(ctx context.Context, id string) bool {
	const op = "delete fund"
	s.begin()
	defer s.end(nil)

	s.mu.Lock()
	n := len(s.funds)
	s.funds = slices.DeleteFunc(slices.Clone(s.funds), func(f retirement.RetirementFund) bool { return f.ID == id })
	if len(s.funds) == n {
		s.mu.Unlock()
		s.fail(notFound(op, "fund", id))
		return false
	}
	s.changed()
	s.mu.Unlock()

	s.afterFundsChange(ctx)
	return true
}

// UpdateActualOverride records the actual figures of fundID for year, replacing
// any previous override of that year, then refreshes the projections.
// With all figures nil the override of that year is removed instead.
// Nil figures count as zero otherwise.
func (s *Store) UpdateActualOverride(ctx context.Context, fundID string, year int, balance, contributions, growth *float64) bool {
	const op = "update actual override"
	s.begin()
	defer s.end(nil)

	remove := balance == nil && contributions == nil && growth == nil
	o := retirement.ActualOverride{
		Year:                retirement.Int(year),
		ActualBalance:       retirement.Number(deref(balance)),
		ActualContributions: retirement.Number(deref(contributions)),
		ActualGrowth:        retirement.Number(deref(growth)),
	}
	if !remove {
		if err := o.Validate(); err != nil {
			s.fail(validation(op, err))
			return false
		}
	}

	s.mu.Lock()
	i := slices.IndexFunc(s.funds, func(f retirement.RetirementFund) bool { return f.ID == fundID })
	if i < 0 {
		s.mu.Unlock()
		s.fail(notFound(op, "fund", fundID))
		return false
	}
	s.funds = slices.Clone(s.funds)
	if remove {
		s.funds[i] = s.funds[i].WithoutOverride(year)
	} else {
		s.funds[i] = s.funds[i].WithOverride(o)
	}
	data := s.funds[i].ActualData
	s.changed()
	s.mu.Unlock()

	if s.remote != nil {
		// a fund scoped write cannot bring the whole collection back in sync,
		// only its failure changes the sync state.
		if err := s.remote.UpdateFundActuals(ctx, s.userID, fundID, data); err != nil {
			s.synced(ctx, funds, err)
		} else {
			s.record(s.refreshFunds(ctx))
		}
	}
	s.commit(ctx)
	return true
}

// afterFundsChange pushes the funds and, once accepted, fetches the new projections.
func (s *Store) afterFundsChange(ctx context.Context) {
	if s.pushFunds(ctx) {
		s.record(s.refreshFunds(ctx))
	}
	s.commit(ctx)
}

// Sync pushes again the collections the service has not accepted yet.
// It reports whether everything is now in sync.
func (s *Store) Sync(ctx context.Context) bool {
	s.begin()
	defer s.end(nil)
	m, f := s.Unsynced()
	ok := true
	if m {
		ok = s.pushMembers(ctx) && ok
	}
	if f {
		if s.pushFunds(ctx) {
			s.record(s.refreshFunds(ctx))
		} else {
			ok = false
		}
	}
	if !ok {
		s.fail(retirement.NewError(retirement.KindConnectivity, "sync", "some changes could not be sent to the backend", nil))
	}
	return ok
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
