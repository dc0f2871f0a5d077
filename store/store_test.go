package store

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/etnz/retirement"
	"github.com/etnz/retirement/date"
)

func TestFetchBootstrapsNewHousehold(t *testing.T) {
	r := newFake()
	s := newStore(t, r)

	s.Fetch(context.Background())

	if err := s.Err(); err != nil {
		t.Fatalf("Fetch() recorded error %v", err)
	}
	members := s.Members()
	if len(members) != 1 {
		t.Fatalf("Fetch() members = %v, want exactly one default member", members)
	}
	if members[0].ID == "" {
		t.Errorf("Fetch() default member has no id")
	}
	funds := s.Funds()
	if len(funds) != 1 {
		t.Fatalf("Fetch() funds = %v, want exactly one default fund", funds)
	}
	if funds[0].FamilyMemberID != members[0].ID {
		t.Errorf("Fetch() fund owner = %q, want %q", funds[0].FamilyMemberID, members[0].ID)
	}
	if len(funds[0].RetirementProjection) == 0 {
		t.Errorf("Fetch() default fund has no projection, want it fetched back")
	}

	// the defaults were saved remotely, exactly once each.
	if got := r.count("update_family_info"); got != 1 {
		t.Errorf("update_family_info calls = %d, want 1", got)
	}
	if got := r.count("update_retirement_data"); got != 1 {
		t.Errorf("update_retirement_data calls = %d, want 1", got)
	}
	if s.Loading() {
		t.Errorf("Loading() = true after Fetch()")
	}

	// a second fetch finds the stored data and does not bootstrap again.
	s.Fetch(context.Background())
	if got := len(s.Members()) + len(s.Funds()); got != 2 {
		t.Errorf("second Fetch() gives %d entities, want 2", got)
	}
}

func TestFetchFundsBootstrapsMemberFirst(t *testing.T) {
	r := newFake()
	s := newStore(t, r)

	s.FetchFunds(context.Background())

	members, funds := s.Members(), s.Funds()
	if len(members) != 1 || len(funds) != 1 {
		t.Fatalf("FetchFunds() = %d members, %d funds, want 1 and 1", len(members), len(funds))
	}
	if funds[0].FamilyMemberID != members[0].ID {
		t.Errorf("FetchFunds() fund owner = %q, want %q", funds[0].FamilyMemberID, members[0].ID)
	}
}

func TestFetchIsNotReentrant(t *testing.T) {
	r := newFake()
	r.block = make(chan struct{})
	r.entered = make(chan struct{}, 10)
	s := newStore(t, r)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.FetchMembers(context.Background())
	}()
	<-r.entered // the first fetch is in flight.

	if !s.Loading() {
		t.Errorf("Loading() = false while a fetch is in flight")
	}
	for range 3 {
		s.FetchMembers(context.Background())
	}
	close(r.block)
	wg.Wait()

	if got := r.count("get_family_info"); got != 1 {
		t.Errorf("get_family_info calls = %d, want 1", got)
	}
	if got := r.count("update_family_info"); got != 1 {
		t.Errorf("update_family_info calls = %d, want a single bootstrap write", got)
	}
	if got := len(s.Members()); got != 1 {
		t.Errorf("Members() = %d, want 1", got)
	}
}

func TestFetchFundsWaitsForMembersBootstrap(t *testing.T) {
	r := newFake()
	r.block = make(chan struct{})
	r.entered = make(chan struct{}, 1)
	r.blockOnly = "get_family_info"
	s := newStore(t, r)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.FetchMembers(context.Background())
	}()
	<-r.entered // the members fetch is in flight.
	go func() {
		defer wg.Done()
		s.FetchFunds(context.Background())
	}()
	// let the funds fetch reach its bootstrap before the members one completes.
	for r.count("get_retirement_data") == 0 {
		runtime.Gosched()
	}
	time.Sleep(20 * time.Millisecond)
	close(r.block)
	wg.Wait()

	members, funds := s.Members(), s.Funds()
	if len(members) != 1 || len(funds) != 1 {
		t.Fatalf("concurrent fetches = %d members, %d funds, want 1 and 1", len(members), len(funds))
	}
	if funds[0].FamilyMemberID != members[0].ID {
		t.Errorf("bootstrap fund owner = %q, want %q", funds[0].FamilyMemberID, members[0].ID)
	}
	if got := r.funds[0].FamilyMemberID; got != members[0].ID {
		t.Errorf("remote fund owner = %q, want %q", got, members[0].ID)
	}
	if got := r.count("get_family_info"); got != 1 {
		t.Errorf("get_family_info calls = %d, want 1", got)
	}
}

func TestFetchKeepsRestoredHousehold(t *testing.T) {
	snaps := &memorySnapshots{}
	offline := newStore(t, nil, WithSnapshots(snaps))
	offline.Fetch(context.Background())
	if _, ok := offline.AddMember(context.Background(), retirement.FamilyMember{Name: "Bob", DateOfBirth: date.New(1992, 3, 4), LifeExpectancy: 88, RetirementAge: 64}); !ok {
		t.Fatalf("AddMember() failed: %v", offline.Err())
	}
	members, funds := offline.Members(), offline.Funds()

	// the service has never heard of this household.
	r := newFake()
	s := newStore(t, r, WithSnapshots(snaps))
	if found, err := s.Restore(context.Background()); err != nil || !found {
		t.Fatalf("Restore() = %v, %v", found, err)
	}
	s.Fetch(context.Background())

	if err := s.Err(); err != nil {
		t.Fatalf("Fetch() recorded error %v", err)
	}
	if !reflect.DeepEqual(s.Members(), members) {
		t.Errorf("Members() = %v, want the restored %v", s.Members(), members)
	}
	if got := s.Funds(); len(got) != 1 || got[0].ID != funds[0].ID {
		t.Errorf("Funds() = %v, want the restored %v", got, funds)
	}
	if !reflect.DeepEqual(r.members, members) {
		t.Errorf("remote members = %v, want the restored ones pushed", r.members)
	}
	if len(r.funds) != 1 || r.funds[0].ID != funds[0].ID {
		t.Errorf("remote funds = %v, want the restored ones pushed", r.funds)
	}
	if h := snaps.saved["u"]; len(h.Members) != 2 {
		t.Errorf("snapshot members = %v, want both restored members kept", h.Members)
	}
}

func TestFetchFailureKeepsLocalState(t *testing.T) {
	r := newFake()
	s := newStore(t, r)
	s.Fetch(context.Background())
	before := s.Members()

	r.readErr = errDown
	s.FetchMembers(context.Background())

	if !errors.Is(s.Err(), retirement.ErrConnectivity) {
		t.Errorf("Err() = %v, want a connectivity error", s.Err())
	}
	if got := s.ErrorMessage(); got != "backend unreachable" {
		t.Errorf("ErrorMessage() = %q, want %q", got, "backend unreachable")
	}
	if !reflect.DeepEqual(s.Members(), before) {
		t.Errorf("Members() = %v, want %v unchanged", s.Members(), before)
	}

	// the next operation clears the error.
	r.readErr = nil
	s.FetchMembers(context.Background())
	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v after a successful fetch", err)
	}
}

func TestUpdateMemberMerges(t *testing.T) {
	r := newFake()
	s := newStore(t, r)
	s.Fetch(context.Background())
	added, ok := s.AddMember(context.Background(), retirement.FamilyMember{
		Name: "Bob", DateOfBirth: date.New(1980, 1, 1), LifeExpectancy: 85, RetirementAge: 62,
	})
	if !ok {
		t.Fatalf("AddMember() failed: %v", s.Err())
	}
	before := s.Members()

	if !s.UpdateMember(context.Background(), added.ID, retirement.MemberPatch{RetirementAge: retirement.Ptr(60)}) {
		t.Fatalf("UpdateMember() failed: %v", s.Err())
	}

	after := s.Members()
	if len(after) != len(before) {
		t.Fatalf("UpdateMember() changed the length: %d, want %d", len(after), len(before))
	}
	if !reflect.DeepEqual(after[0], before[0]) {
		t.Errorf("UpdateMember() changed another member: %v, want %v", after[0], before[0])
	}
	want := before[1]
	want.RetirementAge = 60
	if after[1] != want {
		t.Errorf("UpdateMember() = %v, want %v", after[1], want)
	}

	// the service got the whole collection.
	if !reflect.DeepEqual(r.members, after) {
		t.Errorf("remote members = %v, want %v", r.members, after)
	}
}

func TestUpdateRejectsInvalidPatch(t *testing.T) {
	s := newStore(t, newFake())
	s.Fetch(context.Background())
	id := s.Members()[0].ID
	before := s.Members()

	if s.UpdateMember(context.Background(), id, retirement.MemberPatch{LifeExpectancy: retirement.Ptr(200)}) {
		t.Errorf("UpdateMember(life expectancy 200) = true, want false")
	}
	if !errors.Is(s.Err(), retirement.ErrValidation) {
		t.Errorf("Err() = %v, want a validation error", s.Err())
	}
	if !reflect.DeepEqual(s.Members(), before) {
		t.Errorf("invalid patch was applied: %v", s.Members())
	}

	if s.UpdateMember(context.Background(), "nope", retirement.MemberPatch{Name: retirement.Ptr("x")}) {
		t.Errorf("UpdateMember(unknown id) = true, want false")
	}
	if !errors.Is(s.Err(), retirement.ErrNotFound) {
		t.Errorf("Err() = %v, want a not found error", s.Err())
	}
}

func TestWriteFailureIsNotRolledBack(t *testing.T) {
	r := newFake()
	s := newStore(t, r)
	s.Fetch(context.Background())
	fundID := s.Funds()[0].ID

	r.writeErr = errDown
	if !s.UpdateFund(context.Background(), fundID, retirement.FundPatch{Name: retirement.Ptr("Pension")}) {
		t.Fatalf("UpdateFund() = false, want true")
	}
	if err := s.Err(); err != nil {
		t.Errorf("Err() = %v, a failed sync must not surface", err)
	}
	if got := s.Funds()[0].Name; got != "Pension" {
		t.Errorf("Funds()[0].Name = %q, want %q", got, "Pension")
	}
	if _, f := s.Unsynced(); !f {
		t.Errorf("Unsynced() funds = false, want true")
	}

	// an unsynced collection is not clobbered by a fetch.
	s.FetchFunds(context.Background())
	if got := s.Funds()[0].Name; got != "Pension" {
		t.Errorf("after FetchFunds() name = %q, want the local %q", got, "Pension")
	}

	// Sync pushes it once the service is back.
	if s.Sync(context.Background()) {
		t.Errorf("Sync() = true while the service is down")
	}
	r.writeErr = nil
	if !s.Sync(context.Background()) {
		t.Fatalf("Sync() = false, want true: %v", s.Err())
	}
	if _, f := s.Unsynced(); f {
		t.Errorf("Unsynced() funds = true after Sync()")
	}
	if got := r.funds[0].Name; got != "Pension" {
		t.Errorf("remote fund name = %q, want %q", got, "Pension")
	}
}

func TestFundChangeRefreshesProjection(t *testing.T) {
	r := newFake()
	s := newStore(t, r)
	s.Fetch(context.Background())
	fundID := s.Funds()[0].ID

	if !s.UpdateFund(context.Background(), fundID, retirement.FundPatch{InitialInvestment: retirement.Ptr(5000.0)}) {
		t.Fatalf("UpdateFund() failed: %v", s.Err())
	}
	f, _ := s.Fund(fundID)
	if got := f.RetirementProjection[0].EndAmount; got != 5000 {
		t.Errorf("projection end amount = %v, want 5000", got)
	}
	if row, ok := s.Household().Row(2025); !ok || row.Total != 5000 {
		t.Errorf("Household().Row(2025) = %v, %v, want total 5000", row, ok)
	}
}

func TestAddAndDeleteFund(t *testing.T) {
	r := newFake()
	s := newStore(t, r)
	s.Fetch(context.Background())
	owner := s.Members()[0].ID

	f, ok := s.AddFund(context.Background(), retirement.DefaultFund("", owner, today))
	if !ok {
		t.Fatalf("AddFund() failed: %v", s.Err())
	}
	if f.ID == "" {
		t.Errorf("AddFund() did not assign an id")
	}
	if got := len(s.Funds()); got != 2 {
		t.Fatalf("Funds() = %d, want 2", got)
	}
	if keys := s.Household().Keys; !reflect.DeepEqual(keys, []string{"fund_0", "fund_1"}) {
		t.Errorf("Household().Keys = %v", keys)
	}

	if !s.DeleteFund(context.Background(), f.ID) {
		t.Fatalf("DeleteFund() failed: %v", s.Err())
	}
	if got := len(s.Funds()); got != 1 {
		t.Errorf("Funds() = %d, want 1", got)
	}
	if s.DeleteFund(context.Background(), f.ID) {
		t.Errorf("DeleteFund() twice = true, want false")
	}

	if _, ok := s.AddFund(context.Background(), retirement.RetirementFund{Name: "bad", ContributionFrequency: 3}); ok {
		t.Errorf("AddFund(invalid) = true, want false")
	}
}

func TestUpdateActualOverride(t *testing.T) {
	r := newFake()
	s := newStore(t, r)
	s.Fetch(context.Background())
	fundID := s.Funds()[0].ID

	if !s.UpdateActualOverride(context.Background(), fundID, 2024, retirement.Ptr(1500.0), retirement.Ptr(120.0), nil) {
		t.Fatalf("UpdateActualOverride() failed: %v", s.Err())
	}
	if !s.UpdateActualOverride(context.Background(), fundID, 2024, retirement.Ptr(1600.0), nil, nil) {
		t.Fatalf("UpdateActualOverride() failed: %v", s.Err())
	}
	f, _ := s.Fund(fundID)
	want := []retirement.ActualOverride{{Year: 2024, ActualBalance: 1600}}
	if !reflect.DeepEqual(f.ActualData, want) {
		t.Errorf("ActualData = %v, want %v", f.ActualData, want)
	}
	if !reflect.DeepEqual(r.actuals[fundID], want) {
		t.Errorf("remote actuals = %v, want %v", r.actuals[fundID], want)
	}
	// the projection was fetched again with the override.
	if got := f.RetirementProjection[0].EndAmount; got != 1000+1600 {
		t.Errorf("projection end amount = %v, want 2600", got)
	}

	// all nil clears the override.
	if !s.UpdateActualOverride(context.Background(), fundID, 2024, nil, nil, nil) {
		t.Fatalf("UpdateActualOverride(clear) failed: %v", s.Err())
	}
	f, _ = s.Fund(fundID)
	if len(f.ActualData) != 0 {
		t.Errorf("ActualData = %v, want none", f.ActualData)
	}

	if s.UpdateActualOverride(context.Background(), fundID, 1990, retirement.Ptr(1.0), nil, nil) {
		t.Errorf("UpdateActualOverride(1990) = true, want false")
	}
	if s.UpdateActualOverride(context.Background(), "nope", 2024, retirement.Ptr(1.0), nil, nil) {
		t.Errorf("UpdateActualOverride(unknown fund) = true, want false")
	}
}

func TestOffline(t *testing.T) {
	snaps := &memorySnapshots{}
	s := newStore(t, nil, WithSnapshots(snaps))

	s.Fetch(context.Background())
	if err := s.Err(); err != nil {
		t.Fatalf("Fetch() offline recorded %v", err)
	}
	members, funds := s.Members(), s.Funds()
	if len(members) != 1 || len(funds) != 1 || funds[0].FamilyMemberID != members[0].ID {
		t.Fatalf("offline Fetch() = %v %v, want linked defaults", members, funds)
	}

	if !s.DeleteFund(context.Background(), funds[0].ID) {
		t.Fatalf("DeleteFund() failed: %v", s.Err())
	}
	// A collection of zero stays valid: fetching again does not bootstrap.
	s.Fetch(context.Background())
	if got := len(s.Funds()); got != 0 {
		t.Errorf("Funds() = %d after fetch, want 0", got)
	}

	// A new store for the same household restores the saved state.
	restored := newStore(t, nil, WithSnapshots(snaps))
	found, err := restored.Restore(context.Background())
	if err != nil || !found {
		t.Fatalf("Restore() = %v, %v", found, err)
	}
	restored.Fetch(context.Background())
	if !reflect.DeepEqual(restored.Members(), members) || len(restored.Funds()) != 0 {
		t.Errorf("restored = %v %v, want %v and no funds", restored.Members(), restored.Funds(), members)
	}
}

func TestHouseholdIsMemoized(t *testing.T) {
	s := newStore(t, newFake())
	s.Fetch(context.Background())

	changes := 0
	s.OnChange(func() { changes++ })

	first := s.Household()
	if first.IsEmpty() {
		t.Fatalf("Household() is empty")
	}
	s.mu.Lock()
	computed := s.computed
	s.mu.Unlock()
	_ = s.Household()
	s.mu.Lock()
	if s.computed != computed {
		t.Errorf("Household() recomputed without change")
	}
	s.mu.Unlock()

	id := s.Members()[0].ID
	s.UpdateMember(context.Background(), id, retirement.MemberPatch{Name: retirement.Ptr("Alice")})
	if changes == 0 {
		t.Errorf("OnChange listener not called")
	}
	if got := s.Household().Legend["fund_0"]; got != "Retirement Savings (Alice)" {
		t.Errorf("Household().Legend[fund_0] = %q, want %q", got, "Retirement Savings (Alice)")
	}
}
