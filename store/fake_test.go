package store

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/etnz/retirement"
	"github.com/etnz/retirement/date"
	"github.com/etnz/retirement/remote"
	"github.com/etnz/retirement/snapshot"
)

type snapshotHousehold = snapshot.Household

var errDown = retirement.NewError(retirement.KindConnectivity, "", "backend unreachable", errors.New("connection refused"))

// fakeRemote is an in memory retirement service.
//
// A nil collection answers 404. Every fund gets a one year projection ending
// with its initial investment plus the sum of its actual balances.
type fakeRemote struct {
	mu      sync.Mutex
	members []retirement.FamilyMember
	funds   []retirement.RetirementFund
	calls   map[string]int
	actuals map[string][]retirement.ActualOverride

	readErr  error
	writeErr error
	// block, when set, holds every read until closed. entered receives one value per blocked read.
	// blockOnly restricts block to the reads of that operation.
	block     chan struct{}
	entered   chan struct{}
	blockOnly string
}

func newFake() *fakeRemote {
	return &fakeRemote{calls: make(map[string]int), actuals: make(map[string][]retirement.ActualOverride)}
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) enter(op string) error {
	f.mu.Lock()
	f.calls[op]++
	block, entered, err := f.block, f.entered, f.readErr
	if f.blockOnly != "" && f.blockOnly != op {
		block = nil
	}
	f.mu.Unlock()
	if block != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-block
	}
	return err
}

func (f *fakeRemote) GetFamilyInfo(ctx context.Context, userID string) ([]retirement.FamilyMember, error) {
	if err := f.enter("get_family_info"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members == nil {
		return nil, retirement.NewError(retirement.KindNotFound, "get_family_info", "No family info found", nil)
	}
	return slices.Clone(f.members), nil
}

func (f *fakeRemote) GetRetirementData(ctx context.Context, userID string) (remote.RetirementData, error) {
	if err := f.enter("get_retirement_data"); err != nil {
		return remote.RetirementData{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.funds == nil {
		return remote.RetirementData{}, retirement.NewError(retirement.KindNotFound, "get_retirement_data", "No retirement data found", nil)
	}
	data := remote.RetirementData{Members: slices.Clone(f.members)}
	for _, fund := range f.funds {
		end := fund.InitialInvestment
		for _, o := range f.actuals[fund.ID] {
			end += o.ActualBalance
		}
		fund.ActualData = slices.Clone(f.actuals[fund.ID])
		fund.RetirementProjection = []retirement.YearProjection{{Year: 2025, EndAmount: end}}
		data.Funds = append(data.Funds, fund)
	}
	return data, nil
}

func (f *fakeRemote) write(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.writeErr
}

func (f *fakeRemote) UpdateFamilyInfo(ctx context.Context, userID string, members []retirement.FamilyMember) error {
	if err := f.write("update_family_info"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members = slices.Clone(members)
	if f.members == nil {
		f.members = []retirement.FamilyMember{}
	}
	return nil
}

func (f *fakeRemote) UpdateRetirementData(ctx context.Context, userID string, funds []retirement.RetirementFund) error {
	if err := f.write("update_retirement_data"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funds = make([]retirement.RetirementFund, 0, len(funds))
	for _, fund := range funds {
		f.actuals[fund.ID] = fund.ActualData
		f.funds = append(f.funds, fund.WithoutProjection())
	}
	return nil
}

func (f *fakeRemote) UpdateFundActuals(ctx context.Context, userID, fundID string, data []retirement.ActualOverride) error {
	if err := f.write("update_fund_actuals"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actuals[fundID] = slices.Clone(data)
	return nil
}

// sequence returns an id generator yielding id-1, id-2, ...
func sequence() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "id-" + strconv.Itoa(n)
	}
}

var today = date.New(2025, 6, 1)

// newStore returns a store of household "u" on r with deterministic ids and clock.
func newStore(t *testing.T, r Remote, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{
		WithIDs(sequence()),
		WithClock(func() date.Date { return today }),
		WithLogger(log.New(io.Discard, "", 0)),
	}, opts...)
	s := New(r, "u", opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// memorySnapshots is an in memory Snapshots.
type memorySnapshots struct {
	mu    sync.Mutex
	saved map[string]snapshotHousehold
	saves int
}

func (m *memorySnapshots) Load(ctx context.Context, userID string) (snapshotHousehold, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.saved[userID]
	return h, ok, nil
}

func (m *memorySnapshots) Save(ctx context.Context, userID string, h snapshotHousehold) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]snapshotHousehold)
	}
	m.saved[userID] = h
	m.saves++
	return nil
}
