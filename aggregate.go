package retirement

import (
	"slices"
	"strconv"

	"github.com/etnz/retirement/date"
	"github.com/shopspring/decimal"
)

// UnknownMember labels funds whose owner cannot be resolved or has no name.
const UnknownMember = "Unknown"

// FundKey returns the series key of the fund at position i in the aggregated list.
//
// Keys are only meaningful within one HouseholdProjection: they follow positions, not ids.
func FundKey(i int) string { return "fund_" + strconv.Itoa(i) }

// YearAggregate is the household row for one year.
//
// Funds only holds the funds reporting a value for Year. Total is the sum of
// those values only.
type YearAggregate struct {
	Year  int
	Total float64
	Funds map[string]float64
}

// Value returns the end amount of the fund 'key' for that year.
func (y YearAggregate) Value(key string) (float64, bool) {
	v, ok := y.Funds[key]
	return v, ok
}

// MarshalJSON encodes the row flat: {"year":..,"fund_0":..,"total":..}.
func (y YearAggregate) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(y.Funds))
	for k := range y.Funds {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareFundKeys)

	var w jsonObjectWriter
	w.Append("year", y.Year)
	for _, k := range keys {
		w.Append(k, y.Funds[k])
	}
	w.Append("total", y.Total)
	return w.MarshalJSON()
}

// compareFundKeys orders fund_2 before fund_10.
func compareFundKeys(a, b string) int {
	ia, _ := strconv.Atoi(a[len("fund_"):])
	ib, _ := strconv.Atoi(b[len("fund_"):])
	return ia - ib
}

// HouseholdProjection merges all funds' projections into one series per year.
type HouseholdProjection struct {
	// Rows are sorted by ascending year, one per year present in any fund's projection.
	Rows []YearAggregate `json:"rows"`
	// Legend maps each fund key to "<fund name> (<member name>)".
	Legend map[string]string `json:"legend"`
	// Keys lists the fund keys in fund order.
	Keys []string `json:"keys"`
}

// IsEmpty reports whether no fund reported any projection.
func (h HouseholdProjection) IsEmpty() bool { return len(h.Rows) == 0 }

// Row returns the row for 'year'.
func (h HouseholdProjection) Row(year int) (YearAggregate, bool) {
	i, found := slices.BinarySearchFunc(h.Rows, year, func(r YearAggregate, y int) int { return r.Year - y })
	if !found {
		return YearAggregate{}, false
	}
	return h.Rows[i], true
}

// Aggregate computes the household projection of funds, in collection order.
//
// Funds without projection are skipped. Owners are resolved by id in members.
// Aggregate has no side effect: same inputs give the same output.
func Aggregate(funds []RetirementFund, members []FamilyMember) HouseholdProjection {
	h := HouseholdProjection{Legend: make(map[string]string)}
	totals := make(map[int]decimal.Decimal)
	rows := make(map[int]*YearAggregate)

	for i, f := range funds {
		if len(f.RetirementProjection) == 0 {
			continue
		}
		key := FundKey(i)
		owner := UnknownMember
		if m, ok := MemberByID(members, f.FamilyMemberID); ok && m.Name != "" {
			owner = m.Name
		}
		h.Legend[key] = f.Name + " (" + owner + ")"
		h.Keys = append(h.Keys, key)

		for _, p := range f.RetirementProjection {
			year := int(p.Year)
			row, ok := rows[year]
			if !ok {
				row = &YearAggregate{Year: year, Funds: make(map[string]float64)}
				rows[year] = row
			}
			if prev, dup := row.Funds[key]; dup {
				// a fund reports a year once, the last entry wins
				totals[year] = totals[year].Sub(decimal.NewFromFloat(prev))
			}
			row.Funds[key] = float64(p.EndAmount)
			totals[year] = totals[year].Add(decimal.NewFromFloat(float64(p.EndAmount)))
		}
	}

	h.Rows = make([]YearAggregate, 0, len(rows))
	for year, row := range rows {
		row.Total = totals[year].InexactFloat64()
		h.Rows = append(h.Rows, *row)
	}
	slices.SortFunc(h.Rows, func(a, b YearAggregate) int { return a.Year - b.Year })
	return h
}

// Summary gives the headline figures of a household projection.
type Summary struct {
	Year           int   // year of Current
	Current        Money // household total this year
	RetirementYear int   // latest retirement year among members
	AtRetirement   Money // household total at RetirementYear
	Peak           Money // highest household total
	PeakYear       int
}

// Summarize computes the Summary of h on day 'on' in 'currency'.
//
// Current is the first row not before on's year. AtRetirement is the last row
// not after the latest member retirement year.
func Summarize(h HouseholdProjection, members []FamilyMember, on date.Date, currency string) Summary {
	s := Summary{Current: M(0, currency), AtRetirement: M(0, currency), Peak: M(0, currency)}
	for _, m := range members {
		s.RetirementYear = max(s.RetirementYear, m.RetirementYear())
	}
	if h.IsEmpty() {
		return s
	}

	currentSet := false
	for _, r := range h.Rows {
		total := M(r.Total, currency)
		if !currentSet && r.Year >= on.Year() {
			s.Year, s.Current, currentSet = r.Year, total, true
		}
		if r.Year <= s.RetirementYear {
			s.AtRetirement = total
		}
		if s.PeakYear == 0 || s.Peak.LessThan(total) {
			s.Peak, s.PeakYear = total, r.Year
		}
	}
	if !currentSet {
		last := h.Rows[len(h.Rows)-1]
		s.Year, s.Current = last.Year, M(last.Total, currency)
	}
	return s
}
