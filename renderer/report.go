package renderer

import (
	"github.com/etnz/retirement"
	"github.com/etnz/retirement/date"
)

// MembersReport is the view of the family members.
type MembersReport struct {
	Date string
	Rows []MemberRow
}

type MemberRow struct {
	Index             int
	ID                string
	Name              string
	DateOfBirth       string
	Age               int
	RetirementAge     int
	RetirementYear    int
	YearsToRetirement int
	LifeExpectancy    int
}

// NewMembersReport returns the view of members on day 'on'.
func NewMembersReport(members []retirement.FamilyMember, on date.Date) *MembersReport {
	r := &MembersReport{Date: on.String()}
	for i, m := range members {
		r.Rows = append(r.Rows, MemberRow{
			Index:             i,
			ID:                m.ID,
			Name:              m.Name,
			DateOfBirth:       m.DateOfBirth.String(),
			Age:               m.Age(on),
			RetirementAge:     int(m.RetirementAge),
			RetirementYear:    m.RetirementYear(),
			YearsToRetirement: m.YearsToRetirement(on),
			LifeExpectancy:    int(m.LifeExpectancy),
		})
	}
	return r
}

// FundsReport is the view of the retirement funds.
type FundsReport struct {
	Rows []FundRow
}

type FundRow struct {
	Index        int
	ID           string
	Name         string
	Owner        string
	Initial      string
	Contribution string
	Frequency    string
	StartDate    string
	Projected    string // last projected balance
}

// NewFundsReport returns the view of funds, owners resolved in members.
func NewFundsReport(funds []retirement.RetirementFund, members []retirement.FamilyMember, currency string) *FundsReport {
	r := &FundsReport{}
	for i, f := range funds {
		row := FundRow{
			Index:        i,
			ID:           f.ID,
			Name:         f.Name,
			Owner:        owner(f, members),
			Initial:      retirement.M(f.InitialInvestment, currency).String(),
			Contribution: retirement.M(f.RegularContribution, currency).String(),
			Frequency:    f.ContributionFrequency.String(),
			StartDate:    f.StartDate.String(),
		}
		if n := len(f.RetirementProjection); n > 0 {
			row.Projected = retirement.M(f.RetirementProjection[n-1].EndAmount, currency).String()
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

func owner(f retirement.RetirementFund, members []retirement.FamilyMember) string {
	if m, ok := retirement.MemberByID(members, f.FamilyMemberID); ok {
		return m.Name
	}
	return retirement.UnknownMember
}

// FundReport is the detailed view of one fund.
type FundReport struct {
	FundRow
	DefaultRate string
	Schedule    []ScheduleRow
	Overrides   []OverrideRow
	Projection  []ProjectionRow
}

type ScheduleRow struct {
	FromAge, ToAge int
	Rate           string
}

type OverrideRow struct {
	Year                           int
	Balance, Contributions, Growth string
}

type ProjectionRow struct {
	Year, Age                                    int
	Rate                                         string
	Begin, Contribution, Growth, Withdrawal, End string
	Actual                                       bool
}

// NewFundReport returns the detailed view of the fund at position index.
func NewFundReport(index int, f retirement.RetirementFund, members []retirement.FamilyMember, currency string) *FundReport {
	row := NewFundsReport([]retirement.RetirementFund{f}, members, currency).Rows[0]
	row.Index = index
	r := &FundReport{FundRow: row, DefaultRate: retirement.DefaultReturnRate.String()}
	m := func(v retirement.Number) string { return retirement.M(v, currency).String() }
	for _, s := range f.ReturnRateParams {
		r.Schedule = append(r.Schedule, ScheduleRow{FromAge: int(s.FromAge), ToAge: int(s.ToAge), Rate: retirement.Percent(s.ReturnRate).String()})
	}
	for _, o := range f.ActualData {
		r.Overrides = append(r.Overrides, OverrideRow{Year: int(o.Year), Balance: m(o.ActualBalance), Contributions: m(o.ActualContributions), Growth: m(o.ActualGrowth)})
	}
	for _, p := range f.RetirementProjection {
		r.Projection = append(r.Projection, ProjectionRow{
			Year:         int(p.Year),
			Age:          int(p.Age),
			Rate:         retirement.RateOf(p.AnnualReturnRate).String(),
			Begin:        m(p.BeginAmount),
			Contribution: m(p.Contribution),
			Growth:       m(p.Growth),
			Withdrawal:   m(p.Withdrawal),
			End:          m(p.EndAmount),
			Actual:       p.IsActualBalance,
		})
	}
	return r
}

// HouseholdReport is the view of the household aggregate.
type HouseholdReport struct {
	Date           string
	Year           int
	Current        string
	RetirementYear int
	AtRetirement   string
	PeakYear       int
	Peak           string
	Columns        []string // fund legends, in key order
	Rows           []HouseholdRow
}

type HouseholdRow struct {
	Year  int
	Cells []string // "" where the fund reports nothing
	Total string
}

// NewHouseholdReport returns the view of h on day 'on'.
func NewHouseholdReport(h retirement.HouseholdProjection, members []retirement.FamilyMember, on date.Date, currency string) *HouseholdReport {
	s := retirement.Summarize(h, members, on, currency)
	r := &HouseholdReport{
		Date:           on.String(),
		Year:           s.Year,
		Current:        s.Current.String(),
		RetirementYear: s.RetirementYear,
		AtRetirement:   s.AtRetirement.String(),
		PeakYear:       s.PeakYear,
		Peak:           s.Peak.String(),
	}
	for _, k := range h.Keys {
		r.Columns = append(r.Columns, h.Legend[k])
	}
	for _, y := range h.Rows {
		row := HouseholdRow{Year: y.Year, Total: retirement.M(y.Total, currency).String()}
		for _, k := range h.Keys {
			cell := ""
			if v, ok := y.Value(k); ok {
				cell = retirement.M(v, currency).String()
			}
			row.Cells = append(row.Cells, cell)
		}
		r.Rows = append(r.Rows, row)
	}
	return r
}

// Separator returns the markdown table separator for n right aligned columns after the year.
func (r *HouseholdReport) Separator() string {
	s := "|---:|"
	for range len(r.Columns) + 1 {
		s += "---:|"
	}
	return s
}

// Header returns the markdown table header.
func (r *HouseholdReport) Header() string {
	s := "| Year |"
	for _, c := range r.Columns {
		s += " " + escapeCell(c) + " |"
	}
	return s + " Total |"
}
