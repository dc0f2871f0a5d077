package retirement

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/etnz/retirement/date"
)

// DefaultReturnRate applies to ages not covered by any ReturnRateRange.
const DefaultReturnRate Percent = 7

// Actual overrides are only accepted for years in [MinActualYear, MaxActualYear].
const (
	MinActualYear = 2000
	MaxActualYear = 2100
)

// ContributionFrequency is the number of contributions per year.
type ContributionFrequency int

const (
	Annually  ContributionFrequency = 1
	Monthly   ContributionFrequency = 12
	BiMonthly ContributionFrequency = 24
	BiWeekly  ContributionFrequency = 26
	Weekly    ContributionFrequency = 52
)

// Frequencies lists the valid contribution frequencies in increasing order.
var Frequencies = []ContributionFrequency{Annually, Monthly, BiMonthly, BiWeekly, Weekly}

func (f ContributionFrequency) String() string {
	switch f {
	case Annually:
		return "Annually"
	case Monthly:
		return "Monthly"
	case BiMonthly:
		return "Bi-Monthly"
	case BiWeekly:
		return "Bi-Weekly"
	case Weekly:
		return "Weekly"
	}
	return fmt.Sprintf("%d/year", int(f))
}

// Valid reports whether f is one of Frequencies.
func (f ContributionFrequency) Valid() bool { return slices.Contains(Frequencies, f) }

// ParseFrequency parses either a label ("Monthly") or a count ("12").
func ParseFrequency(s string) (ContributionFrequency, error) {
	s = strings.TrimSpace(s)
	for _, f := range Frequencies {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && ContributionFrequency(n).Valid() {
		return ContributionFrequency(n), nil
	}
	return 0, fmt.Errorf("invalid contribution frequency %q", s)
}

// MarshalJSON encodes f as a JSON number.
func (f ContributionFrequency) MarshalJSON() ([]byte, error) { return Int(f).MarshalJSON() }

// UnmarshalJSON accepts a number or a numeric string.
func (f *ContributionFrequency) UnmarshalJSON(data []byte) error {
	var i Int
	if err := i.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = ContributionFrequency(i)
	return nil
}

// ReturnRateRange applies ReturnRate (in percent) for ages FromAge to ToAge inclusive.
type ReturnRateRange struct {
	FromAge    Int    `json:"from_age"`
	ToAge      Int    `json:"to_age"`
	ReturnRate Number `json:"return_rate"`
}

// ActualOverride is a recorded true balance for a past year.
type ActualOverride struct {
	Year                Int    `json:"year"`
	ActualBalance       Number `json:"actual_balance"`
	ActualContributions Number `json:"actual_contributions"`
	ActualGrowth        Number `json:"actual_growth"`
}

// Validate returns why o cannot be stored.
func (o ActualOverride) Validate() error {
	var errs []error
	if o.Year < MinActualYear || o.Year > MaxActualYear {
		errs = append(errs, errors.New("actual data year must be a valid year between 2000 and 2100"))
	}
	if o.ActualBalance < 0 {
		errs = append(errs, errors.New("actual balance must be a non-negative number"))
	}
	errs = append(errs, finite("actual contributions", o.ActualContributions), finite("actual growth", o.ActualGrowth))
	return validationError(errs...)
}

// RetirementFund is a savings vehicle owned by a FamilyMember.
//
// RetirementProjection is computed by the remote service and never sent back.
type RetirementFund struct {
	ID                    string                `json:"id"`
	Name                  string                `json:"name"`
	FamilyMemberID        string                `json:"family_member_id"`
	InitialInvestment     Number                `json:"initial_investment"`
	RegularContribution   Number                `json:"regular_contribution"`
	ContributionFrequency ContributionFrequency `json:"contribution_frequency"`
	StartDate             date.Date             `json:"start_date"`
	ReturnRateParams      []ReturnRateRange     `json:"return_rate_params"`
	ActualData            []ActualOverride      `json:"actual_data,omitempty"`
	RetirementProjection  []YearProjection      `json:"retirement_projection,omitempty"`
}

// ReturnRateAt returns the annual return rate configured for 'age'.
// The first matching range wins, DefaultReturnRate applies otherwise.
func (f RetirementFund) ReturnRateAt(age int) Percent {
	for _, r := range f.ReturnRateParams {
		if int(r.FromAge) <= age && age <= int(r.ToAge) {
			return Percent(r.ReturnRate)
		}
	}
	return DefaultReturnRate
}

// Override returns the actual override recorded for 'year'.
func (f RetirementFund) Override(year int) (ActualOverride, bool) {
	for _, o := range f.ActualData {
		if int(o.Year) == year {
			return o, true
		}
	}
	return ActualOverride{}, false
}

// WithOverride returns a copy of f where the override for o.Year is replaced, or appended if absent.
func (f RetirementFund) WithOverride(o ActualOverride) RetirementFund {
	data := slices.Clone(f.ActualData)
	i := slices.IndexFunc(data, func(x ActualOverride) bool { return x.Year == o.Year })
	if i >= 0 {
		data[i] = o
	} else {
		data = append(data, o)
	}
	f.ActualData = data
	return f
}

// WithoutOverride returns a copy of f without any override for 'year'.
func (f RetirementFund) WithoutOverride(year int) RetirementFund {
	f.ActualData = slices.DeleteFunc(slices.Clone(f.ActualData), func(x ActualOverride) bool { return int(x.Year) == year })
	if len(f.ActualData) == 0 {
		f.ActualData = nil
	}
	return f
}

// WithoutProjection returns a copy of f stripped of server computed fields, as sent to the service.
func (f RetirementFund) WithoutProjection() RetirementFund {
	f.RetirementProjection = nil
	return f
}

// Validate returns all the reasons why f cannot be stored.
func (f RetirementFund) Validate() error {
	var errs []error
	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, errors.New("name must be at least 1 character long"))
	}
	errs = append(errs,
		nonNegative("initial investment", f.InitialInvestment),
		nonNegative("regular contribution", f.RegularContribution),
		validateFrequency(f.ContributionFrequency),
		validateRanges(f.ReturnRateParams),
	)
	for _, o := range f.ActualData {
		errs = append(errs, o.Validate())
	}
	return validationError(errs...)
}

func nonNegative(field string, v Number) error {
	if err := finite(field, v); err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("%s must be non-negative", field)
	}
	return nil
}

func finite(field string, v Number) error {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return fmt.Errorf("%s must be a finite number", field)
	}
	return nil
}

func validateFrequency(f ContributionFrequency) error {
	if !f.Valid() {
		return fmt.Errorf("contribution frequency must be one of 1, 12, 24, 26, 52, got %d", int(f))
	}
	return nil
}

func validateRanges(ranges []ReturnRateRange) error {
	var errs []error
	for i, r := range ranges {
		if r.FromAge > r.ToAge {
			errs = append(errs, fmt.Errorf("return rate range #%d: from age %d is after to age %d", i+1, r.FromAge, r.ToAge))
		}
		if err := finite("return rate", r.ReturnRate); err != nil {
			errs = append(errs, fmt.Errorf("return rate range #%d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

// FundPatch is a partial update of a RetirementFund: nil fields are left untouched.
type FundPatch struct {
	Name                  *string
	FamilyMemberID        *string
	InitialInvestment     *float64
	RegularContribution   *float64
	ContributionFrequency *ContributionFrequency
	StartDate             *date.Date
	ReturnRateParams      *[]ReturnRateRange
}

// IsEmpty reports whether p changes nothing.
func (p FundPatch) IsEmpty() bool { return p == FundPatch{} }

// Apply returns a copy of f with p's fields merged in.
func (p FundPatch) Apply(f RetirementFund) RetirementFund {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.FamilyMemberID != nil {
		f.FamilyMemberID = *p.FamilyMemberID
	}
	if p.InitialInvestment != nil {
		f.InitialInvestment = Number(*p.InitialInvestment)
	}
	if p.RegularContribution != nil {
		f.RegularContribution = Number(*p.RegularContribution)
	}
	if p.ContributionFrequency != nil {
		f.ContributionFrequency = *p.ContributionFrequency
	}
	if p.StartDate != nil {
		f.StartDate = *p.StartDate
	}
	if p.ReturnRateParams != nil {
		f.ReturnRateParams = slices.Clone(*p.ReturnRateParams)
	}
	return f
}

// Validate checks the fields set in p only.
func (p FundPatch) Validate() error {
	var errs []error
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		errs = append(errs, errors.New("name must be at least 1 character long"))
	}
	if p.InitialInvestment != nil {
		errs = append(errs, nonNegative("initial investment", Number(*p.InitialInvestment)))
	}
	if p.RegularContribution != nil {
		errs = append(errs, nonNegative("regular contribution", Number(*p.RegularContribution)))
	}
	if p.ContributionFrequency != nil {
		errs = append(errs, validateFrequency(*p.ContributionFrequency))
	}
	if p.ReturnRateParams != nil {
		errs = append(errs, validateRanges(*p.ReturnRateParams))
	}
	return validationError(errs...)
}

// FundByID returns the fund with the given id.
func FundByID(funds []RetirementFund, id string) (RetirementFund, bool) {
	for _, f := range funds {
		if f.ID == id {
			return f, true
		}
	}
	return RetirementFund{}, false
}
