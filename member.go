package retirement

import (
	"errors"
	"strings"

	"github.com/etnz/retirement/date"
)

// Bounds accepted for member ages, in years.
const (
	MinLifeExpectancy = 50
	MaxLifeExpectancy = 120
	MinRetirementAge  = 50
	MaxRetirementAge  = 80
)

// FamilyMember is a person of the household owning retirement funds.
type FamilyMember struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	DateOfBirth    date.Date `json:"date_of_birth"`
	LifeExpectancy Int       `json:"life_expectancy"`
	RetirementAge  Int       `json:"retirement_age"`
}

// Age returns the member's age in whole years on day 'on'.
func (m FamilyMember) Age(on date.Date) int { return date.Age(m.DateOfBirth, on) }

// YearsToRetirement returns the number of years left before retirement, never negative.
func (m FamilyMember) YearsToRetirement(on date.Date) int {
	return max(0, int(m.RetirementAge)-m.Age(on))
}

// RetirementYear returns the calendar year the member reaches retirement age.
func (m FamilyMember) RetirementYear() int {
	return m.DateOfBirth.Year() + int(m.RetirementAge)
}

// Validate returns all the reasons why m cannot be stored.
func (m FamilyMember) Validate() error {
	var errs []error
	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, errors.New("name must be at least 1 character long"))
	}
	if m.DateOfBirth.IsZero() {
		errs = append(errs, errors.New("date of birth is required"))
	}
	errs = append(errs, validateLifeExpectancy(int(m.LifeExpectancy)), validateRetirementAge(int(m.RetirementAge)))
	return validationError(errs...)
}

func validateLifeExpectancy(v int) error {
	if v < MinLifeExpectancy || v > MaxLifeExpectancy {
		return errors.New("life expectancy must be between 50 and 120")
	}
	return nil
}

func validateRetirementAge(v int) error {
	if v < MinRetirementAge || v > MaxRetirementAge {
		return errors.New("retirement age must be between 50 and 80")
	}
	return nil
}

// MemberPatch is a partial update of a FamilyMember: nil fields are left untouched.
type MemberPatch struct {
	Name           *string
	DateOfBirth    *date.Date
	LifeExpectancy *int
	RetirementAge  *int
}

// IsEmpty reports whether p changes nothing.
func (p MemberPatch) IsEmpty() bool {
	return p.Name == nil && p.DateOfBirth == nil && p.LifeExpectancy == nil && p.RetirementAge == nil
}

// Apply returns a copy of m with p's fields merged in.
func (p MemberPatch) Apply(m FamilyMember) FamilyMember {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.DateOfBirth != nil {
		m.DateOfBirth = *p.DateOfBirth
	}
	if p.LifeExpectancy != nil {
		m.LifeExpectancy = Int(*p.LifeExpectancy)
	}
	if p.RetirementAge != nil {
		m.RetirementAge = Int(*p.RetirementAge)
	}
	return m
}

// Validate checks the fields set in p only.
func (p MemberPatch) Validate() error {
	var errs []error
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		errs = append(errs, errors.New("name must be at least 1 character long"))
	}
	if p.DateOfBirth != nil && p.DateOfBirth.IsZero() {
		errs = append(errs, errors.New("date of birth is required"))
	}
	if p.LifeExpectancy != nil {
		errs = append(errs, validateLifeExpectancy(*p.LifeExpectancy))
	}
	if p.RetirementAge != nil {
		errs = append(errs, validateRetirementAge(*p.RetirementAge))
	}
	return validationError(errs...)
}

// MemberByID returns the member with the given id.
func MemberByID(members []FamilyMember, id string) (FamilyMember, bool) {
	for _, m := range members {
		if m.ID == id {
			return m, true
		}
	}
	return FamilyMember{}, false
}
