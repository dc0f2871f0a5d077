package cmd

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/retirement"
	"github.com/etnz/retirement/adapter"
	"github.com/etnz/retirement/date"
)

// memberFlags are the editable member fields. Only flags set on the command line end in the patch.
type memberFlags struct {
	name           string
	dateOfBirth    string
	lifeExpectancy int
	retirementAge  int
}

func (m *memberFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&m.name, "name", "", "Member name")
	f.StringVar(&m.dateOfBirth, "dob", "", "Date of birth, YYYY-MM-DD")
	f.IntVar(&m.lifeExpectancy, "life", 0, fmt.Sprintf("Life expectancy in years, between %d and %d", retirement.MinLifeExpectancy, retirement.MaxLifeExpectancy))
	f.IntVar(&m.retirementAge, "retire", 0, fmt.Sprintf("Retirement age in years, between %d and %d", retirement.MinRetirementAge, retirement.MaxRetirementAge))
}

func (m *memberFlags) patch(f *flag.FlagSet) (p retirement.MemberPatch, err error) {
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "name":
			p.Name = retirement.Ptr(m.name)
		case "dob":
			d, perr := date.Parse(m.dateOfBirth)
			if perr != nil {
				err = perr
				return
			}
			p.DateOfBirth = &d
		case "life":
			p.LifeExpectancy = retirement.Ptr(m.lifeExpectancy)
		case "retire":
			p.RetirementAge = retirement.Ptr(m.retirementAge)
		}
	})
	return p, err
}

// fundFlags are the editable fund fields. Only flags set on the command line end in the patch.
type fundFlags struct {
	name         string
	member       int
	initial      float64
	contribution float64
	frequency    string
	start        string
	rates        string
}

func (c *fundFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Fund name")
	f.IntVar(&c.member, "member", 0, "Position of the owner in the members table")
	f.Float64Var(&c.initial, "initial", 0, "Initial investment")
	f.Float64Var(&c.contribution, "contribution", 0, "Regular contribution, per period")
	f.StringVar(&c.frequency, "frequency", "", "Contribution frequency: Annually, Monthly, Bi-Monthly, Bi-Weekly or Weekly")
	f.StringVar(&c.start, "start", "", "Start date, YYYY-MM-DD")
	f.StringVar(&c.rates, "rates", "", "Annual return rates by age, like '0-50:7,51-120:4'")
}

// patch returns the fund patch of the flags set in f, owners resolved by position in members.
func (c *fundFlags) patch(f *flag.FlagSet, members *adapter.Collection[retirement.FamilyMember, retirement.MemberPatch]) (p retirement.FundPatch, err error) {
	var errs []error
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "name":
			p.Name = retirement.Ptr(c.name)
		case "member":
			id, ok := members.ID(c.member)
			if !ok {
				errs = append(errs, fmt.Errorf("no family member #%d", c.member))
				return
			}
			p.FamilyMemberID = &id
		case "initial":
			p.InitialInvestment = retirement.Ptr(c.initial)
		case "contribution":
			p.RegularContribution = retirement.Ptr(c.contribution)
		case "frequency":
			freq, err := retirement.ParseFrequency(c.frequency)
			if err != nil {
				errs = append(errs, err)
				return
			}
			p.ContributionFrequency = &freq
		case "start":
			d, err := date.Parse(c.start)
			if err != nil {
				errs = append(errs, err)
				return
			}
			p.StartDate = &d
		case "rates":
			ranges, err := parseRates(c.rates)
			if err != nil {
				errs = append(errs, err)
				return
			}
			p.ReturnRateParams = &ranges
		}
	})
	if len(errs) > 0 {
		return p, errs[0]
	}
	return p, nil
}

// parseRates parses comma separated "<from>-<to>:<rate>" ranges. An empty string is no range.
func parseRates(s string) ([]retirement.ReturnRateRange, error) {
	ranges := []retirement.ReturnRateRange{}
	if strings.TrimSpace(s) == "" {
		return ranges, nil
	}
	for _, item := range strings.Split(s, ",") {
		ages, rate, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok {
			return nil, fmt.Errorf("invalid return rate %q, want <from>-<to>:<rate>", item)
		}
		from, to, ok := strings.Cut(ages, "-")
		if !ok {
			return nil, fmt.Errorf("invalid age range %q, want <from>-<to>", ages)
		}
		var r retirement.ReturnRateRange
		var err error
		if r.FromAge, err = parseInt(from); err != nil {
			return nil, fmt.Errorf("invalid from age %q: %w", from, err)
		}
		if r.ToAge, err = parseInt(to); err != nil {
			return nil, fmt.Errorf("invalid to age %q: %w", to, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(rate), "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid return rate %q: %w", rate, err)
		}
		r.ReturnRate = retirement.Number(v)
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func parseInt(s string) (retirement.Int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	return retirement.Int(v), err
}

// indexFlag is the position of the row a command works on.
type indexFlag struct{ index int }

func (i *indexFlag) SetFlags(f *flag.FlagSet) {
	f.IntVar(&i.index, "i", -1, "Position of the row in the table (required)")
}

// check reports an error unless the index points to one of n rows.
func (i *indexFlag) check(n int, what string) error {
	if i.index < 0 {
		return fmt.Errorf("-i is required")
	}
	if i.index >= n {
		return fmt.Errorf("no %s #%d, there are %d", what, i.index, n)
	}
	return nil
}

// currency returns the currency reports are displayed in.
func currency() string {
	if cfg.Currency == "" {
		return retirement.DefaultCurrency
	}
	return cfg.Currency
}
