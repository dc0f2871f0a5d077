package retirement

import "github.com/etnz/retirement/date"

// Values used to bootstrap a first time household.
const (
	DefaultMemberName          = "Me"
	DefaultMemberAge           = 30
	DefaultLifeExpectancy      = 90
	DefaultRetirementAge       = 65
	DefaultFundName            = "Retirement Savings"
	DefaultInitialInvestment   = 1000
	DefaultRegularContribution = 10
	DefaultFrequency           = Monthly
)

// DefaultMember returns the member synthesized for a household with no stored data.
func DefaultMember(id string, today date.Date) FamilyMember {
	return FamilyMember{
		ID:             id,
		Name:           DefaultMemberName,
		DateOfBirth:    today.AddYears(-DefaultMemberAge),
		LifeExpectancy: DefaultLifeExpectancy,
		RetirementAge:  DefaultRetirementAge,
	}
}

// DefaultFund returns the fund synthesized for a household with no stored data, owned by memberID.
func DefaultFund(id, memberID string, today date.Date) RetirementFund {
	return RetirementFund{
		ID:                    id,
		Name:                  DefaultFundName,
		FamilyMemberID:        memberID,
		InitialInvestment:     DefaultInitialInvestment,
		RegularContribution:   DefaultRegularContribution,
		ContributionFrequency: DefaultFrequency,
		StartDate:             today,
		ReturnRateParams: []ReturnRateRange{
			{FromAge: 0, ToAge: MaxLifeExpectancy, ReturnRate: Number(DefaultReturnRate)},
		},
	}
}
