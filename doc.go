// Package retirement provides the domain model for a household retirement
// planner: family members, the retirement funds they own, and the year by year
// balance projections computed for each fund by a remote calculation service.
//
// The core functionalities include:
//   - Canonical Schema: one typed record per entity kind (FamilyMember,
//     RetirementFund) with a single snake_case wire naming convention, and
//     typed partial updates (MemberPatch, FundPatch) validated before merge.
//   - Household Aggregation: a pure function that merges the independently
//     computed projections of every fund into one household level time series,
//     keyed by year, with a stable label for each fund series.
//   - Error Taxonomy: a tagged Error distinguishing connectivity failures,
//     missing households, validation failures and server faults, so that
//     callers can decide whether to retry, surface or ignore.
//
// This package serves as the foundational logic for the `retire` command-line
// tool and for the store package that synchronizes collections with the remote
// service.
package retirement
