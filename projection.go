package retirement

// YearProjection is one year of a fund's balance trajectory as computed by the
// remote service.
type YearProjection struct {
	Year             Int    `json:"year"`
	Age              Int    `json:"age"`
	AnnualReturnRate Number `json:"annual_return_rate"`
	BeginAmount      Number `json:"begin_amount"`
	Contribution     Number `json:"contribution"`
	Growth           Number `json:"growth"`
	Withdrawal       Number `json:"withdrawal"`
	EndAmount        Number `json:"end_amount"`
	IsActualBalance  bool   `json:"is_actual_balance"`
}
