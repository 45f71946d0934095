package dto

// TableRow is one rendered line of the results table.
type TableRow struct {
	Rank       int     `json:"rank"`
	Class      string  `json:"class"`
	Badge      string  `json:"badge"`
	Confidence string  `json:"confidence"`
	Position   string  `json:"position"`
	Size       string  `json:"size"`
	Score      float64 `json:"score"`
}

// TableData is the results table payload. Placeholder is set instead of rows
// when nothing clears the threshold.
type TableData struct {
	Threshold   float64    `json:"threshold"`
	Count       string     `json:"count,omitempty"`
	Rows        []TableRow `json:"rows"`
	Placeholder string     `json:"placeholder,omitempty"`
}
