package model

// PriorityCounts is the per-priority task histogram.
type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Add increments the counter for p. Unknown priorities are ignored.
func (c *PriorityCounts) Add(p Priority) {
	switch p {
	case PriorityHigh:
		c.High++
	case PriorityMedium:
		c.Medium++
	case PriorityLow:
		c.Low++
	}
}

// Get returns the counter for p.
func (c PriorityCounts) Get(p Priority) int {
	switch p {
	case PriorityHigh:
		return c.High
	case PriorityMedium:
		return c.Medium
	case PriorityLow:
		return c.Low
	}
	return 0
}

// ExportStats is the aggregate block embedded in an export document.
type ExportStats struct {
	Total      int            `json:"total"`
	Completed  int            `json:"completed"`
	ByPriority PriorityCounts `json:"byPriority"`
}

// ExportDocument is the downloadable snapshot of a day's plan.
type ExportDocument struct {
	// Date is the local calendar date, YYYY-MM-DD.
	Date  string      `json:"date"`
	Tasks []Task      `json:"tasks"`
	Stats ExportStats `json:"stats"`
}
