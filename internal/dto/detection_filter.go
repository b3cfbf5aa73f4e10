// DetectionFilters describe user-provided filters to narrow the detection history.
package dto

import "time"

type DetectionFilters struct {
	Source string
	Label  string
	After  time.Time
	Before time.Time
	Limit  int
	Offset int
}
