package model

import "time"

// Detection represents a stored detection record.
type Detection struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Filename   string    `json:"filename"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CreatedAt  time.Time `json:"created_at"`
}
