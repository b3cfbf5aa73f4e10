package dto

import (
	"encoding/json"
	"time"
)

// DetectionInfo is one row of the detection history as returned by the API.
type DetectionInfo struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	Filename   string    `json:"filename"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MarshalJSON formats the timestamp the way the landing page displays it.
func (d DetectionInfo) MarshalJSON() ([]byte, error) {
	type Alias DetectionInfo
	return json.Marshal(&struct {
		CreatedAt string `json:"createdAt"`
		Alias
	}{
		CreatedAt: d.CreatedAt.Format("02-01-2006 15:04:05"),
		Alias:     (Alias)(d),
	})
}

// DetectionsData is a paginated response payload for the detection history.
type DetectionsData struct {
	Detections  []DetectionInfo `json:"detections"`
	Length      int             `json:"length"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Limit       int             `json:"pageSize"`
}

// DetectionStats summarizes the stored history.
type DetectionStats struct {
	Total     int            `json:"total"`
	PerLabel  map[string]int `json:"perLabel"`
	PerSource map[string]int `json:"perSource"`
}
