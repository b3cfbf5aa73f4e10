package dto

// Status is the payload of the status endpoint.
type Status struct {
	Uptime        string      `json:"uptime"`
	Goroutines    int         `json:"goroutines"`
	ActiveStreams int         `json:"activeStreams"`
	LiveCameras   []string    `json:"liveCameras"`
	Viewers       int         `json:"viewers"`
	Model         ModelStatus `json:"model"`
	Host          HostStatus  `json:"host"`
}

// ModelStatus describes the loaded detection model.
type ModelStatus struct {
	Path       string   `json:"path"`
	Classes    []string `json:"classes"`
	InputSize  []int    `json:"inputSize"`
	Confidence float32  `json:"confidence"`
	IoU        float32  `json:"iou"`
}

type HostStatus struct {
	CPUs              int     `json:"cpus"`
	MemoryTotal       uint64  `json:"memoryTotal"`
	MemoryUsed        uint64  `json:"memoryUsed"`
	MemoryUsedPercent float64 `json:"memoryUsedPercent"`
}
