package camera

import (
	"fmt"
	"weedcam/internal/config"

	"gocv.io/x/gocv"
)

// Camera tags accepted in URLs.
const (
	TagBack  = "back"
	TagFront = "front"
)

// Device is an opened capture source. *gocv.VideoCapture satisfies it.
type Device interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Opener opens the capture device with the given index.
type Opener func(index int) (Device, error)

// OpenDevice opens a local camera through OpenCV.
func OpenDevice(index int) (Device, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d is not available", index)
	}
	return vc, nil
}

// Indexes maps camera tags to device indexes.
// The back/front split has no platform detection behind it; both values come from configuration.
type Indexes struct {
	Back  int
	Front int
}

// IndexesFromConfig reads the tag mapping from configuration.
func IndexesFromConfig(cfg *config.Config) Indexes {
	return Indexes{Back: cfg.BackCameraIndex, Front: cfg.FrontCameraIndex}
}

// Normalize maps any tag other than "back" to "front".
func Normalize(tag string) string {
	if tag == TagBack {
		return TagBack
	}
	return TagFront
}

// Resolve returns the device index for a tag; unknown tags use the front camera.
func (i Indexes) Resolve(tag string) int {
	if Normalize(tag) == TagBack {
		return i.Back
	}
	return i.Front
}
