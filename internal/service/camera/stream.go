package camera

import (
	"context"
	"sync/atomic"
	"weedcam/internal/dto"
	"weedcam/internal/logger"

	"gocv.io/x/gocv"
)

// FrameAnnotator turns a captured frame into an annotated JPEG.
type FrameAnnotator interface {
	AnnotateFrame(frame gocv.Mat) ([]byte, []dto.Detection, error)
}

// EmitFunc receives one annotated JPEG frame and the detections drawn on it.
type EmitFunc func(jpeg []byte, detections []dto.Detection) error

// Streamer captures frames from a camera and hands out annotated JPEGs.
type Streamer struct {
	annotator FrameAnnotator
	open      Opener
	indexes   Indexes
	logger    *logger.Logger
	active    atomic.Int32
}

// NewStreamer creates a Streamer. A nil opener means OpenDevice.
func NewStreamer(annotator FrameAnnotator, open Opener, indexes Indexes, logger *logger.Logger) *Streamer {
	if open == nil {
		open = OpenDevice
	}
	return &Streamer{
		annotator: annotator,
		open:      open,
		indexes:   indexes,
		logger:    logger,
	}
}

// Stream opens the camera for tag and calls emit with every annotated frame
// until a read fails, ctx is done, or emit returns an error. The device is
// released before Stream returns. A camera that cannot be opened yields zero
// frames and no error. It returns the number of frames emitted.
func (s *Streamer) Stream(ctx context.Context, tag string, emit EmitFunc) (int, error) {
	index := s.indexes.Resolve(tag)

	device, err := s.open(index)
	if err != nil {
		s.logger.Warning("Camera %s (index %d) unavailable: %v", tag, index, err)
		return 0, nil
	}

	s.active.Add(1)
	defer s.active.Add(-1)
	defer func() {
		if err := device.Close(); err != nil {
			s.logger.Error("Failed to release camera %d: %v", index, err)
		}
	}()

	s.logger.Info("Streaming camera %s (index %d)", tag, index)

	frame := gocv.NewMat()
	defer frame.Close()

	frames := 0
	for {
		if ctx.Err() != nil {
			s.logger.Info("Stream for camera %s closed by client after %d frames", tag, frames)
			return frames, nil
		}

		if ok := device.Read(&frame); !ok || frame.Empty() {
			s.logger.Info("Camera %s stopped delivering frames after %d frames", tag, frames)
			return frames, nil
		}

		encoded, detections, err := s.annotator.AnnotateFrame(frame)
		if err != nil {
			return frames, err
		}

		if err := emit(encoded, detections); err != nil {
			return frames, err
		}
		frames++
	}
}

// Active returns the number of open capture loops.
func (s *Streamer) Active() int {
	return int(s.active.Load())
}
