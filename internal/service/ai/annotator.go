package ai

import (
	"fmt"
	"image"
	"image/color"
	"weedcam/internal/dto"

	"gocv.io/x/gocv"
)

const (
	boxThickness  = 2
	textScale     = 0.9
	textThickness = 2
	textOffset    = 10 // Pixels between the box top edge and the label baseline
)

// Detector finds objects in an RGB image. *Model is the production implementation.
type Detector interface {
	Detect(img gocv.Mat) ([]dto.Detection, error)
}

// Annotator overlays detections onto frames.
type Annotator struct {
	detector Detector
	color    color.RGBA
}

// NewAnnotator creates an Annotator drawing in green.
func NewAnnotator(detector Detector) *Annotator {
	return &Annotator{
		detector: detector,
		color:    color.RGBA{R: 0, G: 255, B: 0, A: 0},
	}
}

// Annotate runs the detector on a BGR image and returns a copy of it with a
// rectangle and "label confidence" text drawn for every detection, in the
// order the detector reported them. The input is left untouched. On error the
// returned Mat is zero and must not be closed.
func (a *Annotator) Annotate(img gocv.Mat) (gocv.Mat, []dto.Detection, error) {
	if img.Empty() {
		return gocv.Mat{}, nil, fmt.Errorf("image is empty")
	}

	rgb := gocv.NewMat()
	defer rgb.Close()
	if err := gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB); err != nil {
		return gocv.Mat{}, nil, fmt.Errorf("failed to convert image to RGB: %w", err)
	}

	detections, err := a.detector.Detect(rgb)
	if err != nil {
		return gocv.Mat{}, nil, fmt.Errorf("detection failed: %w", err)
	}

	out := img.Clone()
	for _, detection := range detections {
		if err := a.draw(&out, detection); err != nil {
			out.Close()
			return gocv.Mat{}, nil, err
		}
	}

	return out, detections, nil
}

func (a *Annotator) draw(mat *gocv.Mat, detection dto.Detection) error {
	if err := gocv.Rectangle(mat, detection.Box, a.color, boxThickness); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}

	pt := image.Pt(detection.Box.Min.X, detection.Box.Min.Y-textOffset)
	if err := gocv.PutText(mat, Caption(detection), pt, gocv.FontHersheySimplex, textScale, a.color, textThickness); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}

// Caption is the text drawn above a detection box.
func Caption(detection dto.Detection) string {
	return fmt.Sprintf("%s %.2f", detection.Label, detection.Confidence)
}

// AnnotateJPEG decodes an encoded image, annotates it and re-encodes it as JPEG.
func (a *Annotator) AnnotateJPEG(raw []byte) ([]byte, []dto.Detection, error) {
	mat, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, nil, fmt.Errorf("decoded image is empty")
	}

	return a.AnnotateFrame(mat)
}

// AnnotateFrame annotates a captured frame and encodes the result as JPEG.
func (a *Annotator) AnnotateFrame(frame gocv.Mat) ([]byte, []dto.Detection, error) {
	annotated, detections, err := a.Annotate(frame)
	if err != nil {
		return nil, nil, err
	}
	defer annotated.Close()

	encoded, err := EncodeJPEG(annotated)
	if err != nil {
		return nil, nil, err
	}
	return encoded, detections, nil
}

// EncodeJPEG encodes a Mat to a JPEG byte slice owned by the caller.
func EncodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	encoded := make([]byte, buf.Len())
	copy(encoded, buf.GetBytes())
	return encoded, nil
}
