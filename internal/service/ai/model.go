package ai

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"weedcam/internal/config"
	"weedcam/internal/dto"
	"weedcam/internal/logger"

	"gocv.io/x/gocv"
)

// Model holds the loaded detection network. It is created once at startup
// and shared by every request; forward passes are serialized because a
// gocv.Net must not be used from several goroutines at once.
type Model struct {
	net       gocv.Net
	meta      *Metadata
	modelPath string
	mu        sync.Mutex
	logger    *logger.Logger
}

// LoadModel reads the network and its metadata from the configured paths.
func LoadModel(cfg *config.Config, logger *logger.Logger) (*Model, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	meta, err := LoadMetadata(cfg.ModelMetadataPath)
	if err != nil {
		return nil, err
	}

	net, err := readNet(cfg.ModelPath, cfg.ModelConfigPath)
	if err != nil {
		return nil, err
	}

	m := &Model{
		net:       net,
		meta:      meta,
		modelPath: cfg.ModelPath,
		logger:    logger,
	}

	w, h := meta.InputSize()
	logger.Info("Detection model loaded from %s (%dx%d, %d classes, conf %.2f, iou %.2f)",
		cfg.ModelPath, w, h, len(meta.Names), meta.Confidence, meta.IoU)
	if len(meta.Names) == 0 {
		logger.Warning("Model metadata %s has no names, labels will fall back to class ids", cfg.ModelMetadataPath)
	}
	return m, nil
}

// readNet loads the network and sets backend/target preferences.
func readNet(modelPath, configPath string) (gocv.Net, error) {
	var net gocv.Net
	if strings.EqualFold(filepath.Ext(modelPath), ".onnx") {
		net = gocv.ReadNetFromONNX(modelPath)
	} else {
		net = gocv.ReadNet(modelPath, configPath)
	}

	if net.Empty() {
		return net, fmt.Errorf("failed to load network from %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return net, fmt.Errorf("failed to set preferable backend or target")
	}

	return net, nil
}

// Metadata returns the label table and thresholds the model was loaded with.
func (m *Model) Metadata() *Metadata {
	return m.meta
}

// Path returns the file the network was read from.
func (m *Model) Path() string {
	return m.modelPath
}

// Detect runs the network on an RGB image and returns detections in
// descending confidence order, after the model's own confidence filtering
// and per-class non-maximum suppression. The image is letterboxed into the
// network input so its aspect ratio is kept.
func (m *Model) Detect(img gocv.Mat) ([]dto.Detection, error) {
	if img.Empty() {
		return nil, fmt.Errorf("input image is empty")
	}

	w, h := m.meta.InputSize()
	params := blobParams(w, h)
	blob := gocv.BlobFromImageWithParams(img, params)
	defer blob.Close()

	candidates, err := m.forward(blob)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []dto.Detection{}, nil
	}

	size := image.Pt(img.Cols(), img.Rows())
	toImage := func(rects []image.Rectangle) []image.Rectangle {
		return params.BlobRectsToImageRects(rects, size)
	}
	return suppress(candidates, m.meta, toImage, image.Rectangle{Max: size}), nil
}

// blobParams letterboxes an image into a w x h input scaled to [0, 1].
func blobParams(w, h int) gocv.ImageToBlobParams {
	return gocv.NewImageToBlobParams(1.0/255.0, image.Pt(w, h), gocv.NewScalar(0, 0, 0, 0),
		false, gocv.MatTypeCV32F, gocv.DataLayoutNCHW, gocv.PaddingModeLetterbox, gocv.NewScalar(114, 114, 114, 0))
}

// forward runs one pass and decodes the output. The output Mat aliases the
// network's own buffer, so it is only read while the lock is held.
func (m *Model) forward(blob gocv.Mat) ([]candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.net.SetInput(blob, "")
	output := m.net.Forward("")
	defer output.Close()

	if output.Empty() {
		return nil, fmt.Errorf("network returned no output")
	}

	// Output: [batch, 4 + classes, anchors]
	sizes := output.Size()
	if len(sizes) != 3 || sizes[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	return decodeOutput(data, sizes[1], sizes[2], m.meta.Confidence), nil
}

// suppress applies per-class NMS to candidates in network-input space, maps
// the survivors to the source image with toImage and clips them to bounds.
// Boxes left empty by clipping are dropped.
func suppress(candidates []candidate, meta *Metadata, toImage func([]image.Rectangle) []image.Rectangle, bounds image.Rectangle) []dto.Detection {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	byClass := make(map[int][]int)
	for i, c := range candidates {
		byClass[c.ClassID] = append(byClass[c.ClassID], i)
	}

	keep := make([]bool, len(candidates))
	for _, members := range byClass {
		boxes := make([]image.Rectangle, len(members))
		scores := make([]float32, len(members))
		for j, idx := range members {
			boxes[j] = candidates[idx].rect()
			scores[j] = candidates[idx].Score
		}

		for _, j := range gocv.NMSBoxes(boxes, scores, meta.Confidence, meta.IoU) {
			keep[members[j]] = true
		}
	}

	var kept []int
	var rects []image.Rectangle
	for i, c := range candidates {
		if keep[i] {
			kept = append(kept, i)
			rects = append(rects, c.rect())
		}
	}
	if len(kept) == 0 {
		return []dto.Detection{}
	}
	rects = toImage(rects)

	detections := make([]dto.Detection, 0, len(kept))
	for j, i := range kept {
		box := rects[j].Intersect(bounds)
		if box.Empty() {
			continue
		}
		detections = append(detections, dto.Detection{
			Box:        box,
			ClassID:    candidates[i].ClassID,
			Label:      meta.Label(candidates[i].ClassID),
			Confidence: candidates[i].Score,
		})
	}
	return detections
}

// Close releases the network.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.net.Close()
}
