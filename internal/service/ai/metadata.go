package ai

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfidence is the score below which the model drops a candidate.
	DefaultConfidence = 0.25
	// DefaultIoU is the overlap above which the model suppresses a weaker box of the same class.
	DefaultIoU = 0.7
	// DefaultInputSize is the square network input used when metadata omits imgsz.
	DefaultInputSize = 640
)

// Metadata describes an exported detection model: its label table, input
// size and the thresholds baked into its post-processing.
type Metadata struct {
	Description string    `yaml:"description"`
	Task        string    `yaml:"task"`
	ImageSize   ImageSize `yaml:"imgsz"`
	Names       Names     `yaml:"names"`
	Confidence  float32   `yaml:"conf"`
	IoU         float32   `yaml:"iou"`
}

// Names maps class ids to label names. Both the mapping form
// ({0: weed}) and the list form ([weed]) are accepted.
type Names map[int]string

func (n *Names) UnmarshalYAML(value *yaml.Node) error {
	out := make(Names)
	switch value.Kind {
	case yaml.MappingNode:
		var m map[int]string
		if err := value.Decode(&m); err != nil {
			return fmt.Errorf("failed to decode names mapping: %w", err)
		}
		for k, v := range m {
			out[k] = v
		}
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("failed to decode names list: %w", err)
		}
		for i, v := range list {
			out[i] = v
		}
	default:
		return fmt.Errorf("names: unsupported yaml node kind %d", value.Kind)
	}
	*n = out
	return nil
}

// Sorted returns the label names ordered by class id.
func (n Names) Sorted() []string {
	ids := make([]int, 0, len(n))
	for id := range n {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		labels = append(labels, n[id])
	}
	return labels
}

// ImageSize is the network input as [height, width]; a single number means square.
type ImageSize []int

func (s *ImageSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var size int
		if err := value.Decode(&size); err != nil {
			return fmt.Errorf("failed to decode imgsz: %w", err)
		}
		*s = ImageSize{size, size}
		return nil
	}

	var sizes []int
	if err := value.Decode(&sizes); err != nil {
		return fmt.Errorf("failed to decode imgsz: %w", err)
	}
	*s = sizes
	return nil
}

// LoadMetadata reads the model metadata file and fills in defaults.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if err := meta.normalize(); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *Metadata) normalize() error {
	if m.Task != "" && m.Task != "detect" {
		return fmt.Errorf("unsupported model task %q", m.Task)
	}
	if m.Confidence <= 0 {
		m.Confidence = DefaultConfidence
	}
	if m.IoU <= 0 {
		m.IoU = DefaultIoU
	}

	switch len(m.ImageSize) {
	case 0:
		m.ImageSize = ImageSize{DefaultInputSize, DefaultInputSize}
	case 1:
		m.ImageSize = ImageSize{m.ImageSize[0], m.ImageSize[0]}
	}
	if m.ImageSize[0] <= 0 || m.ImageSize[1] <= 0 {
		return fmt.Errorf("invalid imgsz %v", []int(m.ImageSize))
	}

	if m.Names == nil {
		m.Names = Names{}
	}
	return nil
}

// InputSize returns the network input width and height.
func (m *Metadata) InputSize() (width, height int) {
	return m.ImageSize[1], m.ImageSize[0]
}

// Label returns the display name for a class id.
func (m *Metadata) Label(classID int) string {
	if label, exists := m.Names[classID]; exists {
		return label
	}
	return fmt.Sprintf("class_%d", classID)
}
