package dto

import "image"

// Detection is a single object found by the model in one image.
type Detection struct {
	Box        image.Rectangle
	ClassID    int
	Label      string
	Confidence float32
}
