package detection

import (
	"fmt"

	"gocv.io/x/gocv"
)

// HaarDetector uses an OpenCV cascade classifier such as
// haarcascade_frontalface_default.xml.
type HaarDetector struct {
	classifier gocv.CascadeClassifier
}

// NewHaar loads the cascade XML at path.
func NewHaar(path string) (*HaarDetector, error) {
	if err := requireModel(path); err != nil {
		return nil, err
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade from %s", path)
	}
	return &HaarDetector{classifier: classifier}, nil
}

// Detect finds faces in a grayscale frame
func (d *HaarDetector) Detect(gray gocv.Mat) ([]Region, error) {
	if gray.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	rects := d.classifier.DetectMultiScale(gray)
	regions := make([]Region, 0, len(rects))
	for _, r := range rects {
		regions = append(regions, RegionFromRect(r))
	}
	return regions, nil
}

// Close releases the classifier
func (d *HaarDetector) Close() error {
	return d.classifier.Close()
}
