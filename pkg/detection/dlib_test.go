//go:build !nodlib

package detection

import (
	"testing"
)

func TestDlib_SolidFrame(t *testing.T) {
	modelPath := findModelPath(DefaultLandmarkModel)
	if modelPath == "" {
		t.Skip("dlib shape predictor not found, skipping test")
	}

	cfg := DefaultConfig()
	cfg.LandmarkModelPath = modelPath

	a, err := Load(cfg)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer a.Close()

	gray := solidGray(320, 240, 90)
	defer gray.Close()

	regions, err := a.Detect(gray)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(regions) != 0 {
		t.Errorf("Expected no faces in a flat frame, got %d", len(regions))
	}

	// The predictor always fits a full shape, even with no face in the box,
	// and the shape stays close to the box it was given
	box := Region{Left: 80, Top: 40, Right: 239, Bottom: 199}
	set, err := a.Landmarks(gray, box)
	if err != nil {
		t.Fatalf("Landmarks failed: %v", err)
	}
	margin := box.Width() / 2
	for i, p := range set {
		if p.X < box.Left-margin || p.X > box.Right+margin || p.Y < box.Top-margin || p.Y > box.Bottom+margin {
			t.Errorf("point %d at %v is far outside %+v", i, p, box)
		}
	}
}

func TestDlibPredictor_PointCount(t *testing.T) {
	modelPath := findModelPath(DefaultLandmarkModel)
	if modelPath == "" {
		t.Skip("dlib shape predictor not found, skipping test")
	}

	p, err := newDlibPredictor(modelPath)
	if err != nil {
		t.Fatalf("newDlibPredictor failed: %v", err)
	}
	defer p.Close()

	gray := solidGray(320, 240, 90)
	defer gray.Close()

	points, err := p.Predict(gray, Region{Left: 60, Top: 20, Right: 259, Bottom: 219})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(points) != NumLandmarks {
		t.Errorf("got %d points, want %d", len(points), NumLandmarks)
	}
}
