package vision

import (
	"bytes"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/teslashibe/go-facemark/pkg/detection"
	"github.com/teslashibe/go-facemark/pkg/overlay"
	"gocv.io/x/gocv"
)

// mockAnalyzer returns fixed regions and records landmark calls
type mockAnalyzer struct {
	mu            sync.Mutex
	regions       []detection.Region
	detectErr     error
	landmarkErr   error
	landmarkCalls int
	lastGrayChans int
}

func (m *mockAnalyzer) Detect(gray gocv.Mat) ([]detection.Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastGrayChans = gray.Channels()
	return m.regions, m.detectErr
}

func (m *mockAnalyzer) Landmarks(_ gocv.Mat, r detection.Region) (detection.LandmarkSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landmarkCalls++
	var set detection.LandmarkSet
	if m.landmarkErr != nil {
		return set, m.landmarkErr
	}
	for i := range set {
		set[i] = image.Pt((r.Left+r.Right)/2, (r.Top+r.Bottom)/2)
	}
	return set, nil
}

func testFrame(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(30, 60, 90, 0), 240, 320, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestProcessor_NoFaces(t *testing.T) {
	a := &mockAnalyzer{}
	p := NewProcessor(a)
	defer p.Close()

	frame := testFrame(t)
	res, err := p.Process(frame, overlay.DefaultOptions())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	defer res.Frame.Close()

	if res.Faces != 0 {
		t.Errorf("Faces: got %d, want 0", res.Faces)
	}
	if !bytes.Equal(res.Frame.ToBytes(), frame.ToBytes()) {
		t.Error("frame without faces should be unchanged")
	}
	if a.lastGrayChans != 1 {
		t.Errorf("analyzer received %d channels, want 1", a.lastGrayChans)
	}
}

func TestProcessor_LandmarksOnlyWhenPointsEnabled(t *testing.T) {
	tests := []struct {
		name      string
		opts      overlay.Options
		wantCalls int
	}{
		{name: "points on", opts: overlay.DefaultOptions(), wantCalls: 2},
		{name: "points off", opts: overlay.Options{DrawBoxes: true}, wantCalls: 0},
		{name: "everything off", opts: overlay.Options{}, wantCalls: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := &mockAnalyzer{regions: []detection.Region{
				{Left: 10, Top: 10, Right: 80, Bottom: 90},
				{Left: 150, Top: 40, Right: 230, Bottom: 130},
			}}
			p := NewProcessor(a)
			defer p.Close()

			res, err := p.Process(testFrame(t), tc.opts)
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			defer res.Frame.Close()

			if res.Faces != 2 {
				t.Errorf("Faces: got %d, want 2", res.Faces)
			}
			if a.landmarkCalls != tc.wantCalls {
				t.Errorf("landmark calls: got %d, want %d", a.landmarkCalls, tc.wantCalls)
			}
		})
	}
}

func TestProcessor_SkipsOutOfBoundsRegions(t *testing.T) {
	a := &mockAnalyzer{regions: []detection.Region{
		{Left: 10, Top: 10, Right: 80, Bottom: 90},
		{Left: 400, Top: 10, Right: 480, Bottom: 90},
	}}
	p := NewProcessor(a)
	defer p.Close()

	res, err := p.Process(testFrame(t), overlay.DefaultOptions())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	defer res.Frame.Close()

	if res.Faces != 1 {
		t.Errorf("Faces: got %d, want 1", res.Faces)
	}
	if a.landmarkCalls != 1 {
		t.Errorf("landmark calls: got %d, want 1", a.landmarkCalls)
	}
}

func TestProcessor_OutOfBoundsFromAnalyzer(t *testing.T) {
	a := &mockAnalyzer{
		regions:     []detection.Region{{Left: 10, Top: 10, Right: 80, Bottom: 90}},
		landmarkErr: detection.ErrRegionOutOfBounds,
	}
	p := NewProcessor(a)
	defer p.Close()

	frame := testFrame(t)
	res, err := p.Process(frame, overlay.DefaultOptions())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	defer res.Frame.Close()

	if res.Faces != 0 {
		t.Errorf("Faces: got %d, want 0", res.Faces)
	}
	if !bytes.Equal(res.Frame.ToBytes(), frame.ToBytes()) {
		t.Error("skipped region should leave no box")
	}
}

func TestProcessor_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		a    *mockAnalyzer
	}{
		{name: "detect", a: &mockAnalyzer{detectErr: boom}},
		{name: "landmarks", a: &mockAnalyzer{
			regions:     []detection.Region{{Left: 10, Top: 10, Right: 80, Bottom: 90}},
			landmarkErr: boom,
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProcessor(tc.a)
			defer p.Close()

			if _, err := p.Process(testFrame(t), overlay.DefaultOptions()); !errors.Is(err, boom) {
				t.Errorf("got %v, want wrapped boom", err)
			}
		})
	}
}

func TestProcessor_EmptyFrame(t *testing.T) {
	p := NewProcessor(&mockAnalyzer{})
	defer p.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := p.Process(empty, overlay.DefaultOptions()); err == nil {
		t.Error("expected error for empty frame")
	}
}
