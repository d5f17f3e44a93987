package vision

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-facemark/internal/log"
	"github.com/teslashibe/go-facemark/pkg/debug"
	"github.com/teslashibe/go-facemark/pkg/detection"
	"github.com/teslashibe/go-facemark/pkg/overlay"
	"gocv.io/x/gocv"
)

// Analyzer finds faces and their landmarks in grayscale frames.
// *detection.Adapter satisfies it.
type Analyzer interface {
	Detect(gray gocv.Mat) ([]detection.Region, error)
	Landmarks(gray gocv.Mat, r detection.Region) (detection.LandmarkSet, error)
}

// Result is one processed frame
type Result struct {
	Frame gocv.Mat // Annotated copy, owned by the caller
	Faces int      // Regions drawn on Frame
}

// Processor runs detect, landmarks and render for one frame at a time.
// It is not safe for concurrent use; each capture loop owns one.
type Processor struct {
	analyzer Analyzer
	gray     gocv.Mat
}

// NewProcessor creates a processor backed by analyzer
func NewProcessor(analyzer Analyzer) *Processor {
	return &Processor{
		analyzer: analyzer,
		gray:     gocv.NewMat(),
	}
}

// Process annotates frame according to opts. The input frame is left
// untouched. Regions that fall entirely outside the frame are skipped.
func (p *Processor) Process(frame gocv.Mat, opts overlay.Options) (Result, error) {
	if frame.Empty() {
		return Result{}, fmt.Errorf("vision: empty frame")
	}

	gocv.CvtColor(frame, &p.gray, gocv.ColorBGRToGray)

	regions, err := p.analyzer.Detect(p.gray)
	if err != nil {
		return Result{}, fmt.Errorf("detect: %w", err)
	}

	faces := make([]detection.Face, 0, len(regions))
	for _, r := range regions {
		if !r.Overlaps(frame.Cols(), frame.Rows()) {
			debug.FrameLog(log.Fields{"region": r}, "skipping region outside frame")
			continue
		}

		debug.FrameLog(log.Fields{
			"left":   r.Left,
			"top":    r.Top,
			"width":  r.Width(),
			"height": r.Height(),
		}, "face detected")

		face := detection.Face{Region: r}
		if opts.DrawPoints {
			set, err := p.analyzer.Landmarks(p.gray, r)
			if errors.Is(err, detection.ErrRegionOutOfBounds) {
				continue
			}
			if err != nil {
				return Result{}, fmt.Errorf("landmarks: %w", err)
			}
			face.Landmarks = &set
		}
		faces = append(faces, face)
	}

	debug.FrameLog(log.Fields{"faces": len(faces)}, "frame processed")

	return Result{
		Frame: overlay.Render(frame, faces, opts),
		Faces: len(faces),
	}, nil
}

// Close releases the scratch buffers
func (p *Processor) Close() error {
	return p.gray.Close()
}
