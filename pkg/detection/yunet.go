package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/teslashibe/go-facemark/internal/log"
	"github.com/teslashibe/go-facemark/pkg/debug"
	"gocv.io/x/gocv"
)

// YuNetDetector uses OpenCV's FaceDetectorYN for face detection
type YuNetDetector struct {
	detector gocv.FaceDetectorYN
	config   Config
	bgr      gocv.Mat // Reused 3-channel input; FaceDetectorYN rejects grayscale
}

// NewYuNet creates a new YuNet face detector using GoCV's built-in FaceDetectorYN
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	if err := requireModel(cfg.DetectorModelPath); err != nil {
		return nil, err
	}

	// Initial size is replaced per frame in Detect
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.DetectorModelPath,
		"",                                        // No config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight), // Initial input size
		float32(cfg.ConfidenceThresh),             // Score threshold
		0.3,                                       // NMS threshold
		5000,                                      // Top K
		int(gocv.NetBackendDefault),               // Backend
		int(gocv.NetTargetCPU),                    // Target
	)

	return &YuNetDetector{
		detector: detector,
		config:   cfg,
		bgr:      gocv.NewMat(),
	}, nil
}

// Detect finds faces in a grayscale frame
func (d *YuNetDetector) Detect(gray gocv.Mat) ([]Region, error) {
	if gray.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	gocv.CvtColor(gray, &d.bgr, gocv.ColorGrayToBGR)

	// Update detector input size to match image
	d.detector.SetInputSize(image.Pt(gray.Cols(), gray.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(d.bgr, &faces)

	// YuNet output format (15 columns):
	// 0-3: x, y, w, h (bounding box in pixels)
	// 4-13: 5 facial landmarks (x,y pairs)
	// 14: face score
	regions := make([]Region, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		x := float64(faces.GetFloatAt(r, 0))
		y := float64(faces.GetFloatAt(r, 1))
		w := float64(faces.GetFloatAt(r, 2))
		h := float64(faces.GetFloatAt(r, 3))

		left := int(math.Round(x))
		top := int(math.Round(y))
		regions = append(regions, Region{
			Left:   left,
			Top:    top,
			Right:  left + int(math.Round(w)) - 1,
			Bottom: top + int(math.Round(h)) - 1,
		})
	}

	if len(regions) > 0 {
		debug.FrameLog(log.Fields{"faces": len(regions)}, "yunet detections")
	}

	return regions, nil
}

// Close releases the detector resources
func (d *YuNetDetector) Close() error {
	d.detector.Close()
	return d.bgr.Close()
}
