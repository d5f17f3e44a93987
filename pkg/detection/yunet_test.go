package detection

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

// TestYuNetNew tests detector initialization
func TestYuNetNew(t *testing.T) {
	modelPath := findModelPath("face_detection_yunet.onnx")
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	cfg := YuNetConfig()
	cfg.DetectorModelPath = modelPath

	detector, err := NewYuNet(cfg)
	if err != nil {
		t.Fatalf("NewYuNet failed: %v", err)
	}
	defer detector.Close()
}

// TestYuNetNewInvalidPath tests error handling for missing model
func TestYuNetNewInvalidPath(t *testing.T) {
	cfg := YuNetConfig()
	cfg.DetectorModelPath = "/nonexistent/path/model.onnx"

	_, err := NewYuNet(cfg)
	if !errors.Is(err, ErrModelFileMissing) {
		t.Errorf("Expected ErrModelFileMissing, got %v", err)
	}
}

// TestYuNetDetect_SolidImage tests detection on a flat frame (no faces)
func TestYuNetDetect_SolidImage(t *testing.T) {
	modelPath := findModelPath("face_detection_yunet.onnx")
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	cfg := YuNetConfig()
	cfg.DetectorModelPath = modelPath

	detector, err := NewYuNet(cfg)
	if err != nil {
		t.Fatalf("NewYuNet failed: %v", err)
	}
	defer detector.Close()

	gray := solidGray(320, 240, 128)
	defer gray.Close()

	regions, err := detector.Detect(gray)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(regions) > 0 {
		t.Errorf("Expected no detections in solid image, got %d", len(regions))
	}
}

// TestYuNetDetect_EmptyImage tests detection on an empty Mat
func TestYuNetDetect_EmptyImage(t *testing.T) {
	modelPath := findModelPath("face_detection_yunet.onnx")
	if modelPath == "" {
		t.Skip("YuNet model not found, skipping test")
	}

	cfg := YuNetConfig()
	cfg.DetectorModelPath = modelPath

	detector, err := NewYuNet(cfg)
	if err != nil {
		t.Fatalf("NewYuNet failed: %v", err)
	}
	defer detector.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := detector.Detect(empty); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestHaarNewInvalidPath(t *testing.T) {
	_, err := NewHaar("/nonexistent/haarcascade_frontalface_default.xml")
	if !errors.Is(err, ErrModelFileMissing) {
		t.Errorf("Expected ErrModelFileMissing, got %v", err)
	}
}

func TestHaarDetect_SolidImage(t *testing.T) {
	modelPath := findModelPath("haarcascade_frontalface_default.xml")
	if modelPath == "" {
		t.Skip("Haar cascade not found, skipping test")
	}

	detector, err := NewHaar(modelPath)
	if err != nil {
		t.Fatalf("NewHaar failed: %v", err)
	}
	defer detector.Close()

	gray := solidGray(320, 240, 40)
	defer gray.Close()

	regions, err := detector.Detect(gray)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(regions) > 0 {
		t.Errorf("Expected no detections in solid image, got %d", len(regions))
	}
}

// Helper functions

func findModelPath(name string) string {
	// Try different relative paths from test location
	paths := []string{
		filepath.Join("..", "..", "models", name),
		filepath.Join("models", name),
	}
	if dir := os.Getenv("FACEMARK_MODEL_DIR"); dir != "" {
		paths = append([]string{filepath.Join(dir, name)}, paths...)
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return abs
		}
	}
	return ""
}

func solidGray(width, height int, level uint8) gocv.Mat {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = level
	}
	mat, err := gocv.ImageGrayToMatGray(img)
	if err != nil {
		panic(err)
	}
	return mat
}
