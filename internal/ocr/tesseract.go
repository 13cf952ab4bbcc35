package ocr

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
)

// TesseractEngine shells out to the tesseract binary.
type TesseractEngine struct {
	binary string
}

// NewTesseractEngine creates an engine using the tesseract binary on PATH.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{binary: "tesseract"}
}

// ExtractText writes the image to a temp file and runs tesseract over it.
func (t *TesseractEngine) ExtractText(ctx context.Context, img image.Image) (string, error) {
	tmp, err := os.CreateTemp("", "ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("ocr temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return "", fmt.Errorf("ocr image encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("ocr temp file: %w", err)
	}

	out, err := exec.CommandContext(ctx, t.binary, tmp.Name(), "stdout").Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w", err)
	}
	return string(out), nil
}
