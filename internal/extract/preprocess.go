package extract

import (
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// preprocessImage writes a cleaned-up copy of the image for recognition:
// grayscale, a mild contrast boost, and a light sharpen. Returns the path of
// the processed file and a cleanup func for its temp dir.
func preprocessImage(imgPath string) (string, func(), error) {
	img, err := imaging.Open(imgPath)
	if err != nil {
		return "", nil, err
	}

	img = imaging.Grayscale(img)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 0.8)

	tmpDir, err := os.MkdirTemp("", "tw-ocr-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	out := filepath.Join(tmpDir, "processed.png")
	if err := imaging.Save(img, out); err != nil {
		cleanup()
		return "", nil, err
	}
	return out, cleanup, nil
}
