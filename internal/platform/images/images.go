package images

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Resizer decodes an uploaded image, crops/scales it to the target dimensions
// and stores it as JPEG under Dir. The caller persists the returned filename
// only after the file is on disk, so a failed resize never leaves a record
// pointing at a missing file.
type Resizer struct {
	Dir     string
	Quality int
}

func NewResizer(dir string) *Resizer {
	return &Resizer{Dir: dir, Quality: 90}
}

func (rz *Resizer) Resize(src io.Reader, width, height int, filename string) (string, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	resized := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	if err := os.MkdirAll(rz.Dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(rz.Dir, filename)
	if err := imaging.Save(resized, path, imaging.JPEGQuality(rz.Quality)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return filename, nil
}

// Remove deletes a stored image; used to clean up when persistence fails after
// an upload succeeded.
func (rz *Resizer) Remove(filename string) error {
	if filename == "" {
		return nil
	}
	return os.Remove(filepath.Join(rz.Dir, filename))
}
