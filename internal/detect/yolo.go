// Package detect loads object detections from YOLO-format label
// datasets. Each label line is "class cx cy w h" with coordinates
// normalized to the image size; detections come out as pixel centers
// ready for georeferencing.
package detect

import (
	"bufio"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/groundsight-data/groundsight/internal/camera"
	"github.com/groundsight-data/groundsight/internal/monitoring"
)

// imageExtensions are the image types considered when pairing label
// files with their source frames.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp"}

// ListDataset scans a YOLO dataset directory and returns the sorted
// image filenames that have a matching label file. Both the flat
// layout (labels/ + images/) and everything-in-root are recognized.
func ListDataset(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("detect: dataset directory %q not found", dir)
	}

	labelsDir := filepath.Join(dir, "labels")
	if _, err := os.Stat(labelsDir); err != nil {
		labelsDir = dir
	}
	imagesDir := filepath.Join(dir, "images")
	if _, err := os.Stat(imagesDir); err != nil {
		imagesDir = dir
	}

	entries, err := os.ReadDir(labelsDir)
	if err != nil {
		return nil, fmt.Errorf("detect: reading labels dir: %w", err)
	}

	var available []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), ".txt")
		for _, ext := range imageExtensions {
			name := stem + ext
			if _, err := os.Stat(filepath.Join(imagesDir, name)); err == nil {
				available = append(available, name)
				break
			}
		}
	}
	sort.Strings(available)
	monitoring.Logf("detect: found %d image/label pairs in %s", len(available), dir)
	return available, nil
}

// ListLabels returns the sorted label file paths of a dataset,
// without requiring any imagery. The argument may be a single .txt
// file, or a directory scanned in the usual layout order: labels/,
// the train/valid/test splits, then the directory root. The first
// layout containing label files wins.
func ListLabels(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("detect: label source %q not found", dir)
	}
	if !info.IsDir() {
		if !strings.HasSuffix(dir, ".txt") {
			return nil, fmt.Errorf("detect: label file %q must end in .txt", dir)
		}
		return []string{dir}, nil
	}

	layouts := []string{
		filepath.Join(dir, "labels"),
		filepath.Join(dir, "train", "labels"),
		filepath.Join(dir, "valid", "labels"),
		filepath.Join(dir, "test", "labels"),
		dir,
	}
	for _, d := range layouts {
		entries, err := os.ReadDir(d)
		if err != nil {
			continue
		}
		var paths []string
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
				continue
			}
			paths = append(paths, filepath.Join(d, entry.Name()))
		}
		if len(paths) > 0 {
			sort.Strings(paths)
			return paths, nil
		}
	}
	return nil, fmt.Errorf("detect: no label files under %s", dir)
}

// FindLabel locates the label file for an image name, trying the
// common YOLO dataset layouts in order: labels/, images/, the
// train/valid/test splits, then the dataset root.
func FindLabel(dir, imageFilename string) (string, error) {
	stem := strings.TrimSuffix(imageFilename, filepath.Ext(imageFilename))
	labelName := stem + ".txt"
	candidates := []string{
		filepath.Join(dir, "labels", labelName),
		filepath.Join(dir, "images", labelName),
		filepath.Join(dir, "train", "labels", labelName),
		filepath.Join(dir, "valid", "labels", labelName),
		filepath.Join(dir, "test", "labels", labelName),
		filepath.Join(dir, labelName),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("detect: no label file for %q under %s", imageFilename, dir)
}

// findImage locates the image file paired with a label, trying the
// same layouts as FindLabel.
func findImage(dir, imageFilename string) (string, error) {
	stem := strings.TrimSuffix(imageFilename, filepath.Ext(imageFilename))
	dirs := []string{
		filepath.Join(dir, "images"),
		filepath.Join(dir, "train", "images"),
		filepath.Join(dir, "valid", "images"),
		filepath.Join(dir, "test", "images"),
		dir,
	}
	for _, d := range dirs {
		for _, ext := range imageExtensions {
			path := filepath.Join(d, stem+ext)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("detect: no image file for %q under %s", imageFilename, dir)
}

// imageSize reads just the dimensions of an image file.
func imageSize(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("detect: decoding %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Load finds the label/image pair for an image name, probes the image
// for its pixel size, and parses the detections.
func Load(dir, imageFilename string) ([]camera.Pixel, error) {
	labelPath, err := FindLabel(dir, imageFilename)
	if err != nil {
		return nil, err
	}
	imagePath, err := findImage(dir, imageFilename)
	if err != nil {
		return nil, err
	}
	w, h, err := imageSize(imagePath)
	if err != nil {
		return nil, err
	}
	return LoadFile(labelPath, w, h)
}

// LoadWithSize parses the label file for an image name using a known
// image size, for datasets that ship labels without their imagery.
func LoadWithSize(dir, imageFilename string, imgWidth, imgHeight int) ([]camera.Pixel, error) {
	labelPath, err := FindLabel(dir, imageFilename)
	if err != nil {
		return nil, err
	}
	return LoadFile(labelPath, imgWidth, imgHeight)
}

// LoadFile parses one label file directly using a known image size.
func LoadFile(path string, imgWidth, imgHeight int) ([]camera.Pixel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dets, err := ParseLabels(f, imgWidth, imgHeight)
	if err != nil {
		return nil, fmt.Errorf("detect: parsing %s: %w", path, err)
	}
	monitoring.Logf("detect: loaded %d detections from %s", len(dets), filepath.Base(path))
	return dets, nil
}

// ParseLabels reads YOLO label lines and converts the normalized box
// centers to integer pixel coordinates (truncated, matching the usual
// YOLO tooling). Lines with fewer than three fields are skipped;
// malformed numbers are an error.
func ParseLabels(r io.Reader, imgWidth, imgHeight int) ([]camera.Pixel, error) {
	if imgWidth <= 0 || imgHeight <= 0 {
		return nil, fmt.Errorf("detect: invalid image size %dx%d", imgWidth, imgHeight)
	}

	var dets []camera.Pixel
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		cx, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad x center %q: %w", line, fields[1], err)
		}
		cy, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad y center %q: %w", line, fields[2], err)
		}
		dets = append(dets, camera.Pixel{
			X: float64(int(cx * float64(imgWidth))),
			Y: float64(int(cy * float64(imgHeight))),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return dets, nil
}

// Select caps a detection list at limit entries, either the first
// entries in file order or a random sample without replacement. A
// limit <= 0 keeps everything. rng may be nil unless deterministic
// sampling is wanted.
func Select(dets []camera.Pixel, limit int, randomSample bool, rng *rand.Rand) []camera.Pixel {
	n := len(dets)
	if limit > 0 && limit < n {
		n = limit
	}
	if !randomSample {
		return dets[:n]
	}
	shuffled := make([]camera.Pixel, len(dets))
	copy(shuffled, dets)
	if rng != nil {
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	} else {
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	}
	return shuffled[:n]
}
