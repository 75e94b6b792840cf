package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/groundsight-data/groundsight/internal/simulate"
)

// csvHeader is the column layout of the point export. One row per
// georeferenced detection, in pose order.
var csvHeader = []string{
	"point_index",
	"pixel_x", "pixel_y",
	"true_x", "true_y", "true_z",
	"planar_x", "planar_y", "planar_z",
	"error_2d_m",
	"camera_x", "camera_y", "camera_z",
	"waypoint_index",
	"source_file",
}

// CSVWriter wraps csv.Writer with methods for point result output.
type CSVWriter struct {
	w *csv.Writer
	n int
}

// NewCSVWriter creates a CSVWriter emitting to the given writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the column header row.
func (c *CSVWriter) WriteHeader() error {
	return c.w.Write(csvHeader)
}

// WritePoint writes a single point result row. Rows are numbered in
// the order they are written, starting at zero.
func (c *CSVWriter) WritePoint(p simulate.PointResult) error {
	row := []string{
		fmt.Sprintf("%d", c.n),
		fmt.Sprintf("%.3f", p.Pixel.X),
		fmt.Sprintf("%.3f", p.Pixel.Y),
		fmt.Sprintf("%.3f", p.True.X),
		fmt.Sprintf("%.3f", p.True.Y),
		fmt.Sprintf("%.3f", p.True.Z),
		fmt.Sprintf("%.3f", p.Planar.X),
		fmt.Sprintf("%.3f", p.Planar.Y),
		fmt.Sprintf("%.3f", p.Planar.Z),
		fmt.Sprintf("%.3f", p.ErrorM),
		fmt.Sprintf("%.3f", p.CameraPos.X),
		fmt.Sprintf("%.3f", p.CameraPos.Y),
		fmt.Sprintf("%.3f", p.CameraPos.Z),
		fmt.Sprintf("%d", p.WaypointIndex),
		p.SourceFile,
	}
	c.n++
	return c.w.Write(row)
}

// Flush writes buffered rows to the underlying writer and reports any
// write error the csv layer swallowed along the way.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// WriteCSV emits the full point export for a run.
func WriteCSV(w io.Writer, points []simulate.PointResult) error {
	cw := NewCSVWriter(w)
	if err := cw.WriteHeader(); err != nil {
		return fmt.Errorf("report: write csv header: %w", err)
	}
	for _, p := range points {
		if err := cw.WritePoint(p); err != nil {
			return fmt.Errorf("report: write csv row %d: %w", cw.n-1, err)
		}
	}
	return cw.Flush()
}
