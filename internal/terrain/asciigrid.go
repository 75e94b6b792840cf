package terrain

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/groundsight-data/groundsight/internal/monitoring"
)

// defaultNoData is written for NaN cells and recognized on read when a
// file omits its own NODATA_value header.
const defaultNoData = -9999.0

// ReadASCIIGrid parses an ESRI ASCII grid. Values run west to east,
// north to south. Both corner (xllcorner) and center (xllcenter)
// registered files are accepted; NODATA cells become NaN.
func ReadASCIIGrid(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	var (
		ncols, nrows       int
		xll, yll, cellsize float64
		nodata             = defaultNoData
		haveCols, haveRows bool
		haveX, haveY, haveCell bool
		centerRegistered   bool
	)

	// Header lines are "key value" pairs. The first token that is not a
	// known key starts the data block.
	var firstValue string
	for {
		tok, ok := next()
		if !ok {
			return nil, fmt.Errorf("terrain: truncated ascii grid header")
		}
		key := strings.ToLower(tok)
		isHeader := true
		switch key {
		case "ncols", "nrows", "xllcorner", "xllcenter", "yllcorner", "yllcenter", "cellsize", "nodata_value":
		default:
			isHeader = false
		}
		if !isHeader {
			firstValue = tok
			break
		}
		valTok, ok := next()
		if !ok {
			return nil, fmt.Errorf("terrain: header %q has no value", tok)
		}
		val, err := strconv.ParseFloat(valTok, 64)
		if err != nil {
			return nil, fmt.Errorf("terrain: bad %s value %q: %w", key, valTok, err)
		}
		switch key {
		case "ncols":
			ncols, haveCols = int(val), true
		case "nrows":
			nrows, haveRows = int(val), true
		case "xllcorner":
			xll, haveX = val, true
		case "xllcenter":
			xll, haveX, centerRegistered = val, true, true
		case "yllcorner":
			yll, haveY = val, true
		case "yllcenter":
			yll, haveY, centerRegistered = val, true, true
		case "cellsize":
			cellsize, haveCell = val, true
		case "nodata_value":
			nodata = val
		}
	}
	if !haveCols || !haveRows || !haveX || !haveY || !haveCell {
		return nil, fmt.Errorf("terrain: ascii grid header incomplete")
	}
	if ncols <= 0 || nrows <= 0 || cellsize <= 0 {
		return nil, fmt.Errorf("terrain: bad ascii grid dimensions %dx%d cell %g", ncols, nrows, cellsize)
	}
	if centerRegistered {
		xll -= cellsize / 2
		yll -= cellsize / 2
	}

	data := make([]float64, ncols*nrows)
	voids := 0
	for i := range data {
		tok := firstValue
		if i > 0 {
			var ok bool
			tok, ok = next()
			if !ok {
				return nil, fmt.Errorf("terrain: ascii grid truncated at value %d of %d", i, len(data))
			}
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("terrain: bad elevation %q at value %d: %w", tok, i, err)
		}
		if v == nodata {
			v = math.NaN()
			voids++
		}
		data[i] = v
	}
	if tok, ok := next(); ok {
		return nil, fmt.Errorf("terrain: trailing data %q after %d values", tok, len(data))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if voids > 0 {
		monitoring.Logf("terrain: ascii grid has %d NODATA cells of %d", voids, len(data))
	}

	northEdge := yll + float64(nrows)*cellsize
	return NewGrid(data, ncols, nrows, NorthUp(cellsize, xll, northEdge))
}

// WriteASCIIGrid renders the grid as an ESRI ASCII file. Only north-up
// grids with square cells can be represented; NaN cells are written as
// the NODATA value.
func WriteASCIIGrid(w io.Writer, g *Grid) error {
	t := g.Transform()
	if t.B != 0 || t.D != 0 {
		return fmt.Errorf("terrain: cannot write rotated grid as ascii")
	}
	if t.A <= 0 || t.A != -t.E {
		return fmt.Errorf("terrain: ascii grid needs square north-up cells, have dx=%g dy=%g", t.A, t.E)
	}

	bw := bufio.NewWriter(w)
	yll := t.F + t.E*float64(g.Height())
	fmt.Fprintf(bw, "ncols %d\n", g.Width())
	fmt.Fprintf(bw, "nrows %d\n", g.Height())
	fmt.Fprintf(bw, "xllcorner %.6f\n", t.C)
	fmt.Fprintf(bw, "yllcorner %.6f\n", yll)
	fmt.Fprintf(bw, "cellsize %.6f\n", t.A)
	fmt.Fprintf(bw, "NODATA_value %g\n", defaultNoData)

	for row := 0; row < g.Height(); row++ {
		for col := 0; col < g.Width(); col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			v := g.at(row, col)
			if math.IsNaN(v) {
				fmt.Fprintf(bw, "%g", defaultNoData)
				continue
			}
			fmt.Fprintf(bw, "%.3f", v)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// LoadASCIIGrid reads an ESRI ASCII grid from disk.
func LoadASCIIGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := ReadASCIIGrid(f)
	if err != nil {
		return nil, fmt.Errorf("terrain: reading %s: %w", path, err)
	}
	return g, nil
}

// SaveASCIIGrid writes the grid to disk as an ESRI ASCII file.
func SaveASCIIGrid(path string, g *Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteASCIIGrid(f, g); err != nil {
		return fmt.Errorf("terrain: writing %s: %w", path, err)
	}
	monitoring.Logf("terrain: wrote %dx%d grid to %s", g.Width(), g.Height(), path)
	return nil
}
