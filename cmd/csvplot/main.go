// csvplot renders a static PNG chart from a delimited file, the offline
// companion to the live viewer: point it at a session log (or any CSV with a
// timestamp first column) and it plots the selected numeric columns.
//
// The separator is sniffed from the header line among comma, semicolon and
// tab; override with -sep. By default the first column is the X axis and all
// other columns are plotted.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func main() {
	xCol := flag.String("x", "", "X-axis column (default: first column)")
	yCols := flag.String("y", "", "Comma separated Y columns (default: all numeric except X)")
	sep := flag.String("sep", "", "Field separator (auto by default)")
	title := flag.String("title", "", "Plot title (default: file name)")
	out := flag.String("out", "", "Output PNG path (default: <input>.png)")
	noGrid := flag.Bool("no-grid", false, "Disable grid")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file.csv\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(1)
	}
	path := flag.Arg(0)

	header, rows, err := readTable(path, *sep)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no data rows")
		os.Exit(1)
	}

	xIdx := 0
	if *xCol != "" {
		xIdx = indexOf(header, *xCol)
		if xIdx < 0 {
			fmt.Fprintf(os.Stderr, "column %q not found in header %v\n", *xCol, header)
			os.Exit(1)
		}
	}

	var selected []int
	if *yCols != "" {
		for _, name := range strings.Split(*yCols, ",") {
			name = strings.TrimSpace(name)
			idx := indexOf(header, name)
			if idx < 0 {
				fmt.Fprintf(os.Stderr, "column %q not found in header %v\n", name, header)
				os.Exit(1)
			}
			selected = append(selected, idx)
		}
	} else {
		for i := range header {
			if i != xIdx && isNumericColumn(rows, i) {
				selected = append(selected, i)
			}
		}
	}
	if len(selected) == 0 {
		fmt.Fprintln(os.Stderr, "no numeric columns to plot")
		os.Exit(1)
	}

	p := plot.New()
	p.Title.Text = *title
	if p.Title.Text == "" {
		p.Title.Text = filepath.Base(path)
	}
	p.X.Label.Text = header[xIdx]
	p.Y.Label.Text = "value"
	if !*noGrid {
		p.Add(plotter.NewGrid())
	}

	var args []interface{}
	for _, idx := range selected {
		args = append(args, header[idx], seriesPoints(rows, xIdx, idx))
	}
	if err := plotutil.AddLinePoints(p, args...); err != nil {
		fmt.Fprintln(os.Stderr, "plot:", err)
		os.Exit(1)
	}
	if len(selected) == 1 {
		p.Legend.Top = false
	}

	dest := *out
	if dest == "" {
		dest = strings.TrimSuffix(path, filepath.Ext(path)) + ".png"
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, dest); err != nil {
		fmt.Fprintln(os.Stderr, "save:", err)
		os.Exit(1)
	}
	fmt.Printf("saved %s (%d series, %d rows)\n", dest, len(selected), len(rows))
}

// readTable loads the whole delimited file. When sep is empty the separator
// is sniffed from the header line.
func readTable(path, sep string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	comma := []rune(sep)
	if len(comma) == 0 {
		head, _ := br.Peek(4096)
		comma = []rune{sniffSep(string(head))}
	}

	r := csv.NewReader(br)
	r.Comma = comma[0]
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("read %s: empty file", path)
	}
	return all[0], all[1:], nil
}

// sniffSep picks the separator with the most occurrences in the first line.
func sniffSep(head string) rune {
	if i := strings.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best := ','
	bestCount := -1
	for _, c := range []rune{',', ';', '\t'} {
		n := strings.Count(head, string(c))
		if n > bestCount {
			best = c
			bestCount = n
		}
	}
	return best
}

// seriesPoints collects the plottable (x, y) pairs for one column. Rows too
// short for either column are skipped (a log cut mid-write leaves a truncated
// final row), as are cells that don't parse.
func seriesPoints(rows [][]string, xIdx, yIdx int) plotter.XYs {
	pts := make(plotter.XYs, 0, len(rows))
	for _, row := range rows {
		if xIdx >= len(row) || yIdx >= len(row) {
			continue
		}
		x, xerr := strconv.ParseFloat(row[xIdx], 64)
		y, yerr := strconv.ParseFloat(row[yIdx], 64)
		if xerr != nil || yerr != nil || math.IsNaN(y) {
			continue
		}
		pts = append(pts, plotter.XY{X: x, Y: y})
	}
	return pts
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// isNumericColumn reports whether at least one cell of the column parses as a
// number (empty cells are NaN placeholders and don't disqualify).
func isNumericColumn(rows [][]string, idx int) bool {
	for _, row := range rows {
		if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
			continue
		}
		_, err := strconv.ParseFloat(row[idx], 64)
		return err == nil
	}
	return false
}
