package bhtsne

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// WriteCSV writes one line per labeled row of y: the coordinates joined by
// commas, then a comma, the label and a trailing space. Rows past the end of
// labels and rows with an empty label are skipped.
func WriteCSV(w io.Writer, y mat.Matrix, labels []string) error {
	bw := bufio.NewWriter(w)
	r, c := y.Dims()
	fields := make([]string, c)
	for i := 0; i < r && i < len(labels); i++ {
		if labels[i] == "" {
			continue
		}
		for j := range fields {
			fields[j] = strconv.FormatFloat(y.At(i, j), 'g', -1, 64)
		}
		if _, err := fmt.Fprintf(bw, "%s,%s \n", strings.Join(fields, ","), labels[i]); err != nil {
			return fmt.Errorf("bhtsne: %w: %w", ErrPersist, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("bhtsne: %w: %w", ErrPersist, err)
	}
	return nil
}

// SaveCSV writes y to path with WriteCSV, truncating any existing file.
func SaveCSV(path string, y mat.Matrix, labels []string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("bhtsne: %w: %w", ErrPersist, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("bhtsne: %w: %w", ErrPersist, cerr)
		}
	}()
	return WriteCSV(f, y, labels)
}

// ReadCSV parses comma-separated points. When labeled is true the last
// column of every record is returned as the point's label (surrounding
// spaces trimmed), so files written by WriteCSV read back unchanged.
// Lines starting with '#' are ignored.
func ReadCSV(r io.Reader, labeled bool) ([][]float64, []string, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var (
		points [][]float64
		labels []string
	)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("bhtsne: %w: %w", ErrPersist, err)
		}

		fields := rec
		if labeled {
			if len(rec) < 2 {
				return nil, nil, fmt.Errorf("bhtsne: %w: record %d has no coordinates before its label", ErrInvalidInput, line)
			}
			fields = rec[:len(rec)-1]
			labels = append(labels, strings.TrimSpace(rec[len(rec)-1]))
		}
		point := make([]float64, len(fields))
		for j, f := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("bhtsne: %w: record %d column %d: %w", ErrInvalidInput, line, j+1, err)
			}
			point[j] = v
		}
		points = append(points, point)
	}
	return points, labels, nil
}
