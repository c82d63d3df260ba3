package bhtsne

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestWriteCSV_Format(t *testing.T) {
	y := mat.NewDense(3, 2, []float64{
		0.5, -1,
		1e-7, 2,
		3, 4,
	})
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, y, []string{"a", "b", "c"}))
	assert.Equal(t, "0.5,-1,a \n1e-07,2,b \n3,4,c \n", buf.String())
}

func TestWriteCSV_SkipsMissingLabels(t *testing.T) {
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, y, []string{"x", "", "z"}))
	assert.Equal(t, "1,x \n3,z \n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSV_WriteError(t *testing.T) {
	y := mat.NewDense(1, 1, []float64{1})
	err := WriteCSV(failingWriter{}, y, []string{"a"})
	assert.ErrorIs(t, err, ErrPersist)
	assert.Contains(t, err.Error(), "disk full")
}

func TestSaveCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedding.csv")
	y := mat.NewDense(2, 3, []float64{0.125, -2, 3.5, 1, 0, -0.25})
	require.NoError(t, SaveCSV(path, y, []string{"first", "second"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	points, labels, err := ReadCSV(f, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, labels)
	assert.Equal(t, [][]float64{{0.125, -2, 3.5}, {1, 0, -0.25}}, points)
}

func TestSaveCSV_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.csv")
	err := SaveCSV(path, mat.NewDense(1, 1, nil), []string{"a"})
	assert.ErrorIs(t, err, ErrPersist)
}

func TestReadCSV_Unlabeled(t *testing.T) {
	in := "# header comment\n1,2,3\n4, 5,6\n"
	points, labels, err := ReadCSV(strings.NewReader(in), false)
	require.NoError(t, err)
	assert.Nil(t, labels)
	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, points)
}

func TestReadCSV_Errors(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("1,2\n3,x\n"), false)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = ReadCSV(strings.NewReader("label\n"), true)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = ReadCSV(strings.NewReader("1,2\n3\n"), false)
	assert.ErrorIs(t, err, ErrPersist)
}
