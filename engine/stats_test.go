package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferKind(t *testing.T) {
	f := NewFrame("k",
		[]string{"ints", "floats", "gappy", "flags", "text", "empty"},
		[][]string{
			{"1", "1.5", "3", "True", "a", ""},
			{"2", "2", "", "false", "b", ""},
		})

	assert.Equal(t, KindInt, inferKind(f, "ints"))
	assert.Equal(t, KindFloat, inferKind(f, "floats"))
	assert.Equal(t, KindFloat, inferKind(f, "gappy"), "ints with nulls widen to float")
	assert.Equal(t, KindBool, inferKind(f, "flags"))
	assert.Equal(t, KindObject, inferKind(f, "text"))
	assert.Equal(t, KindFloat, inferKind(f, "empty"))
	assert.Equal(t, KindObject, inferKind(f, "missing"))
}

func TestInfo(t *testing.T) {
	info := Info(studentsFrame())

	assert.Equal(t, 6, info.Rows)
	require.Len(t, info.Columns, 3)
	assert.Equal(t, ColumnInfo{Name: "nombre", NonNull: 6, Dtype: KindObject}, info.Columns[0])
	assert.Equal(t, ColumnInfo{Name: "edad", NonNull: 5, Dtype: KindFloat}, info.Columns[1])
	assert.Equal(t, ColumnInfo{Name: "ciudad", NonNull: 5, Dtype: KindObject}, info.Columns[2])
	assert.Positive(t, info.MemoryBytes)

	table := info.ToTable("Información")
	assert.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"1", "edad", "5", "float64"}, table.Rows[1])
	assert.Equal(t, "6 filas, 3 columnas", table.Summary.Label)
}

func TestDescribe(t *testing.T) {
	stats, err := Describe(studentsFrame())
	require.NoError(t, err)
	require.Len(t, stats, 1)

	s := stats[0]
	assert.Equal(t, "edad", s.Column)
	assert.Equal(t, 5, s.Count)
	assert.InDelta(t, 19.6, s.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(12.8), s.Std, 1e-9)
	assert.Equal(t, 16.0, s.Min)
	assert.Equal(t, 17.0, s.Q25)
	assert.Equal(t, 19.0, s.Q50)
	assert.Equal(t, 21.0, s.Q75)
	assert.Equal(t, 25.0, s.Max)

	table := DescribeTable("Estadísticas", stats)
	require.Len(t, table.Rows, 8)
	assert.Equal(t, []string{"count", "5"}, table.Rows[0])
	assert.Equal(t, []string{"std", "3.58"}, table.Rows[2])
}

func TestDescribeSingleValueStdIsNaN(t *testing.T) {
	stats, err := Describe(NewFrame("one", []string{"n"}, [][]string{{"4"}}))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(stats[0].Std))
	assert.Equal(t, "NaN", DescribeTable("", stats).Rows[2][1])
}

func TestDescribeNoNumericColumns(t *testing.T) {
	_, err := Describe(NewFrame("t", []string{"a"}, [][]string{{"x"}}))
	assert.ErrorIs(t, err, ErrNoNumericColumns)
}

func TestQuantileInterpolates(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	assert.Equal(t, 1.75, quantile(sorted, 0.25))
	assert.Equal(t, 2.5, quantile(sorted, 0.5))
	assert.Equal(t, 3.25, quantile(sorted, 0.75))
}
