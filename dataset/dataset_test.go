package dataset

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spektr-org/tablero/engine"
	"github.com/spektr-org/tablero/metrics"
)

// ============================================================================
// FIXTURES
// ============================================================================

const studentsCSV = "\ufeff nombre ,edad,ciudad\n" +
	"Ana,17,Bogotá\n" +
	"Luis,21,Medellín\n" +
	"Sara,19\n" +
	"Tomás,,Bogotá,extra\n"

const casesCSV = "ESTADO_NOTICIA,ETAPA,DELITO,CONDENA,MUNICIPIO,CAPTURA,IMPUTACION,ACUSACION,TOTAL_PROCESOS\n" +
	"activo ,juicio,hurto,si,medellin,si,si,no,10\n" +
	"inactivo,indagacion,estafa,,cali,no,no,no,n/a\n" +
	"Activo,Ejecucion,Hurto,No,Cali,si,si,si,1.200\n"

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// ============================================================================
// LOADERS
// ============================================================================

func TestParseCSV(t *testing.T) {
	frame, skipped, err := ParseCSV(strings.NewReader(studentsCSV), "students")
	require.NoError(t, err)

	assert.Equal(t, 0, skipped)
	assert.Equal(t, "students", frame.Name)
	assert.Equal(t, []string{"nombre", "edad", "ciudad"}, frame.Columns, "BOM and header spaces stripped")
	require.Equal(t, 4, frame.Len())
	assert.Equal(t, []string{"Sara", "19", ""}, frame.Rows[2], "short rows padded")
	assert.Equal(t, []string{"Tomás", "", "Bogotá"}, frame.Rows[3], "long rows truncated")
}

func TestParseCSVSkipsMalformedRows(t *testing.T) {
	data := "a,b\n1,2\n3,\"x\"y\n5,6\n"
	frame, skipped, err := ParseCSV(strings.NewReader(data), "t")
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, frame.Len())
	assert.Equal(t, "5", frame.Rows[1][0])
}

func TestParseCSVEmpty(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader(""), "t")
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestLoadByExtension(t *testing.T) {
	path := writeTemp(t, "estudiantes.csv", studentsCSV)
	frame, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "estudiantes", frame.Name)

	_, err = Load(writeTemp(t, "datos.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestXLSXRoundTrip(t *testing.T) {
	frame, _, err := ParseCSV(strings.NewReader(studentsCSV), "students")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "", frame.ToTable("Estudiantes")))

	back, err := ParseXLSX(bytes.NewReader(buf.Bytes()), "students", "")
	require.NoError(t, err)
	assert.Equal(t, frame.Columns, back.Columns)
	require.Equal(t, frame.Len(), back.Len())
	assert.Equal(t, "Ana", back.Rows[0][0])
	assert.Equal(t, "17", back.Rows[0][1])
	assert.Equal(t, "", back.Rows[3][1])

	_, err = ParseXLSX(bytes.NewReader(buf.Bytes()), "students", "NoExiste")
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	table := &engine.TableData{
		Columns: []engine.Column{{Label: "Etapa"}, {Label: "Total"}},
		Rows:    [][]string{{"JUICIO", "1,200"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, table))
	assert.Equal(t, "Etapa,Total\nJUICIO,\"1,200\"\n", buf.String())
}

// ============================================================================
// CLEANER
// ============================================================================

func TestCasesCleaner(t *testing.T) {
	frame, _, err := ParseCSV(strings.NewReader(casesCSV), "cases")
	require.NoError(t, err)

	cleaned, err := CasesCleaner.Apply(frame)
	require.NoError(t, err)

	assert.Equal(t, "ACTIVO", cleaned.Cell(0, "ESTADO_NOTICIA"))
	assert.Equal(t, "EJECUCION", cleaned.Cell(2, "ETAPA"))
	assert.Equal(t, "", cleaned.Cell(1, "CONDENA"), "nulls stay null")
	assert.Equal(t, "", cleaned.Cell(1, "TOTAL_PROCESOS"), "non-numeric coerced to null")
	assert.Equal(t, "1.2", cleaned.Cell(2, "TOTAL_PROCESOS"))

	assert.Equal(t, "activo ", frame.Cell(0, "ESTADO_NOTICIA"), "input untouched")
}

func TestCleanerMissingNumericColumn(t *testing.T) {
	frame := engine.NewFrame("x", []string{"ETAPA"}, [][]string{{"juicio"}})
	_, err := CasesCleaner.Apply(frame)
	assert.ErrorIs(t, err, engine.ErrUnknownColumn)
	assert.True(t, Cleaner{}.IsZero())
	assert.False(t, CasesCleaner.IsZero())
}

// ============================================================================
// REGISTRY
// ============================================================================

func TestRegistryLoadAll(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := metrics.New()
	reg := NewRegistry(zap.New(core), m)

	err := reg.LoadAll(context.Background(), []Source{
		{Name: "students", Path: writeTemp(t, "estudiantes.csv", studentsCSV)},
		{Name: "cases", Path: writeTemp(t, "procesos.csv", casesCSV), Cleaner: CasesCleaner},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"cases", "students"}, reg.Names())

	cases, err := reg.Get("cases")
	require.NoError(t, err)
	assert.Equal(t, "cases", cases.Frame.Name)
	assert.Equal(t, "ACTIVO", cases.Frame.Cell(0, "ESTADO_NOTICIA"))
	require.NotNil(t, cases.Schema)
	assert.Equal(t, "cases", cases.Schema.Name)

	assert.Equal(t, 2, logs.FilterMessage("📂 dataset loaded").Len())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DatasetRows.WithLabelValues("cases")))
}

func TestRegistryLoadAllFailure(t *testing.T) {
	reg := NewRegistry(nil, nil)
	err := reg.LoadAll(context.Background(), []Source{
		{Name: "students", Path: filepath.Join(t.TempDir(), "missing.csv")},
	})
	assert.Error(t, err)
	assert.Empty(t, reg.Names())
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := NewRegistry(nil, nil)
	_, err := reg.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownDataset)
}

func TestRegistryImportReplaces(t *testing.T) {
	reg := NewRegistry(nil, nil)
	frame, _, err := ParseCSV(strings.NewReader(casesCSV), "cases")
	require.NoError(t, err)
	_, err = reg.Register("cases", CasesCleaner, frame)
	require.NoError(t, err)

	before, _ := reg.Get("cases")

	upload := "ESTADO_NOTICIA,ETAPA,TOTAL_PROCESOS\nactivo,juicio,4\n\"bad\"x,juicio,1\n"
	entry, err := reg.Import("cases", "nuevo.csv", strings.NewReader(upload))
	require.NoError(t, err)
	assert.Equal(t, "nuevo.csv", entry.Origin)
	assert.Equal(t, 1, entry.Skipped)
	assert.Equal(t, 1, entry.Frame.Len())
	assert.Equal(t, "JUICIO", entry.Frame.Cell(0, "ETAPA"), "upload cleaned with dataset rules")

	assert.Equal(t, 3, before.Frame.Len(), "readers keep their entry")

	_, err = reg.Import("cases", "sin_total.csv", strings.NewReader("ETAPA\njuicio\n"))
	assert.ErrorIs(t, err, engine.ErrUnknownColumn)

	_, err = reg.Import("otro", "x.csv", strings.NewReader(upload))
	assert.ErrorIs(t, err, ErrUnknownDataset)

	_, err = reg.Replace("otro", "memory", frame)
	assert.ErrorIs(t, err, ErrUnknownDataset)
}
