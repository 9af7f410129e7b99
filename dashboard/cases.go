package dashboard

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spektr-org/tablero/engine"
)

// ============================================================================
// CRIMINAL-CASES ANALYSIS
// ============================================================================
// Sidebar filters (strict conjunction):
//   estado, etapa, delito, condena, municipio  → multiselect, default = all
//   procesos                                   → TOTAL_PROCESOS range
// Summary: TOTAL_PROCESOS summed over the filtered view.
// Charts over the filtered view:
//   estado-condena  count by ESTADO_NOTICIA × CONDENA, grouped bars
//   etapas-estado   stage flags melted, SI/NO only, faceted by estado
//   etapas-pie      ETAPA value counts, donut
// ============================================================================

const (
	ColEstado     = "ESTADO_NOTICIA"
	ColEtapa      = "ETAPA"
	ColDelito     = "DELITO"
	ColCondena    = "CONDENA"
	ColMunicipio  = "MUNICIPIO"
	ColProcesos   = "TOTAL_PROCESOS"
	ColCaptura    = "CAPTURA"
	ColImputacion = "IMPUTACION"
	ColAcusacion  = "ACUSACION"

	CasesFullKey     = "full"
	CasesProcesosKey = "procesos"
	CasesSummaryID   = "summary"

	ChartEstadoCondena = "estado-condena"
	ChartEtapasEstado  = "etapas-estado"
	ChartEtapasPie     = "etapas-pie"

	meltVar   = "Etapa"
	meltValue = "Resultado"
)

// ErrUnknownChart is returned for a chart name outside CaseCharts.
var ErrUnknownChart = errors.New("unknown chart")

// StageColumns are the yes/no stage flags melted by the stage chart.
var StageColumns = []string{ColCaptura, ColImputacion, ColAcusacion, ColCondena}

// CaseCharts lists the chart names in page order.
func CaseCharts() []string {
	return []string{ChartEstadoCondena, ChartEtapasEstado, ChartEtapasPie}
}

// caseFilter binds a multiselect key to its column.
type caseFilter struct {
	key, column, label string
}

var caseFilters = []caseFilter{
	{"estado", ColEstado, "Selecciona Estado de la Noticia"},
	{"etapa", ColEtapa, "Selecciona Etapa"},
	{"delito", ColDelito, "Selecciona Delitos"},
	{"condena", ColCondena, "¿Hubo Condena?"},
	{"municipio", ColMunicipio, "Selecciona Municipio"},
}

const casesDescription = `En este trabajo, se emplearon los conocimientos adquiridos hasta el momento para crear un DataFrame
y se usan gráficas para visualizar los resultados descargados de una base de datos libre de Colombia.

Primeros pasos de Dataframes`

// CasesWidgets derives the cases page controls from the data: multiselect
// options are the sorted non-null values, the range spans TOTAL_PROCESOS.
func CasesWidgets(frame engine.RecordView) []Widget {
	widgets := []Widget{{
		Key:   CasesFullKey,
		Label: "Mostrar datos completos",
		Type:  WidgetCheckbox,
	}}

	for _, f := range caseFilters {
		options := engine.SortedUniqueValues(frame, f.column)
		widgets = append(widgets, Widget{
			Key:     f.key,
			Label:   f.label,
			Type:    WidgetMultiSelect,
			Options: options,
			Sidebar: true,
			Default: Value{Choices: options},
		})
	}

	if lo, hi, ok := engine.MeasureBounds(frame, ColProcesos); ok {
		widgets = append(widgets, Widget{
			Key:     CasesProcesosKey,
			Label:   "Selecciona el rango de Total de Procesos",
			Type:    WidgetRangeSlider,
			Min:     float64(lo),
			Max:     float64(hi),
			Sidebar: true,
			Default: Value{Low: float64(lo), High: float64(hi)},
		})
	}
	return widgets
}

// CasesFilters turns widget state into the strict filter every chart uses.
func CasesFilters(widgets []Widget, st State) engine.Filters {
	filters := engine.Filters{
		Dimensions: make(map[string][]string),
		Strict:     true,
	}
	byKey := make(map[string]Widget, len(widgets))
	for _, w := range widgets {
		byKey[w.Key] = w
	}
	// A multiselect with no options has no column behind it.
	for _, f := range caseFilters {
		if w, ok := byKey[f.key]; ok && len(w.Options) > 0 {
			filters.Dimensions[f.column] = st.Choices(f.key)
		}
	}
	if _, ok := byKey[CasesProcesosKey]; ok {
		lo, hi := st.Range(CasesProcesosKey)
		filters.Ranges = map[string]engine.Range{ColProcesos: {Min: lo, Max: hi}}
	}
	return filters
}

// CasesPage builds the criminal-cases analysis for a frame and widget state.
func CasesPage(frame *engine.Frame, widgets []Widget, st State, logger *zap.Logger) (*Page, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	page := &Page{
		Name:        "cases",
		Title:       "Analización de Datos",
		Description: casesDescription,
		Widgets:     resolve(widgets, st),
	}

	if st.Checked(CasesFullKey) {
		page.Sections = append(page.Sections, tableSection("full", "Datos completos", frame.ToTable("")))
	}

	view := engine.ApplyFilters(frame, CasesFilters(widgets, st))
	logger.Debug("🔧 cases filtered", zap.Int("kept", view.Len()), zap.Int("from", frame.Len()))

	if frame.HasColumn(ColProcesos) {
		res, err := engine.Execute(engine.NormalizeQuerySpec(summarySpec()), view, engine.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		page.Sections = append(page.Sections, summarySection(res))
	}

	headings := map[string]string{
		ChartEstadoCondena: "📊 Procesos por Estado y Condena",
		ChartEtapasEstado:  "🔍 Etapas Judiciales por Estado de la Noticia",
		ChartEtapasPie:     "🥧 Distribución de Procesos por Etapa",
	}
	for _, name := range CaseCharts() {
		res, err := caseChart(name, view, logger)
		if errors.Is(err, engine.ErrUnknownColumn) {
			page.Sections = append(page.Sections, noticeSection(name, headings[name], "warning", err.Error()))
			continue
		}
		if err != nil {
			return nil, err
		}
		page.Sections = append(page.Sections, resultSection(name, headings[name], res))
	}
	return page, nil
}

// CasesChart computes a single chart of the cases page.
func CasesChart(frame *engine.Frame, widgets []Widget, st State, name string, logger *zap.Logger) (*engine.ChartConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	view := engine.ApplyFilters(frame, CasesFilters(widgets, st))
	res, err := caseChart(name, view, logger)
	if err != nil {
		return nil, err
	}
	if res.ChartConfig == nil {
		return &engine.ChartConfig{Title: res.Title}, nil
	}
	return res.ChartConfig, nil
}

// CasesData returns the filtered records every chart is computed from.
func CasesData(frame *engine.Frame, widgets []Widget, st State) *engine.TableData {
	view := engine.ApplyFilters(frame, CasesFilters(widgets, st))
	return engine.Materialize(view).ToTable("Datos filtrados")
}

func caseChart(name string, view engine.RecordView, logger *zap.Logger) (*engine.Result, error) {
	switch name {
	case ChartEstadoCondena:
		return engine.Execute(engine.NormalizeQuerySpec(estadoCondenaSpec()), view, engine.WithLogger(logger))

	case ChartEtapasEstado:
		long, err := engine.Melt(view, []string{ColEstado}, StageColumns, meltVar, meltValue)
		if err != nil {
			return nil, err
		}
		return engine.Execute(engine.NormalizeQuerySpec(etapasEstadoSpec()), long, engine.WithLogger(logger))

	case ChartEtapasPie:
		return engine.Execute(engine.NormalizeQuerySpec(etapasPieSpec()), view, engine.WithLogger(logger))
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChart, name)
}

func estadoCondenaSpec() engine.QuerySpec {
	return engine.QuerySpec{
		Intent:      "chart",
		Visualize:   "bar",
		Aggregation: "count",
		GroupBy:     []string{ColEstado, ColCondena},
		SortBy:      "alpha_asc",
		Title:       "Cantidad de Procesos por Estado y Condena",
		Labels: engine.Labels{
			ColEstado:  "Estado de la Noticia",
			ColCondena: "Condena",
			"value":    "Número de Procesos",
		},
	}
}

func etapasEstadoSpec() engine.QuerySpec {
	return engine.QuerySpec{
		Intent:      "chart",
		Visualize:   "bar",
		Aggregation: "count",
		Filters: engine.Filters{
			Dimensions: map[string][]string{meltValue: {"SI", "NO"}},
			Strict:     true,
		},
		Facet:   ColEstado,
		GroupBy: []string{meltVar, meltValue},
		SortBy:  "alpha_asc",
		Title:   "Procesos por Etapa Judicial según Estado de la Noticia",
		Labels: engine.Labels{
			meltValue: "Resultado de la Etapa",
			"value":   "Número de Procesos",
		},
	}
}

func etapasPieSpec() engine.QuerySpec {
	return engine.QuerySpec{
		Intent:      "chart",
		Visualize:   "pie",
		Aggregation: "count",
		GroupBy:     []string{ColEtapa},
		SortBy:      "value_desc",
		Hole:        0.3,
		Title:       "Distribución de Procesos por Etapa Judicial",
	}
}

func summarySpec() engine.QuerySpec {
	return engine.QuerySpec{
		Intent:      "text",
		Visualize:   "text",
		Aggregation: "sum",
		Measure:     ColProcesos,
		Title:       "Resumen",
	}
}

// summarySection prints the total, or the engine's reply when nothing matched.
func summarySection(res *engine.Result) Section {
	const heading = "📌 Resumen"
	if res.TextData == nil {
		return noticeSection(CasesSummaryID, heading, "info", res.Reply)
	}
	text := fmt.Sprintf("%s procesos en %s noticias seleccionadas.",
		res.TextData.Value, engine.FormatInt(res.TextData.Count))
	return Section{ID: CasesSummaryID, Heading: heading, Kind: SectionText, Text: text}
}
