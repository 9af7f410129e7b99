package dashboard

import (
	"fmt"

	"github.com/spektr-org/tablero/engine"
)

// ============================================================================
// STUDENTS EXPLORER
// ============================================================================
// Fixed sections: head(5), tail(3), info, describe, ciudad+edad, edad > 18.
// Menu: Primeras filas → head(5) | Estadísticas → describe |
//       Filtrar por edad → edad >= "Edad mínima" (0..7, default 2)
// ============================================================================

const (
	StudentsMenuKey   = "menu"
	StudentsMinAgeKey = "edad_min"

	MenuFirstRows = "Primeras filas"
	MenuStats     = "Estadísticas"
	MenuByAge     = "Filtrar por edad"

	ageColumn  = "edad"
	cityColumn = "ciudad"
	adultAge   = 18
)

// StudentsWidgets returns the students page controls.
func StudentsWidgets() []Widget {
	return []Widget{
		{
			Key:     StudentsMenuKey,
			Label:   "¿Qué quieres explorar?",
			Type:    WidgetSelect,
			Options: []string{MenuFirstRows, MenuStats, MenuByAge},
			Default: Value{Text: MenuFirstRows},
		},
		{
			Key:     StudentsMinAgeKey,
			Label:   "Edad mínima",
			Type:    WidgetSlider,
			Min:     0,
			Max:     7,
			Default: Value{Number: 2},
		},
	}
}

// StudentsPage builds the students explorer for a frame and widget state.
func StudentsPage(frame *engine.Frame, st State) (*Page, error) {
	page := &Page{
		Name:  "students",
		Title: "Explorador de estudiantes",
	}

	page.Sections = append(page.Sections,
		tableSection("head", "Primeras 5 filas del dataset", frame.Head(5).ToTable("")),
		tableSection("tail", "Últimas 3 filas del dataset", frame.Tail(3).ToTable("")),
		tableSection("info", "Información del dataset", engine.Info(frame).ToTable("")),
	)

	fixed := []struct {
		id, heading string
		build       func() (*engine.TableData, error)
	}{
		{"describe", "Estadísticas descriptivas", func() (*engine.TableData, error) { return describe(frame) }},
		{"columns", "Selección de columnas: Ciudad y Edad", func() (*engine.TableData, error) {
			sel, err := frame.Select(cityColumn, ageColumn)
			if err != nil {
				return nil, err
			}
			return sel.ToTable(""), nil
		}},
		{"adults", fmt.Sprintf("Estudiantes mayores de %d años", adultAge), func() (*engine.TableData, error) {
			return filterAge(frame, engine.OpGreater, adultAge)
		}},
	}
	for _, f := range fixed {
		sec, err := columnSection(f.id, f.heading, f.build)
		if err != nil {
			return nil, err
		}
		page.Sections = append(page.Sections, sec)
	}

	widgets := StudentsWidgets()
	choice := st.Text(StudentsMenuKey)

	var menu Section
	var err error
	switch choice {
	case MenuStats:
		menu, err = columnSection("menu", MenuStats, func() (*engine.TableData, error) { return describe(frame) })
		widgets = widgets[:1]
	case MenuByAge:
		minAge := st.Number(StudentsMinAgeKey)
		menu, err = columnSection("menu", fmt.Sprintf("Edad >= %s", engine.FormatInt(int(minAge))), func() (*engine.TableData, error) {
			return filterAge(frame, engine.OpGreaterEqual, minAge)
		})
	default:
		menu = tableSection("menu", MenuFirstRows, frame.Head(5).ToTable(""))
		widgets = widgets[:1]
	}
	if err != nil {
		return nil, err
	}
	page.Sections = append(page.Sections, menu)
	page.Widgets = resolve(widgets, st)

	return page, nil
}

func describe(frame *engine.Frame) (*engine.TableData, error) {
	stats, err := engine.Describe(frame)
	if err != nil {
		return nil, err
	}
	return engine.DescribeTable("", stats), nil
}

func filterAge(frame *engine.Frame, op string, threshold float64) (*engine.TableData, error) {
	if !frame.HasColumn(ageColumn) {
		return nil, fmt.Errorf("filter %q: %w", ageColumn, engine.ErrUnknownColumn)
	}
	view, err := engine.FilterMeasure(frame, ageColumn, op, threshold)
	if err != nil {
		return nil, err
	}
	return engine.Materialize(view).ToTable(""), nil
}
