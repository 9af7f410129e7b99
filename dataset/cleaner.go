package dataset

import (
	"fmt"

	"github.com/spektr-org/tablero/engine"
)

// Cleaner lists the casts applied right after a dataset is loaded.
type Cleaner struct {
	Upper   []string // upper-cased and trimmed; missing columns ignored
	Numeric []string // non-numeric cells become null; missing columns are an error
}

// CasesCleaner is the cleaning applied to the criminal-cases dataset.
var CasesCleaner = Cleaner{
	Upper: []string{
		"ESTADO_NOTICIA", "ETAPA", "DELITO", "CONDENA", "MUNICIPIO",
		"CAPTURA", "IMPUTACION", "ACUSACION",
	},
	Numeric: []string{"TOTAL_PROCESOS"},
}

// Apply returns a cleaned copy of frame. The input is left untouched.
func (c Cleaner) Apply(frame *engine.Frame) (*engine.Frame, error) {
	out := frame.Clone()
	out.Normalize(c.Upper...)
	for _, column := range c.Numeric {
		if err := out.CoerceNumeric(column); err != nil {
			return nil, fmt.Errorf("clean %s: %w", frame.Name, err)
		}
	}
	return out, nil
}

// IsZero reports whether the cleaner does nothing.
func (c Cleaner) IsZero() bool {
	return len(c.Upper) == 0 && len(c.Numeric) == 0
}
