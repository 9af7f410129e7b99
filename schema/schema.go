package schema

// ============================================================================
// SCHEMA - Describes the shape of a dataset for pages and the CLI
// ============================================================================
// Auto-discovered from a CSV or a loaded table, optionally refined by a
// language model. Keys are snake_case; Column keeps the original header so
// callers can go back to the engine's column names.
// ============================================================================

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	RowCount    int    `json:"rowCount" yaml:"rowCount"`

	Dimensions []DimensionMeta `json:"dimensions" yaml:"dimensions"`
	Measures   []MeasureMeta   `json:"measures" yaml:"measures"`

	// Auto-discovery metadata
	DiscoveredFrom string `json:"discoveredFrom,omitempty" yaml:"discoveredFrom,omitempty"`
	DiscoveredAt   string `json:"discoveredAt,omitempty" yaml:"discoveredAt,omitempty"`
	RefinedAt      string `json:"refinedAt,omitempty" yaml:"refinedAt,omitempty"`

	// Columns skipped during auto-discovery
	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty" yaml:"skippedColumns,omitempty"`
}

// DimensionMeta describes a string field used for grouping/filtering.
type DimensionMeta struct {
	Key             string   `json:"key" yaml:"key"`
	Column          string   `json:"column" yaml:"column"`
	DisplayName     string   `json:"displayName" yaml:"displayName"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	SampleValues    []string `json:"sampleValues" yaml:"sampleValues"`
	Groupable       bool     `json:"groupable" yaml:"groupable"`
	Filterable      bool     `json:"filterable" yaml:"filterable"`
	Parent          string   `json:"parent,omitempty" yaml:"parent,omitempty"` // Parent dimension key for hierarchies
	IsTemporal      bool     `json:"isTemporal,omitempty" yaml:"isTemporal,omitempty"`
	TemporalFormat  string   `json:"temporalFormat,omitempty" yaml:"temporalFormat,omitempty"`
	IsFlag          bool     `json:"isFlag,omitempty" yaml:"isFlag,omitempty"`                   // yes/no style values
	CardinalityHint string   `json:"cardinalityHint,omitempty" yaml:"cardinalityHint,omitempty"` // "low", "medium", "high"
	SortHint        string   `json:"sortHint,omitempty" yaml:"sortHint,omitempty"`
}

// MeasureMeta describes a numeric field used for aggregation.
type MeasureMeta struct {
	Key                string   `json:"key" yaml:"key"`
	Column             string   `json:"column,omitempty" yaml:"column,omitempty"`
	DisplayName        string   `json:"displayName" yaml:"displayName"`
	Description        string   `json:"description,omitempty" yaml:"description,omitempty"`
	Unit               string   `json:"unit,omitempty" yaml:"unit,omitempty"` // "count", "years", "hours", "percent", "currency"
	IsSynthetic        bool     `json:"isSynthetic,omitempty" yaml:"isSynthetic,omitempty"`
	Aggregations       []string `json:"aggregations,omitempty" yaml:"aggregations,omitempty"`
	DefaultAggregation string   `json:"defaultAggregation,omitempty" yaml:"defaultAggregation,omitempty"`
}

// SkippedColumn records why a column was excluded during auto-discovery.
type SkippedColumn struct {
	Column      string `json:"column" yaml:"column"`
	Reason      string `json:"reason" yaml:"reason"`
	Recoverable bool   `json:"recoverable" yaml:"recoverable"` // Can be restored with WithRecover
}

// GetDefaultMeasure returns the first real measure's column, or
// "record_count" when the dataset has none.
func (c Config) GetDefaultMeasure() string {
	for _, m := range c.Measures {
		if !m.IsSynthetic {
			return m.Column
		}
	}
	return "record_count"
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}

// Dimension looks a dimension up by key or by original column name.
func (c Config) Dimension(key string) (DimensionMeta, bool) {
	for _, d := range c.Dimensions {
		if d.Key == key || d.Column == key {
			return d, true
		}
	}
	return DimensionMeta{}, false
}

// Measure looks a measure up by key or by original column name.
func (c Config) Measure(key string) (MeasureMeta, bool) {
	for _, m := range c.Measures {
		if m.Key == key || (m.Column != "" && m.Column == key) {
			return m, true
		}
	}
	return MeasureMeta{}, false
}
