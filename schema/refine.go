package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ============================================================================
// SMART REFINE - Model-assisted schema enrichment
// ============================================================================
//
// After discovery produces a draft from heuristics, Refine optionally sends
// column metadata (names, roles, a few sample values) to a language model
// and merges back display names, descriptions, units, sort hints and
// hierarchies. Raw rows are never sent.
//
// The model cannot change column roles or keys, add columns, or remove them.
// ============================================================================

// Generator produces free text from a prompt. assistant.TextGenerator
// satisfies it for any configured provider.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrNilDraft is returned when Refine is called without a draft schema.
var ErrNilDraft = errors.New("draft schema is nil")

// Refine enriches a discovered schema with one model call.
// The draft is NOT mutated. On failure the draft is returned with the error.
func Refine(ctx context.Context, draft *Config, gen Generator, logger *zap.Logger) (*Config, error) {
	if draft == nil {
		return nil, ErrNilDraft
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	payload := buildRefinePayload(draft)
	prompt := buildRefinePrompt(payload)

	logger.Info("🧠 refining schema",
		zap.String("dataset", draft.Name),
		zap.Int("columns", len(payload.Columns)),
		zap.Int("prompt_bytes", len(prompt)))

	response, err := gen.Generate(ctx, prompt)
	if err != nil {
		logger.Warn("⚠️ schema refine call failed, keeping draft", zap.Error(err))
		return draft, fmt.Errorf("refine schema: %w", err)
	}

	enrichment, err := parseRefineResponse(response)
	if err != nil {
		logger.Warn("⚠️ schema refine reply unparseable, keeping draft", zap.Error(err))
		return draft, fmt.Errorf("refine schema: %w", err)
	}

	result := applyEnrichments(draft, enrichment, time.Now())

	logger.Info("✅ schema refined",
		zap.Int("dimensions", len(result.Dimensions)),
		zap.Int("measures", len(result.Measures)))

	return result, nil
}

// ============================================================================
// PAYLOAD BUILDER - What the model sees
// ============================================================================

type refinePayload struct {
	Columns  []refineColumn `json:"columns"`
	RowCount int            `json:"rowCount"`
	Skipped  []string       `json:"skippedColumns,omitempty"`
}

type refineColumn struct {
	Column      string   `json:"column"`
	Key         string   `json:"key"`
	Role        string   `json:"role"` // "dimension", "measure"
	Samples     []string `json:"samples,omitempty"`
	Cardinality string   `json:"cardinality,omitempty"`
	IsTemporal  bool     `json:"isTemporal,omitempty"`
	IsFlag      bool     `json:"isFlag,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Unit        string   `json:"unit,omitempty"`
}

func buildRefinePayload(draft *Config) refinePayload {
	p := refinePayload{RowCount: draft.RowCount}

	for _, d := range draft.Dimensions {
		p.Columns = append(p.Columns, refineColumn{
			Column:      d.Column,
			Key:         d.Key,
			Role:        "dimension",
			Samples:     limitSamples(d.SampleValues, 5),
			Cardinality: d.CardinalityHint,
			IsTemporal:  d.IsTemporal,
			IsFlag:      d.IsFlag,
			Parent:      d.Parent,
		})
	}

	for _, m := range draft.Measures {
		if m.IsSynthetic {
			continue
		}
		p.Columns = append(p.Columns, refineColumn{
			Column: m.Column,
			Key:    m.Key,
			Role:   "measure",
			Unit:   m.Unit,
		})
	}

	for _, s := range draft.SkippedColumns {
		p.Skipped = append(p.Skipped, s.Column)
	}
	return p
}

// ============================================================================
// PROMPT BUILDER
// ============================================================================

func buildRefinePrompt(payload refinePayload) string {
	payloadJSON, _ := json.MarshalIndent(payload, "", "  ")

	return fmt.Sprintf(`Eres un analista de datos revisando la estructura de un conjunto de datos. Con base en los metadatos de columnas, sugiere enriquecimientos semánticos en español.

METADATOS:
%s

INSTRUCCIONES:
1. Sugiere un nombre corto para el conjunto de datos (2 a 5 palabras)
2. Escribe una descripción de una línea
3. Para cada columna (por "key"):
   - displayName: etiqueta legible (p. ej. "ESTADO_NOTICIA" → "Estado de la Noticia")
   - description: qué representa la columna
   - unit: solo medidas - "count", "years", "hours", "percent", "currency", "points" o ""
   - sortHint: solo dimensiones ordinales, orden natural (p. ej. "INDAGACION > JUICIO > EJECUCION")
   - defaultAggregation: solo medidas - "sum", "avg", "count", "max" o "min"
4. Sugiere jerarquías padre → hijo que falten

Responde SOLO con JSON válido (sin markdown):
{
  "datasetName": "...",
  "datasetDescription": "...",
  "enrichments": [
    {"key": "...", "displayName": "...", "description": "...", "unit": "", "sortHint": "", "defaultAggregation": ""}
  ],
  "suggestedHierarchies": [
    {"parent": "parent_key", "child": "child_key"}
  ]
}`, string(payloadJSON))
}

// ============================================================================
// RESPONSE TYPES + PARSER
// ============================================================================

type refineEnrichment struct {
	DatasetName          string                `json:"datasetName"`
	DatasetDescription   string                `json:"datasetDescription"`
	Enrichments          []columnEnrichment    `json:"enrichments"`
	SuggestedHierarchies []hierarchySuggestion `json:"suggestedHierarchies"`
}

type columnEnrichment struct {
	Key                string `json:"key"`
	DisplayName        string `json:"displayName"`
	Description        string `json:"description"`
	Unit               string `json:"unit"`
	SortHint           string `json:"sortHint"`
	DefaultAggregation string `json:"defaultAggregation"`
}

type hierarchySuggestion struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

func parseRefineResponse(response string) (*refineEnrichment, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var result refineEnrichment
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("parse refine response: %w (response: %.300s)", err, response)
	}
	return &result, nil
}

// ============================================================================
// APPLY ENRICHMENTS
// ============================================================================

// applyEnrichments returns a copy of draft with model suggestions merged in.
// Hierarchy suggestions only fill empty parents and must name known dimensions.
func applyEnrichments(draft *Config, enrichment *refineEnrichment, now time.Time) *Config {
	result := deepCopyConfig(draft)

	if enrichment.DatasetName != "" {
		result.Name = enrichment.DatasetName
	}
	if enrichment.DatasetDescription != "" {
		result.Description = enrichment.DatasetDescription
	}

	byKey := make(map[string]columnEnrichment, len(enrichment.Enrichments))
	for _, e := range enrichment.Enrichments {
		byKey[e.Key] = e
	}

	for i := range result.Dimensions {
		d := &result.Dimensions[i]
		e, ok := byKey[d.Key]
		if !ok {
			continue
		}
		d.DisplayName = firstNonEmpty(e.DisplayName, d.DisplayName)
		d.Description = firstNonEmpty(e.Description, d.Description)
		d.SortHint = firstNonEmpty(e.SortHint, d.SortHint)
	}

	for i := range result.Measures {
		m := &result.Measures[i]
		e, ok := byKey[m.Key]
		if !ok {
			continue
		}
		m.DisplayName = firstNonEmpty(e.DisplayName, m.DisplayName)
		m.Description = firstNonEmpty(e.Description, m.Description)
		m.Unit = firstNonEmpty(e.Unit, m.Unit)
		if isValidAggregation(e.DefaultAggregation) {
			m.DefaultAggregation = e.DefaultAggregation
		}
	}

	for _, h := range enrichment.SuggestedHierarchies {
		if _, ok := result.Dimension(h.Parent); !ok || h.Parent == h.Child {
			continue
		}
		for i := range result.Dimensions {
			if result.Dimensions[i].Key == h.Child && result.Dimensions[i].Parent == "" {
				result.Dimensions[i].Parent = h.Parent
			}
		}
	}

	result.RefinedAt = now.Format(time.RFC3339)
	return result
}

// ============================================================================
// HELPERS
// ============================================================================

func deepCopyConfig(src *Config) *Config {
	dst := *src

	dst.Dimensions = make([]DimensionMeta, len(src.Dimensions))
	for i, d := range src.Dimensions {
		dst.Dimensions[i] = d
		dst.Dimensions[i].SampleValues = append([]string(nil), d.SampleValues...)
	}

	dst.Measures = make([]MeasureMeta, len(src.Measures))
	for i, m := range src.Measures {
		dst.Measures[i] = m
		dst.Measures[i].Aggregations = append([]string(nil), m.Aggregations...)
	}

	dst.SkippedColumns = append([]SkippedColumn(nil), src.SkippedColumns...)
	return &dst
}

func limitSamples(vals []string, max int) []string {
	if len(vals) <= max {
		return vals
	}
	return vals[:max]
}

func isValidAggregation(agg string) bool {
	switch agg {
	case "sum", "avg", "count", "max", "min":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
