package dashboard

import (
	"errors"

	"github.com/spektr-org/tablero/engine"
)

// Page is everything one dashboard page shows for a given widget state.
type Page struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"` // markdown
	Widgets     []Widget  `json:"widgets"`
	Sections    []Section `json:"sections"`
}

// SectionKind says which payload a Section carries.
type SectionKind string

const (
	SectionTable  SectionKind = "table"
	SectionChart  SectionKind = "chart"
	SectionText   SectionKind = "text"
	SectionNotice SectionKind = "notice"
)

// Section is one heading plus exactly one payload.
type Section struct {
	ID      string              `json:"id"`
	Heading string              `json:"heading"`
	Kind    SectionKind         `json:"kind"`
	Table   *engine.TableData   `json:"table,omitempty"`
	Chart   *engine.ChartConfig `json:"chart,omitempty"`
	Text    string              `json:"text,omitempty"`
	HTML    string              `json:"html,omitempty"`
	Notice  *Notice             `json:"notice,omitempty"`
}

// Notice is an informational or warning message.
type Notice struct {
	Level string `json:"level"` // "info", "warning"
	Text  string `json:"text"`
}

// Section returns the section with the given id.
func (p *Page) Section(id string) (Section, bool) {
	for _, s := range p.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

func tableSection(id, heading string, table *engine.TableData) Section {
	return Section{ID: id, Heading: heading, Kind: SectionTable, Table: table}
}

func noticeSection(id, heading, level, text string) Section {
	return Section{ID: id, Heading: heading, Kind: SectionNotice, Notice: &Notice{Level: level, Text: text}}
}

// columnSection keeps the page going when an uploaded dataset lacks a column
// a section needs; any other error stops the page.
func columnSection(id, heading string, build func() (*engine.TableData, error)) (Section, error) {
	table, err := build()
	if errors.Is(err, engine.ErrUnknownColumn) || errors.Is(err, engine.ErrNoNumericColumns) {
		return noticeSection(id, heading, "warning", err.Error()), nil
	}
	if err != nil {
		return Section{}, err
	}
	return tableSection(id, heading, table), nil
}

// resultSection converts an engine result: a chart when there is one,
// otherwise the engine's explanatory reply.
func resultSection(id, heading string, res *engine.Result) Section {
	if res.Type == "chart" && res.ChartConfig != nil {
		return Section{ID: id, Heading: heading, Kind: SectionChart, Chart: res.ChartConfig}
	}
	return noticeSection(id, heading, "info", res.Reply)
}
