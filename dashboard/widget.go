// Package dashboard turns widget state and a record table into page
// sections: tables, charts, text and notices.
package dashboard

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ============================================================================
// WIDGETS - Interactive controls and their resolved values
// ============================================================================
// select        ?key=Option
// multiselect   ?key=A&key=B          (present but empty → nothing selected)
// slider        ?key=12
// range_slider  ?key=3,40
// checkbox      ?key | ?key=on | ?key=true
// text_area     ?key=free text
// ============================================================================

// ErrInvalidWidget is returned when a query value cannot be read for its widget.
var ErrInvalidWidget = errors.New("invalid widget value")

// WidgetType names the kind of control.
type WidgetType string

const (
	WidgetSelect      WidgetType = "select"
	WidgetMultiSelect WidgetType = "multiselect"
	WidgetSlider      WidgetType = "slider"
	WidgetRangeSlider WidgetType = "range_slider"
	WidgetCheckbox    WidgetType = "checkbox"
	WidgetTextArea    WidgetType = "text_area"
)

// Widget is one control of a page.
type Widget struct {
	Key     string     `json:"key"`
	Label   string     `json:"label"`
	Type    WidgetType `json:"type"`
	Options []string   `json:"options,omitempty"`
	Min     float64    `json:"min"`
	Max     float64    `json:"max"`
	Sidebar bool       `json:"sidebar,omitempty"`
	Default Value      `json:"default"`
	Value   Value      `json:"value"`
}

// Value holds whichever field matches the widget type.
type Value struct {
	Text    string   `json:"text,omitempty"`
	Choices []string `json:"choices,omitempty"`
	Number  float64  `json:"number,omitempty"`
	Low     float64  `json:"low,omitempty"`
	High    float64  `json:"high,omitempty"`
	Checked bool     `json:"checked,omitempty"`
}

// State is the set of current widget values of a page.
type State struct {
	values map[string]Value
}

// ParseState resolves every widget's value from q. Missing keys fall back to
// the widget default; numbers outside bounds are clamped.
func ParseState(widgets []Widget, q url.Values) (State, error) {
	st := State{values: make(map[string]Value, len(widgets))}
	for _, w := range widgets {
		raw, present := q[w.Key]
		if !present {
			st.values[w.Key] = w.Default
			continue
		}
		v, err := parseValue(w, raw)
		if err != nil {
			return State{}, err
		}
		st.values[w.Key] = v
	}
	return st, nil
}

// DefaultState is the state of a page nobody has touched.
func DefaultState(widgets []Widget) State {
	st, _ := ParseState(widgets, nil)
	return st
}

func parseValue(w Widget, raw []string) (Value, error) {
	first := ""
	if len(raw) > 0 {
		first = strings.TrimSpace(raw[0])
	}

	switch w.Type {
	case WidgetSelect:
		if first == "" {
			return w.Default, nil
		}
		opt, ok := matchOption(w.Options, first)
		if !ok {
			return Value{}, invalid(w, first, "not an option")
		}
		return Value{Text: opt}, nil

	case WidgetMultiSelect:
		choices := make([]string, 0, len(raw))
		for _, r := range raw {
			r = strings.TrimSpace(r)
			if r == "" {
				continue
			}
			opt, ok := matchOption(w.Options, r)
			if !ok {
				return Value{}, invalid(w, r, "not an option")
			}
			choices = append(choices, opt)
		}
		return Value{Choices: choices}, nil

	case WidgetSlider:
		if first == "" {
			return w.Default, nil
		}
		n, err := strconv.ParseFloat(first, 64)
		if err != nil || math.IsNaN(n) {
			return Value{}, invalid(w, first, "not a number")
		}
		return Value{Number: clamp(n, w.Min, w.Max)}, nil

	case WidgetRangeSlider:
		if first == "" {
			return w.Default, nil
		}
		lo, hi, err := parseRange(first)
		if err != nil {
			return Value{}, invalid(w, first, err.Error())
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		return Value{Low: clamp(lo, w.Min, w.Max), High: clamp(hi, w.Min, w.Max)}, nil

	case WidgetCheckbox:
		if first == "" || strings.EqualFold(first, "on") {
			return Value{Checked: true}, nil
		}
		b, err := strconv.ParseBool(first)
		if err != nil {
			return Value{}, invalid(w, first, "not a boolean")
		}
		return Value{Checked: b}, nil

	case WidgetTextArea:
		return Value{Text: strings.Join(raw, "\n")}, nil
	}
	return Value{}, fmt.Errorf("%w: unknown widget type %q", ErrInvalidWidget, w.Type)
}

func parseRange(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errors.New("want min,max")
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errors.New("min is not a number")
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, errors.New("max is not a number")
	}
	return lo, hi, nil
}

func matchOption(options []string, v string) (string, bool) {
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return o, true
		}
	}
	return "", false
}

func clamp(v, lo, hi float64) float64 {
	if lo == 0 && hi == 0 {
		return v
	}
	return math.Max(lo, math.Min(hi, v))
}

func invalid(w Widget, value, reason string) error {
	return fmt.Errorf("%w: %s=%q: %s", ErrInvalidWidget, w.Key, value, reason)
}

// Text returns a select or text-area value.
func (s State) Text(key string) string { return s.values[key].Text }

// Choices returns a multiselect value.
func (s State) Choices(key string) []string { return s.values[key].Choices }

// Number returns a slider value.
func (s State) Number(key string) float64 { return s.values[key].Number }

// Range returns a range-slider value.
func (s State) Range(key string) (lo, hi float64) {
	v := s.values[key]
	return v.Low, v.High
}

// Checked returns a checkbox value.
func (s State) Checked(key string) bool { return s.values[key].Checked }

// Value returns the raw value of a widget.
func (s State) Value(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// resolve copies the state into each widget's Value for display.
func resolve(widgets []Widget, st State) []Widget {
	out := make([]Widget, len(widgets))
	for i, w := range widgets {
		if v, ok := st.Value(w.Key); ok {
			w.Value = v
		} else {
			w.Value = w.Default
		}
		out[i] = w
	}
	return out
}
