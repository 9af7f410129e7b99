package assistant

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spektr-org/tablero/engine"
)

// Event is one activity line of a generated schedule.
type Event struct {
	Day      string `json:"day"`
	Activity string `json:"activity"`
}

var weekDays = []string{"lunes", "martes", "miércoles", "jueves", "viernes", "sábado", "domingo"}

// ParseSchedule reads a generated agenda line by line. A line naming a
// weekday starts that day; any other non-blank line is an activity of the
// current day. Lines before the first day get an empty day. Markdown
// emphasis around a day heading is dropped.
func ParseSchedule(reply string) []Event {
	var events []Event
	current := ""

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if mentionsWeekDay(line) {
			current = strings.Trim(line, "*#: ")
			continue
		}
		if line != "" {
			events = append(events, Event{Day: capitalize(current), Activity: line})
		}
	}
	return events
}

// EventsTable lays events out as a two-column table.
func EventsTable(title string, events []Event) *engine.TableData {
	rows := make([][]string, len(events))
	for i, e := range events {
		rows[i] = []string{e.Day, e.Activity}
	}
	return &engine.TableData{
		Title: title,
		Columns: []engine.Column{
			{Key: "day", Label: "Día", Type: "text", Align: "left"},
			{Key: "activity", Label: "Actividad", Type: "text", Align: "left"},
		},
		Rows: rows,
	}
}

func mentionsWeekDay(line string) bool {
	lower := strings.ToLower(line)
	for _, day := range weekDays {
		if strings.Contains(lower, day) {
			return true
		}
	}
	return false
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
