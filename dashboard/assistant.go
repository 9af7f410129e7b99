package dashboard

import (
	"context"
	"errors"

	"github.com/spektr-org/tablero/assistant"
)

const (
	AssistantModeKey  = "mode"
	AssistantInputKey = "input"

	assistantTitle       = "🧠 Tu Asistente con Gemini"
	assistantDescription = "Puedes escribir cualquier cosa: preguntas generales, pedir consejos o que te organice tu semana."
)

// AssistantWidgets returns the mode selector and the message box.
func AssistantWidgets() []Widget {
	modes := assistant.Modes()
	labels := make([]string, len(modes))
	for i, m := range modes {
		labels[i] = m.Label()
	}
	return []Widget{
		{
			Key:     AssistantModeKey,
			Label:   "Selecciona el modo de asistencia:",
			Type:    WidgetSelect,
			Options: labels,
			Default: Value{Text: labels[0]},
		},
		{
			Key:   AssistantInputKey,
			Label: "💭 Escribe tu mensaje o actividades:",
			Type:  WidgetTextArea,
		},
	}
}

// AssistantPage runs one generation for the widget state. Blank input shows
// the hint without calling the model.
func AssistantPage(ctx context.Context, svc *assistant.Service, st State, session string) (*Page, *assistant.Reply, error) {
	page := &Page{
		Name:        "assistant",
		Title:       assistantTitle,
		Description: assistantDescription,
		Widgets:     resolve(AssistantWidgets(), st),
	}

	mode, err := assistant.ParseMode(st.Text(AssistantModeKey))
	if err != nil {
		return nil, nil, err
	}

	reply, err := svc.Generate(ctx, mode, st.Text(AssistantInputKey), assistant.ForSession(session))
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyInput) {
			page.Sections = append(page.Sections, noticeSection("hint", "", "info", assistant.HintEmptyInput))
			return page, nil, nil
		}
		return nil, nil, err
	}

	page.Sections = append(page.Sections, ReplySections(reply)...)
	return page, reply, nil
}

// ReplySections lays a reply out the way the assistant page shows it.
func ReplySections(reply *assistant.Reply) []Section {
	if !reply.Mode.Structured() {
		return []Section{{ID: "reply", Heading: "🔊 Respuesta:", Kind: SectionText, Text: reply.Markdown, HTML: reply.HTML}}
	}

	heading := "🗓️ Agenda Generada:"
	if reply.Mode == assistant.ModeStudyPlan {
		heading = "📚 Plan de Estudio Generado:"
	}
	sections := []Section{{ID: "reply", Heading: heading, Kind: SectionText, Text: reply.Markdown, HTML: reply.HTML}}

	const calendar = "📋 Calendario Interactivo:"
	if len(reply.Events) == 0 {
		return append(sections, noticeSection("events", calendar, "warning", reply.Notice))
	}
	return append(sections, tableSection("events", calendar, assistant.EventsTable("", reply.Events)))
}
