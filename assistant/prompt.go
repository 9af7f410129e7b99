package assistant

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ============================================================================
// MODES + PROMPT BUILDER
// ============================================================================
// chat       → the input is the prompt
// agenda     → weekly agenda, Monday to Sunday, with approximate times
// study_plan → weekly study plan with the same "Día:" / "- hora: actividad"
//              layout, so ParseSchedule reads both
// ============================================================================

// Mode selects how the input is turned into a prompt.
type Mode string

const (
	ModeChat      Mode = "chat"
	ModeAgenda    Mode = "agenda"
	ModeStudyPlan Mode = "study_plan"
)

// ErrUnknownMode is returned for a mode outside Modes().
var ErrUnknownMode = errors.New("unknown assistance mode")

// Modes lists the supported modes in display order.
func Modes() []Mode {
	return []Mode{ModeChat, ModeAgenda, ModeStudyPlan}
}

// ParseMode accepts a mode name or its display label.
func ParseMode(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	for _, m := range Modes() {
		if strings.EqualFold(s, string(m)) || s == m.Label() {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Label is the name shown in the mode selector.
func (m Mode) Label() string {
	switch m {
	case ModeChat:
		return "Chat General"
	case ModeAgenda:
		return "Organizar mi semana"
	case ModeStudyPlan:
		return "Plan de estudio"
	}
	return string(m)
}

// Structured reports whether replies in this mode are parsed into events.
func (m Mode) Structured() bool {
	return m == ModeAgenda || m == ModeStudyPlan
}

// StudyPlan holds the constraints of a study-plan prompt.
type StudyPlan struct {
	HoursPerDay     float64 `json:"hoursPerDay"`
	MaxSessionHours float64 `json:"maxSessionHours"`
	RestDay         string  `json:"restDay"`
}

// DefaultStudyPlan is used when the caller sets no constraints.
var DefaultStudyPlan = StudyPlan{
	HoursPerDay:     4,
	MaxSessionHours: 1,
	RestDay:         "domingo",
}

func (p StudyPlan) withDefaults() StudyPlan {
	if p.HoursPerDay <= 0 {
		p.HoursPerDay = DefaultStudyPlan.HoursPerDay
	}
	if p.MaxSessionHours <= 0 {
		p.MaxSessionHours = DefaultStudyPlan.MaxSessionHours
	}
	if p.RestDay == "" {
		p.RestDay = DefaultStudyPlan.RestDay
	}
	return p
}

// BuildPrompt returns the prompt sent to the model for a mode.
func BuildPrompt(mode Mode, input string, plan StudyPlan) (string, error) {
	switch mode {
	case ModeChat:
		return input, nil
	case ModeAgenda:
		return buildAgendaPrompt(input), nil
	case ModeStudyPlan:
		return buildStudyPlanPrompt(input, plan.withDefaults()), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

func buildAgendaPrompt(activities string) string {
	return fmt.Sprintf("Tengo estas actividades, compromisos o ideas para esta semana: %s\n\n", activities) +
		"Quiero que me organices una agenda semanal de lunes a domingo, con horarios aproximados para cada actividad, incluyendo descansos, tiempos de comida y sugerencias de horarios realistas.\n" +
		"Si no hay mucha información, deduce lo que haría una persona común con tiempo libre y agrega sugerencias como ejercicio, descanso, ocio o aprendizaje.\n" +
		"El resultado debe estar bien estructurado y legible, tipo:\n" +
		"Lunes:\n- 9:00am: Revisar correos\n- 10:00am: Estudiar inglés\n...\n"
}

func buildStudyPlanPrompt(subjects string, plan StudyPlan) string {
	return fmt.Sprintf("Quiero estudiar estas materias o temas esta semana: %s\n\n", subjects) +
		fmt.Sprintf("Tengo %s horas disponibles por día, prefiero sesiones de máximo %s hora(s) y mi día de descanso es el %s.\n",
			formatHours(plan.HoursPerDay), formatHours(plan.MaxSessionHours), strings.ToLower(plan.RestDay)) +
		"Organiza un plan de estudio semanal de lunes a domingo con horarios aproximados, alternando materias, con repasos al final de la semana y pausas cortas entre sesiones.\n" +
		"El día de descanso solo debe tener actividades de recuperación.\n" +
		"El resultado debe estar bien estructurado y legible, tipo:\n" +
		"Lunes:\n- 8:00am: Matemáticas (álgebra)\n- 9:00am: Pausa\n...\n"
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
