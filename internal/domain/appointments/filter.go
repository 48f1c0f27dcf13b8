package appointments

import (
	"sort"
	"strings"
	"time"
)

type Window string

const (
	WindowAll   Window = "all"
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

func (w Window) Valid() bool {
	switch w {
	case "", WindowAll, WindowToday, WindowWeek, WindowMonth:
		return true
	default:
		return false
	}
}

// Criteria: los campos vacíos no filtran. Status "all" tampoco.
type Criteria struct {
	Search    string
	Status    string
	Window    Window
	PatientID string
}

// Filter aplica los criterios sobre items sin modificar el orden.
// patientName resuelve el nombre para la búsqueda; puede ser nil.
func Filter(items []Appointment, c Criteria, patientName func(id string) string, now time.Time) []Appointment {
	q := strings.ToLower(strings.TrimSpace(c.Search))
	status := strings.TrimSpace(c.Status)

	out := make([]Appointment, 0, len(items))
	for _, a := range items {
		if c.PatientID != "" && a.PatientID != c.PatientID {
			continue
		}
		if status != "" && status != "all" && string(a.Status) != status {
			continue
		}
		if !InWindow(a.AppointmentDateTime, c.Window, now) {
			continue
		}
		if q != "" && !matches(a, q, patientName) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matches(a Appointment, q string, patientName func(string) string) bool {
	fields := []string{a.Title, a.Description}
	if a.Treatment != nil {
		fields = append(fields, *a.Treatment)
	}
	if patientName != nil {
		fields = append(fields, patientName(a.PatientID))
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// InWindow: today = mismo día calendario, week = semana que empieza el domingo,
// month = mismo mes calendario. Todo en la zona de now.
func InWindow(t time.Time, w Window, now time.Time) bool {
	t = t.In(now.Location())
	switch w {
	case WindowToday:
		return sameDay(t, now)
	case WindowWeek:
		start := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
		end := start.AddDate(0, 0, 7)
		return !t.Before(start) && t.Before(end)
	case WindowMonth:
		return t.Year() == now.Year() && t.Month() == now.Month()
	default:
		return true
	}
}

// SortByDate ordena por fecha ascendente (copia).
func SortByDate(items []Appointment) []Appointment {
	out := append([]Appointment(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppointmentDateTime.Before(out[j].AppointmentDateTime)
	})
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
