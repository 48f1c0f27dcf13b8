// Package dashboard calcula las estadísticas derivadas que muestran los
// tableros. Todo se recalcula por request sobre las colecciones completas.
package dashboard

import (
	"sort"
	"time"

	"dental-clinic-admin/internal/domain/appointments"
	"dental-clinic-admin/internal/domain/patients"
)

const (
	UnknownPatient = "Unknown Patient"

	DefaultTopPatients = 5
	DefaultUpcoming    = 10
	DefaultMonths      = 6
)

type StatusCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

func CountByStatus(items []appointments.Appointment) StatusCounts {
	c := StatusCounts{Total: len(items)}
	for _, a := range items {
		switch a.Status {
		case appointments.StatusPending:
			c.Pending++
		case appointments.StatusCompleted:
			c.Completed++
		case appointments.StatusCancelled:
			c.Cancelled++
		}
	}
	return c
}

// Revenue suma los costos definidos; sin costo cuenta 0.
func Revenue(items []appointments.Appointment) float64 {
	var total float64
	for _, a := range items {
		total += a.CostValue()
	}
	return total
}

type KPIData struct {
	TotalPatients       int     `json:"total_patients"`
	TotalAppointments   int     `json:"total_appointments"`
	TotalRevenue        float64 `json:"total_revenue"`
	CompletedTreatments int     `json:"completed_treatments"`
	PendingTreatments   int     `json:"pending_treatments"`
}

func KPIs(ps []patients.Patient, as []appointments.Appointment) KPIData {
	c := CountByStatus(as)
	return KPIData{
		TotalPatients:       len(ps),
		TotalAppointments:   c.Total,
		TotalRevenue:        Revenue(as),
		CompletedTreatments: c.Completed,
		PendingTreatments:   c.Pending,
	}
}

type PatientStat struct {
	PatientID        string  `json:"patient_id"`
	Name             string  `json:"name"`
	AppointmentCount int     `json:"appointment_count"`
	TotalRevenue     float64 `json:"total_revenue"`
}

// TopPatients ordena por revenue desc. Empates conservan el orden de alta.
func TopPatients(ps []patients.Patient, as []appointments.Appointment, n int) []PatientStat {
	if n <= 0 {
		n = DefaultTopPatients
	}
	out := perPatient(ps, as)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalRevenue > out[j].TotalRevenue })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func perPatient(ps []patients.Patient, as []appointments.Appointment) []PatientStat {
	byID := make(map[string]*PatientStat, len(ps))
	out := make([]PatientStat, len(ps))
	for i, p := range ps {
		out[i] = PatientStat{PatientID: p.ID, Name: p.Name}
		byID[p.ID] = &out[i]
	}
	for _, a := range as {
		if s, ok := byID[a.PatientID]; ok {
			s.AppointmentCount++
			s.TotalRevenue += a.CostValue()
		}
	}
	return out
}

// Upcoming: citas con fecha >= now, ascendente, hasta n.
func Upcoming(items []appointments.Appointment, now time.Time, n int) []appointments.Appointment {
	if n <= 0 {
		n = DefaultUpcoming
	}
	out := make([]appointments.Appointment, 0)
	for _, a := range items {
		if !a.AppointmentDateTime.Before(now) {
			out = append(out, a)
		}
	}
	out = appointments.SortByDate(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// History: completadas, la más reciente primero.
func History(items []appointments.Appointment) []appointments.Appointment {
	out := make([]appointments.Appointment, 0)
	for _, a := range items {
		if a.Status == appointments.StatusCompleted {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppointmentDateTime.After(out[j].AppointmentDateTime)
	})
	return out
}

type PatientSummary struct {
	Total        int           `json:"total"`
	NewThisMonth int           `json:"new_this_month"`
	AverageAge   int           `json:"average_age"`
	WithPhone    int           `json:"with_phone"`
	WithEmail    int           `json:"with_email"`
	Patients     []PatientStat `json:"patients"`
}

// PatientSummaries arma las tarjetas de la vista de pacientes. La edad
// promedio solo considera fichas con fecha de nacimiento.
func PatientSummaries(ps []patients.Patient, as []appointments.Appointment, now time.Time) PatientSummary {
	s := PatientSummary{Total: len(ps), Patients: perPatient(ps, as)}

	ages, withAge := 0, 0
	for _, p := range ps {
		if p.Phone != "" {
			s.WithPhone++
		}
		if p.Email != "" {
			s.WithEmail++
		}
		if p.CreatedAt.Year() == now.Year() && p.CreatedAt.Month() == now.Month() {
			s.NewThisMonth++
		}
		if p.DateOfBirth != nil {
			ages += age(*p.DateOfBirth, now)
			withAge++
		}
	}
	if withAge > 0 {
		s.AverageAge = int(float64(ages)/float64(withAge) + 0.5)
	}
	return s
}

func age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

type MonthRevenue struct {
	Month        string  `json:"month"` // "Jan 2025"
	Revenue      float64 `json:"revenue"`
	Appointments int     `json:"appointments"`
}

type RevenueSummary struct {
	Months            []MonthRevenue `json:"months"`
	TotalRevenue      float64        `json:"total_revenue"`
	AvgMonthlyRevenue float64        `json:"avg_monthly_revenue"`
	HighestMonth      float64        `json:"highest_month"`
	TotalAppointments int            `json:"total_appointments"`
}

// MonthlyRevenue agrupa los últimos n meses calendario (incluye el actual),
// del más viejo al más nuevo.
func MonthlyRevenue(items []appointments.Appointment, now time.Time, n int) RevenueSummary {
	if n <= 0 {
		n = DefaultMonths
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(n - 1), 0)

	months := make([]MonthRevenue, n)
	for i := range months {
		months[i].Month = first.AddDate(0, i, 0).Format("Jan 2006")
	}
	for _, a := range items {
		t := a.AppointmentDateTime.In(now.Location())
		i := (t.Year()-first.Year())*12 + int(t.Month()) - int(first.Month())
		if i < 0 || i >= n {
			continue
		}
		months[i].Revenue += a.CostValue()
		months[i].Appointments++
	}

	s := RevenueSummary{Months: months}
	for _, m := range months {
		s.TotalRevenue += m.Revenue
		s.TotalAppointments += m.Appointments
		if m.Revenue > s.HighestMonth {
			s.HighestMonth = m.Revenue
		}
	}
	s.AvgMonthlyRevenue = float64(int64(s.TotalRevenue/float64(n) + 0.5))
	return s
}

type CalendarEntry struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	PatientName string              `json:"patient_name"`
	Time        time.Time           `json:"time"`
	Status      appointments.Status `json:"status"`
}

type CalendarDay struct {
	Date         string          `json:"date"` // YYYY-MM-DD
	Appointments []CalendarEntry `json:"appointments"`
}

// CalendarMonth devuelve un día por entrada con sus citas ordenadas por hora.
func CalendarMonth(items []appointments.Appointment, year int, month time.Month, loc *time.Location, patientName func(string) string) []CalendarDay {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	days := start.AddDate(0, 1, -1).Day()

	out := make([]CalendarDay, days)
	for i := range out {
		out[i] = CalendarDay{
			Date:         start.AddDate(0, 0, i).Format("2006-01-02"),
			Appointments: []CalendarEntry{},
		}
	}

	for _, a := range appointments.SortByDate(items) {
		t := a.AppointmentDateTime.In(loc)
		if t.Year() != year || t.Month() != month {
			continue
		}
		name := UnknownPatient
		if patientName != nil {
			name = patientName(a.PatientID)
		}
		d := &out[t.Day()-1]
		d.Appointments = append(d.Appointments, CalendarEntry{
			ID:          a.ID,
			Title:       a.Title,
			PatientName: name,
			Time:        a.AppointmentDateTime,
			Status:      a.Status,
		})
	}
	return out
}

// PatientName construye el resolvedor id -> nombre sobre un snapshot de pacientes.
func PatientName(ps []patients.Patient) func(id string) string {
	names := make(map[string]string, len(ps))
	for _, p := range ps {
		names[p.ID] = p.Name
	}
	return func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return UnknownPatient
	}
}
