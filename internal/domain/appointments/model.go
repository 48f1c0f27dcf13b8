package appointments

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Statuses en el orden en que se muestran en los contadores.
var Statuses = []Status{StatusPending, StatusCompleted, StatusCancelled}

// FileAttachment es un archivo embebido como data URI; nunca se sube a otro lado.
type FileAttachment struct {
	ID         string
	Name       string
	URL        string
	Type       string
	Size       int64
	UploadedAt time.Time
}

type Appointment struct {
	ID        string
	PatientID string // no se valida contra el store de pacientes

	Title       string
	Description string
	Comment     string

	AppointmentDateTime time.Time

	Cost      *float64 // nil = sin costo definido
	Treatment *string
	Status    Status

	NextAppointmentDate *time.Time
	Files               []FileAttachment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone devuelve una copia que no comparte punteros ni el slice de archivos.
func (a Appointment) Clone() Appointment {
	out := a
	if a.Cost != nil {
		c := *a.Cost
		out.Cost = &c
	}
	if a.Treatment != nil {
		t := *a.Treatment
		out.Treatment = &t
	}
	if a.NextAppointmentDate != nil {
		n := *a.NextAppointmentDate
		out.NextAppointmentDate = &n
	}
	if a.Files != nil {
		out.Files = make([]FileAttachment, len(a.Files))
		copy(out.Files, a.Files)
	}
	return out
}

// CostValue trata el costo indefinido como 0.
func (a Appointment) CostValue() float64 {
	if a.Cost == nil {
		return 0
	}
	return *a.Cost
}
