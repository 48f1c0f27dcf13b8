package patients

import "time"

// Patient es la ficha de un paciente de la clínica.
type Patient struct {
	ID string

	Name  string
	Email string
	Phone string

	DateOfBirth *time.Time

	Address          string
	EmergencyContact string // "Nombre - Teléfono"
	HealthInfo       string // alergias, condiciones, etc.

	CreatedAt time.Time
	UpdatedAt time.Time
}
