package auth

type Role string

const (
	RoleAdmin   Role = "admin"
	RolePatient Role = "patient"
)

// Claims representa al usuario autenticado del request.
// PatientID solo aplica a usuarios con rol patient.
type Claims struct {
	UserID    string
	Email     string
	Name      string
	Role      Role
	PatientID string
}

func (c Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// CanViewPatient: admin ve todo; patient solo su propia ficha.
func (c Claims) CanViewPatient(patientID string) bool {
	if c.IsAdmin() {
		return true
	}
	return c.Role == RolePatient && c.PatientID != "" && c.PatientID == patientID
}
