package users

import "dental-clinic-admin/internal/ports/auth"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	PatientID string    `json:"patient_id,omitempty"`
}

func (u User) Claims() auth.Claims {
	return auth.Claims{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		PatientID: u.PatientID,
	}
}

// MockUsers es el directorio fijo de demo.
func MockUsers() []User {
	return []User{
		{ID: "1", Name: "Dr. Smith", Email: "admin@dental.com", Role: auth.RoleAdmin},
		{ID: "2", Name: "John Doe", Email: "patient@dental.com", Role: auth.RolePatient, PatientID: "p1"},
	}
}
