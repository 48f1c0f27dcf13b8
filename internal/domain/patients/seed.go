package patients

import "time"

// Seed devuelve los pacientes de demo. now se usa para created/updated.
func Seed(now time.Time) []Patient {
	dob := func(s string) *time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return &t
	}

	return []Patient{
		{
			ID:               "p1",
			Name:             "John Doe",
			Email:            "john@example.com",
			Phone:            "+1234567890",
			DateOfBirth:      dob("1990-01-01"),
			Address:          "123 Main St, City",
			EmergencyContact: "Jane Doe - +1234567891",
			HealthInfo:       "No allergies, regular checkups",
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		{
			ID:               "p2",
			Name:             "Alice Smith",
			Email:            "alice@example.com",
			Phone:            "+1234567892",
			DateOfBirth:      dob("1985-05-15"),
			Address:          "456 Oak Ave, City",
			EmergencyContact: "Bob Smith - +1234567893",
			HealthInfo:       "Diabetic, sensitive to certain medications",
			CreatedAt:        now,
			UpdatedAt:        now,
		},
	}
}
