package appointments

import "time"

// Seed devuelve las citas de demo. p3 y p4 no existen en el seed de pacientes
// y se muestran como "Unknown Patient".
func Seed(now time.Time) []Appointment {
	at := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02T15:04:05", s)
		return t
	}
	cost := func(v float64) *float64 { return &v }
	str := func(v string) *string { return &v }

	items := []Appointment{
		{
			ID: "a1", PatientID: "p1",
			Title:               "Regular Checkup",
			Description:         "Routine dental examination",
			Comment:             "Patient reports no pain",
			AppointmentDateTime: at("2024-12-15T10:00:00"),
			Cost:                cost(120),
			Treatment:           str("Cleaning and examination"),
			Status:              StatusCompleted,
		},
		{
			ID: "a2", PatientID: "p2",
			Title:               "Filling Appointment",
			Description:         "Cavity filling on upper molar",
			Comment:             "Patient comfortable with procedure",
			AppointmentDateTime: at("2024-12-20T14:00:00"),
			Cost:                cost(180),
			Treatment:           str("Composite filling"),
			Status:              StatusCompleted,
		},
		{
			ID: "a3", PatientID: "p1",
			Title:               "Teeth Whitening",
			Description:         "Professional teeth whitening treatment",
			Comment:             "Scheduled follow-up",
			AppointmentDateTime: at("2025-01-05T15:00:00"),
			Cost:                cost(300),
			Treatment:           str("Teeth whitening"),
			Status:              StatusPending,
		},
		{
			ID: "a4", PatientID: "p2",
			Title:               "Follow-up Checkup",
			Description:         "Post-treatment checkup",
			Comment:             "Healing well",
			AppointmentDateTime: at("2025-01-10T11:00:00"),
			Status:              StatusPending,
		},
		{
			ID: "a5", PatientID: "p3",
			Title:               "Root Canal Treatment",
			Description:         "Root canal therapy for infected tooth",
			Comment:             "Multi-session treatment",
			AppointmentDateTime: at("2025-01-15T09:00:00"),
			Cost:                cost(800),
			Treatment:           str("Root canal"),
			Status:              StatusPending,
		},
		{
			ID: "a6", PatientID: "p4",
			Title:               "Dental Cleaning",
			Description:         "Regular dental cleaning and checkup",
			Comment:             "Good oral hygiene maintained",
			AppointmentDateTime: at("2024-11-20T14:00:00"),
			Cost:                cost(120),
			Treatment:           str("Professional cleaning"),
			Status:              StatusCompleted,
		},
		{
			ID: "a7", PatientID: "p1",
			Title:               "Crown Placement",
			Description:         "Ceramic crown placement",
			Comment:             "Perfect fit achieved",
			AppointmentDateTime: at("2024-10-25T13:00:00"),
			Cost:                cost(1200),
			Treatment:           str("Crown placement"),
			Status:              StatusCompleted,
		},
		{
			ID: "a8", PatientID: "p3",
			Title:               "Orthodontic Consultation",
			Description:         "Initial consultation for braces",
			Comment:             "Treatment plan discussed",
			AppointmentDateTime: at("2025-01-20T16:00:00"),
			Cost:                cost(150),
			Treatment:           str("Consultation"),
			Status:              StatusPending,
		},
	}

	for i := range items {
		items[i].CreatedAt = now
		items[i].UpdatedAt = now
	}
	return items
}
