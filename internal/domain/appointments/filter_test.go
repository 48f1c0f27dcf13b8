package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func idsOf(items []Appointment) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

func TestFilter_Status(t *testing.T) {
	items := Seed(fixedNow)

	for _, st := range Statuses {
		for _, a := range Filter(items, Criteria{Status: string(st)}, nil, fixedNow) {
			assert.Equal(t, st, a.Status)
		}
	}
	assert.Len(t, Filter(items, Criteria{Status: "all"}, nil, fixedNow), len(items))
	assert.Len(t, Filter(items, Criteria{}, nil, fixedNow), len(items))
	assert.Equal(t, []string{"a3", "a4", "a5", "a8"}, idsOf(Filter(items, Criteria{Status: "pending"}, nil, fixedNow)))
}

func TestFilter_SearchIncludesPatientName(t *testing.T) {
	items := Seed(fixedNow)
	names := func(id string) string {
		if id == "p2" {
			return "Alice Smith"
		}
		return "Unknown Patient"
	}

	assert.Equal(t, []string{"a2", "a4"}, idsOf(Filter(items, Criteria{Search: "alice"}, names, fixedNow)))
	assert.Equal(t, []string{"a5"}, idsOf(Filter(items, Criteria{Search: "ROOT CANAL"}, names, fixedNow)))
	// treatment
	assert.Equal(t, []string{"a2"}, idsOf(Filter(items, Criteria{Search: "composite"}, nil, fixedNow)))
}

func TestFilter_PatientAndWindow(t *testing.T) {
	items := Seed(fixedNow)

	assert.Equal(t, []string{"a1", "a3", "a7"}, idsOf(Filter(items, Criteria{PatientID: "p1"}, nil, fixedNow)))

	// 2025-01-08 es miércoles: la semana va del domingo 5 al sábado 11.
	assert.Equal(t, []string{"a3", "a4"}, idsOf(Filter(items, Criteria{Window: WindowWeek}, nil, fixedNow)))
	assert.Equal(t, []string{"a3", "a4", "a5", "a8"}, idsOf(Filter(items, Criteria{Window: WindowMonth}, nil, fixedNow)))

	jan10 := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"a4"}, idsOf(Filter(items, Criteria{Window: WindowToday}, nil, jan10)))
}

func TestSortByDate(t *testing.T) {
	sorted := SortByDate(Seed(fixedNow))
	assert.Equal(t, "a7", sorted[0].ID)
	assert.Equal(t, "a8", sorted[len(sorted)-1].ID)
}
