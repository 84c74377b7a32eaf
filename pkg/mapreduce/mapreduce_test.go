package mapreduce

import (
	"slices"
	"testing"

	"github.com/dtnitsch/booking-scraper/models"
)

func TestTally(t *testing.T) {
	records := []models.PropertyRecord{
		{Location: "Le Marais"},
		{Location: "Montmartre"},
		{Location: ""},
		{Location: "Le Marais"},
		{Location: "Bastille"},
		{Location: "Le Marais"},
	}
	column := models.ColumnIndex("location")

	for _, size := range []int{0, 1, 2, 4, 10} {
		got := Tally(records, column, size)
		want := map[string]int{"Le Marais": 3, "Montmartre": 1, "Bastille": 1}
		if len(got) != len(want) {
			t.Fatalf("size %d: got %v, want %v", size, got, want)
		}
		for k, v := range want {
			if got[k] != v {
				t.Errorf("size %d: %s = %d, want %d", size, k, got[k], v)
			}
		}
	}
}

func TestTopN(t *testing.T) {
	counts := map[string]int{"Superb": 4, "Good": 2, "Very good": 4, "Fair": 1, " ": 9}

	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"Superb:4", "Very good:4"}},
		{3, []string{"Superb:4", "Very good:4", "Good:2"}},
		{10, []string{"Superb:4", "Very good:4", "Good:2", "Fair:1"}},
		{0, []string{}},
		{-1, []string{}},
	}

	for _, tt := range tests {
		if got := TopN(counts, tt.n); !slices.Equal(got, tt.want) {
			t.Errorf("TopN(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}
