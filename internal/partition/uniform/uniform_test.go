package uniform

import (
	"reflect"
	"testing"

	"github.com/discochess/xzra/internal/partition"
)

func TestStrategy_Ranges(t *testing.T) {
	s := New()

	tests := []struct {
		name   string
		lo, hi int64
		n      int
		want   []partition.Range
	}{
		{"even", 0, 12, 3, []partition.Range{{0, 4}, {4, 4}, {8, 4}}},
		{"remainder first", 10, 24, 4, []partition.Range{{10, 4}, {14, 4}, {18, 3}, {21, 3}}},
		{"more workers than bytes", 0, 2, 5, []partition.Range{{0, 1}, {1, 1}}},
		{"zero workers", 0, 7, 0, []partition.Range{{0, 7}}},
		{"empty", 3, 3, 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Ranges(tt.lo, tt.hi, tt.n, []int64{0, 5})
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Ranges() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStrategy_Name(t *testing.T) {
	if got := New().Name(); got != "uniform" {
		t.Errorf("Name() = %q, want %q", got, "uniform")
	}
}
