package blockaligned

import (
	"reflect"
	"testing"

	"github.com/discochess/xzra/internal/partition"
)

func TestStrategy_Ranges(t *testing.T) {
	s := New()
	bounds := []int64{0, 100, 200, 300, 400}

	tests := []struct {
		name   string
		lo, hi int64
		n      int
		want   []partition.Range
	}{
		{"one per block", 0, 500, 5, []partition.Range{{0, 100}, {100, 100}, {200, 100}, {300, 100}, {400, 100}}},
		{"snap to nearest", 0, 500, 2, []partition.Range{{0, 200}, {200, 300}}},
		{"more workers than blocks", 50, 250, 8, []partition.Range{{50, 50}, {100, 100}, {200, 50}}},
		{"inside one block", 110, 190, 4, []partition.Range{{110, 80}}},
		{"single worker", 0, 500, 1, []partition.Range{{0, 500}}},
		{"empty", 10, 10, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Ranges(tt.lo, tt.hi, tt.n, bounds)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Ranges() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNearest(t *testing.T) {
	xs := []int64{10, 20, 40}
	tests := []struct {
		x, want int64
	}{
		{0, 10},
		{14, 10},
		{15, 10},
		{16, 20},
		{35, 40},
		{99, 40},
	}
	for _, tt := range tests {
		if got := nearest(xs, tt.x); got != tt.want {
			t.Errorf("nearest(%d) = %d, want %d", tt.x, got, tt.want)
		}
	}
}
