package grading

import (
	"math"
	"testing"
)

func TestBand(t *testing.T) {
	tests := []struct {
		pct  float64
		want float64
	}{
		{100, 9.0},
		{90, 9.0},
		{89.999, 8.5},
		{82, 8.5},
		{75, 8.0},
		{74.99, 7.5},
		{67, 7.5},
		{60, 7.0},
		{52, 6.5},
		{45, 6.0},
		{37, 5.5},
		{30, 5.0},
		{22, 4.5},
		{15, 4.0},
		{14.9, 3.5},
		{0, 3.5},
		{math.NaN(), 3.5},
	}
	for _, tt := range tests {
		if got := Band(tt.pct); got != tt.want {
			t.Errorf("Band(%v) = %v, want %v", tt.pct, got, tt.want)
		}
	}
}

func TestBandIsNonDecreasing(t *testing.T) {
	prev := Band(0)
	for p := 0.0; p <= 100.0; p += 0.01 {
		b := Band(p)
		if b < prev {
			t.Fatalf("Band(%.2f) = %v dropped below %v", p, b, prev)
		}
		prev = b
	}
}

func TestPercentage(t *testing.T) {
	if got := Percentage(3, 4); got != 75 {
		t.Errorf("Percentage(3,4) = %v", got)
	}
	if got := Percentage(0, 0); got != 0 {
		t.Errorf("Percentage(0,0) = %v", got)
	}
	if got := FormatPercentage(Percentage(1, 3)); got != "33.33" {
		t.Errorf("FormatPercentage = %q", got)
	}
	if got := FormatPercentage(75); got != "75.00" {
		t.Errorf("FormatPercentage = %q", got)
	}
}
