package grading

import "strconv"

type bandStep struct {
	minPercent float64
	band       float64
}

// bandTable is ordered from the highest threshold down; thresholds are
// inclusive. Reading and listening share it.
var bandTable = []bandStep{
	{90, 9.0},
	{82, 8.5},
	{75, 8.0},
	{67, 7.5},
	{60, 7.0},
	{52, 6.5},
	{45, 6.0},
	{37, 5.5},
	{30, 5.0},
	{22, 4.5},
	{15, 4.0},
}

// FloorBand is awarded below the lowest threshold.
const FloorBand = 3.5

// Band maps a percentage of correct answers (0..100) to an IELTS band.
func Band(percentage float64) float64 {
	for _, s := range bandTable {
		if percentage >= s.minPercent {
			return s.band
		}
	}
	return FloorBand
}

// Percentage is correct/total*100, or 0 for an empty test.
func Percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// FormatPercentage renders p with two decimals, e.g. "75.00".
func FormatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
