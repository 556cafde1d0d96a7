package domain

import "math"

// Round1 rounds a monetary amount to one decimal place. All settlement
// figures (gross pay, penalty total, net pay) are stored at this precision.
func Round1(amount float64) float64 {
	return math.Round(amount*10) / 10
}
