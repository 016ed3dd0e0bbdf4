package testutil

import (
	"fmt"
	"strings"
)

// CoefficientTableText renders rows as the whitespace-delimited table format,
// with a leading comment header. Each row is l, m, coefficient, uncertainty.
func CoefficientTableText(rows ...[4]float64) string {
	var sb strings.Builder
	sb.WriteString("# l m coefficient uncertainty\n")
	for _, r := range rows {
		fmt.Fprintf(&sb, "%d %d %g %g\n", int(r[0]), int(r[1]), r[2], r[3])
	}
	return sb.String()
}

// FullTableText returns a complete table up to maxL where every coefficient
// is value.
func FullTableText(maxL int, value float64) string {
	rows := make([][4]float64, 0, (maxL+1)*(maxL+1))
	for l := 0; l <= maxL; l++ {
		for m := -l; m <= l; m++ {
			rows = append(rows, [4]float64{float64(l), float64(m), value, 0.01})
		}
	}
	return CoefficientTableText(rows...)
}
