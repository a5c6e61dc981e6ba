package report

import (
	"fmt"

	"salesight/internal/analysis"
)

// missingCell marks a value that could not be computed (zero denominator,
// uncoercible source cell). Never rendered as zero.
const missingCell = "n/a"

func formatCurrency(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatInt(i int) string {
	return fmt.Sprintf("%d", i)
}

func formatNumericCurrency(n analysis.Numeric) string {
	if !n.Valid {
		return missingCell
	}
	return formatCurrency(n.Value)
}

func formatNumericPercent(n analysis.Numeric) string {
	if !n.Valid {
		return missingCell
	}
	return fmt.Sprintf("%.2f%%", n.Value)
}

func formatNumericFloat(n analysis.Numeric) string {
	if !n.Valid {
		return missingCell
	}
	return formatFloat(n.Value)
}
