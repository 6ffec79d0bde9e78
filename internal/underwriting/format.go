package underwriting

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders whole US dollars with thousands grouping,
// e.g. 371500 -> "$371,500" and -2500.4 -> "-$2,500".
func FormatCurrency(value float64) string {
	rounded := math.Round(value)
	if rounded == 0 {
		return "$0"
	}
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	return sign + "$" + usPrinter.Sprintf("%.0f", rounded)
}

// FormatPercentage renders one decimal place, e.g. 7.537 -> "7.5%".
func FormatPercentage(value float64) string {
	return fmt.Sprintf("%.1f%%", value)
}
