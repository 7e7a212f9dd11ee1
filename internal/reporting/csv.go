package reporting

import (
	"fmt"
	"strings"

	"stockpulse/internal/domain"
)

// RenderCSV renders decisions as CSV string.
func RenderCSV(decisions []domain.Decision) string {
	var sb strings.Builder

	// Header
	sb.WriteString("type,sku,name,urgency,dollar_impact,timeframe,reason,action\n")

	// Rows
	for _, d := range decisions {
		impact := ""
		if d.DollarImpact != nil {
			impact = fmt.Sprintf("%.2f", *d.DollarImpact)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%s,%s,%s,%s\n",
			d.Type,
			csvField(d.SKU),
			csvField(d.Name),
			d.Urgency,
			impact,
			csvField(d.Timeframe),
			csvField(d.Reason),
			csvField(d.Action),
		))
	}

	return sb.String()
}

// csvField quotes values containing separators or quotes.
func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}
