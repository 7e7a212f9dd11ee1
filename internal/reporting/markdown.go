package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Inventory Decision Report\n\n")
	sb.WriteString(fmt.Sprintf("Store: %s\n\n", r.StoreID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.UnixMilli(r.GeneratedAt).UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Items analyzed: %d | Rows dropped: %d\n\n", r.ItemCount, r.DroppedRows))

	// Verdict
	sb.WriteString("## Verdict\n\n")
	if r.Verdict != nil {
		sb.WriteString(fmt.Sprintf("**%s**\n\n", r.Verdict.Verdict))
		sb.WriteString(fmt.Sprintf("- Type: %s\n", r.Verdict.Type))
		sb.WriteString(fmt.Sprintf("- Reason: %s\n", r.Verdict.Reason))
		sb.WriteString(fmt.Sprintf("- Consequence if ignored: %s\n", r.Verdict.Consequence))
		if r.Verdict.FocusItem != "" {
			sb.WriteString(fmt.Sprintf("- Focus item: %s\n", r.Verdict.FocusItem))
		}
		if r.Verdict.RunnerUp != nil {
			sb.WriteString(fmt.Sprintf("- Runner-up: %s (%s)\n", r.Verdict.RunnerUp.Action, r.Verdict.RunnerUp.ConsequenceText))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No verdict available.\n\n")
	}

	// Action Brief
	sb.WriteString("## Action Brief\n\n")
	if r.Brief != nil {
		sb.WriteString(fmt.Sprintf("%s\n\n", r.Brief.Headline))
		for i, d := range r.Brief.Decisions {
			impact := "n/a"
			if d.DollarImpact != nil {
				impact = fmt.Sprintf("$%.0f", *d.DollarImpact)
			}
			sb.WriteString(fmt.Sprintf("%d. **%s** (%s, %s at stake): %s\n", i+1, d.Action, d.Timeframe, impact, d.Reason))
		}
		sb.WriteString("\n")
	} else {
		sb.WriteString("No action brief available.\n\n")
	}

	// Decisions
	sb.WriteString("## Decisions\n\n")
	if len(r.Decisions) > 0 {
		sb.WriteString("| Type | SKU | Item | Urgency | Impact | Timeframe | Reason |\n")
		sb.WriteString("|------|-----|------|---------|--------|-----------|--------|\n")
		for _, d := range r.Decisions {
			impact := "n/a"
			if d.DollarImpact != nil {
				impact = fmt.Sprintf("$%.0f", *d.DollarImpact)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s | %s | %s |\n",
				d.Type, d.SKU, d.Name, d.Urgency, impact, d.Timeframe, d.Reason))
		}
	} else {
		sb.WriteString("No decisions this period.\n")
	}
	sb.WriteString("\n")

	// Signals
	sb.WriteString("## Signals\n\n")
	if len(r.Signals) > 0 {
		sb.WriteString("| SKU | Item | Signal | Severity | Priority | Confidence | Reason |\n")
		sb.WriteString("|-----|------|--------|----------|----------|------------|--------|\n")
		for _, s := range r.Signals {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %s | %s |\n",
				s.SKU, s.ItemName, s.Type, s.Severity, s.PriorityScore, s.Confidence, s.Reason))
		}
	} else {
		sb.WriteString("No signals emitted.\n")
	}
	sb.WriteString("\n")

	// Forecasts
	sb.WriteString("## Depletion Forecasts\n\n")
	if len(r.Forecasts) > 0 {
		sb.WriteString("| SKU | Item | Days Left | Confidence |\n")
		sb.WriteString("|-----|------|-----------|------------|\n")
		for _, f := range r.Forecasts {
			days := "n/a"
			if f.DaysUntilDepletion != nil {
				days = fmt.Sprintf("%d", *f.DaysUntilDepletion)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", f.SKU, f.ItemName, days, f.Confidence))
		}
	} else {
		sb.WriteString("No items depleting within the forecast horizon.\n")
	}
	sb.WriteString("\n")

	// Margin
	sb.WriteString("## Period Margin\n\n")
	if r.Margin.AverageMargin != nil {
		sb.WriteString(fmt.Sprintf("Revenue-weighted average margin: $%.2f/unit across %d sold SKUs.\n\n", *r.Margin.AverageMargin, r.Margin.FactsConsidered))
	} else {
		sb.WriteString(fmt.Sprintf("Average margin unavailable: %s.\n\n", r.Margin.Reason))
	}

	// Errors (always shown if present)
	if len(r.Errors) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
