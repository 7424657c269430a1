package services

import (
	"fmt"
	"html"
	"strings"

	"github.com/rocjay1/budget-ledger/internal/models"
)

// RenderErrorSection renders the error section HTML.
func RenderErrorSection(errors []string) string {
	if len(errors) == 0 {
		return ""
	}

	var errorItems strings.Builder
	for _, e := range errors {
		errorItems.WriteString(fmt.Sprintf("<li>%s</li>", html.EscapeString(e)))
	}

	return fmt.Sprintf(`
		<div style="background-color: #fff4f4; border-left: 5px solid #d13438; padding: 15px; margin-bottom: 20px;">
			<h3 style="color: #d13438; margin-top: 0; font-size: 18px;">Some rows were skipped</h3>
			<ul style="margin-bottom: 0; padding-left: 20px;">
				%s
			</ul>
		</div>
	`, errorItems.String())
}

func renderPage(color, title, content string) string {
	return fmt.Sprintf(`
		<html>
		<body style="font-family: 'Segoe UI', sans-serif; color: #333; line-height: 1.6; background-color: #f4f4f4; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
				<div style="background-color: %s; padding: 20px; text-align: center; color: white;">
					<h2 style="margin: 0;">%s</h2>
				</div>
				<div style="padding: 20px;">
					%s
				</div>
			</div>
		</body>
		</html>
	`, color, title, content)
}

// RenderImportBody renders the result of a CSV import.
func RenderImportBody(fileName string, imported int, errors []string) string {
	if imported == 0 && len(errors) > 0 {
		content := fmt.Sprintf("<p>%s could not be imported due to the following errors:</p>%s",
			html.EscapeString(fileName), RenderErrorSection(errors))
		return renderPage("#d13438", "Import Failed", content)
	}
	content := fmt.Sprintf("<p>Imported <strong>%d</strong> transaction(s) from %s.</p>%s",
		imported, html.EscapeString(fileName), RenderErrorSection(errors))
	return renderPage("#107c10", "Import Complete", content)
}

// RenderBudgetAlertBody renders a table of categories over their budget.
func RenderBudgetAlertBody(over []models.Category) string {
	var rows strings.Builder
	for _, c := range over {
		rows.WriteString(fmt.Sprintf(
			`<tr><td style="padding: 6px;">%s</td><td style="padding: 6px; text-align: right;">%s</td><td style="padding: 6px; text-align: right;">%s</td><td style="padding: 6px; text-align: right; color: #d13438;">%s</td></tr>`,
			html.EscapeString(c.Name),
			c.Budget.StringFixed(2),
			c.BudgetUsed.StringFixed(2),
			c.Remaining().StringFixed(2),
		))
	}
	content := fmt.Sprintf(`
		<p>The following categories have used more than their budget:</p>
		<table style="width: 100%%; border-collapse: collapse;">
			<tr><th style="text-align: left;">Category</th><th style="text-align: right;">Budget</th><th style="text-align: right;">Used</th><th style="text-align: right;">Remaining</th></tr>
			%s
		</table>
	`, rows.String())
	return renderPage("#ca5010", "Budget Alert", content)
}
