// Package renderer renders household reports as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templatesFS embed.FS

var templates, _ = fs.Sub(templatesFS, "templates")

// RenderMembers renders the family members table.
func RenderMembers(r *MembersReport) string {
	return renderTemplate("members", "members.md", nil, r)
}

// RenderFunds renders the retirement funds table.
func RenderFunds(r *FundsReport) string {
	return renderTemplate("funds", "funds.md", nil, r)
}

// RenderFund renders one fund: its parameters, return schedule, overrides and projection.
func RenderFund(r *FundReport) string {
	partials := map[string]string{
		"fund_schedule":   "fund_schedule.md",
		"fund_overrides":  "fund_overrides.md",
		"fund_projection": "fund_projection.md",
	}
	if len(r.Overrides) == 0 {
		// An empty file name results in an empty template.
		partials["fund_overrides"] = ""
	}
	return renderTemplate("fund", "fund.md", partials, r)
}

// RenderHousehold renders the household summary and the year by year aggregate.
func RenderHousehold(r *HouseholdReport) string {
	partials := map[string]string{
		"household_summary": "household_summary.md",
		"household_years":   "household_years.md",
	}
	return renderTemplate("household", "household.md", partials, r)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}

var funcs = template.FuncMap{"cell": escapeCell}

// escapeCell escapes a value to fit in a markdown table cell.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
