package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ditapack/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	succeededStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skippedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	blockingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	infoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	passedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// renderDiscoverySummary formats the contract's histogram, invariant
// outcomes, and eligibility verdict.
func renderDiscoverySummary(contract *models.DiscoveryContract) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Discovery") + "\n")
	fmt.Fprintf(&b, "  maps: %d  topics: %d  media: %d\n",
		contract.Summary.Maps, contract.Summary.Topics, contract.Summary.Media)

	for _, inv := range contract.Invariants {
		b.WriteString("  " + renderInvariant(inv) + "\n")
	}

	if contract.Eligible {
		b.WriteString("  " + passedStyle.Render("eligible for planning") + "\n")
	} else {
		b.WriteString("  " + blockingStyle.Render("not eligible for a mutating plan") + "\n")
	}
	return b.String()
}

func renderInvariant(inv models.InvariantResult) string {
	if inv.Passed {
		return fmt.Sprintf("%s %s", passedStyle.Render("pass"), inv.ID)
	}
	var severity string
	switch inv.Severity {
	case models.SeverityBlocking:
		severity = blockingStyle.Render(string(inv.Severity))
	case models.SeverityWarning:
		severity = warningStyle.Render(string(inv.Severity))
	default:
		severity = infoStyle.Render(string(inv.Severity))
	}
	return fmt.Sprintf("%s %s: %s", severity, inv.ID, inv.Details)
}

// renderPlanSummary lists the plan's actions in order.
func renderPlanSummary(plan *models.Plan) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Plan") + "\n")
	fmt.Fprintf(&b, "  target: %s  actions: %d\n", plan.Intent.Target, len(plan.Actions))
	for _, a := range plan.Actions {
		fmt.Fprintf(&b, "  %s  %-17s %s\n", dimStyle.Render(a.ID), a.Type, a.Target)
	}
	return b.String()
}

// renderExecutionSummary formats the per-status counts and every non-clean
// outcome.
func renderExecutionSummary(report *models.ExecutionReport) string {
	var b strings.Builder

	title := "Execution"
	if report.DryRun {
		title = "Execution (dry-run)"
	}
	b.WriteString(headerStyle.Render(title) + "\n")
	fmt.Fprintf(&b, "  %s  %s  %s\n",
		succeededStyle.Render(fmt.Sprintf("succeeded: %d", report.Summary.Succeeded)),
		failedStyle.Render(fmt.Sprintf("failed: %d", report.Summary.Failed)),
		skippedStyle.Render(fmt.Sprintf("skipped: %d", report.Summary.Skipped)))

	for _, r := range report.Results {
		if r.Status != models.StatusFailed {
			continue
		}
		fmt.Fprintf(&b, "  %s %s (%s): %s\n",
			failedStyle.Render("failed"), r.ActionID, r.FailureType, r.Message)
	}
	return b.String()
}
