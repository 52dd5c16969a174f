package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MKhiriev/go-note-sync/models"
)

const maxConflictTitle = 48

// RenderProgress formats the one-line summary shown while a session runs.
func RenderProgress(report models.SyncReport) string {
	var b strings.Builder
	b.WriteString(stateStyle.Render(fmt.Sprintf("[%s]", report.State)))

	for _, action := range sortedActions(report) {
		fmt.Fprintf(&b, " %s=%d", action, report.Count(action))
	}
	if report.Status != "" {
		b.WriteString(" ")
		b.WriteString(helpStyle.Render(report.Status))
	}
	return b.String()
}

// RenderReport formats the summary printed when a session ends.
func RenderReport(report models.SyncReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Target: %s\n", valueOrNA(report.TargetID))
	fmt.Fprintf(&b, "State: %s\n", stateStyle.Render(string(report.State)))
	if !report.StartedAt.IsZero() && !report.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	}

	actions := sortedActions(report)
	if len(actions) > 0 {
		b.WriteString("\n")
	}
	for _, action := range actions {
		b.WriteString(counterStyle.Render(string(action)))
		b.WriteString(renderKinds(report.Counters[action]))
		b.WriteString("\n")
	}

	if len(report.Conflicts) > 0 {
		fmt.Fprintf(&b, "\nConflicts (%d):\n", len(report.Conflicts))
		for _, c := range report.Conflicts {
			fmt.Fprintf(&b, "  %s <- %s %s\n", c.OriginalID, c.Item.ID, fitText(conflictTitle(c.Item), maxConflictTitle))
		}
	}

	if len(report.Errors) > 0 {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Errors (%d):", len(report.Errors))))
		b.WriteString("\n")
		for _, err := range report.Errors {
			fmt.Fprintf(&b, "  %v\n", err)
		}
	}

	return renderPage("SYNC REPORT", strings.TrimRight(b.String(), "\n"), "")
}

// RenderError formats a session failure with a hint for the operator.
func RenderError(err error, hint string) string {
	out := errorStyle.Render("sync failed: ") + err.Error()
	if hint != "" {
		out += "\n" + helpStyle.Render(hint)
	}
	return out
}

func sortedActions(report models.SyncReport) []models.SyncAction {
	actions := make([]models.SyncAction, 0, len(report.Counters))
	for action := range report.Counters {
		if report.Count(action) > 0 {
			actions = append(actions, action)
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

func renderKinds(byKind map[models.ItemType]int) string {
	kinds := make([]models.ItemType, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, byKind[kind]))
	}
	return strings.Join(parts, " ")
}

func conflictTitle(item models.Item) string {
	var body struct {
		Title string `json:"title"`
	}
	if len(item.Body) == 0 || json.Unmarshal(item.Body, &body) != nil || body.Title == "" {
		return ""
	}
	return fmt.Sprintf("%q", body.Title)
}
