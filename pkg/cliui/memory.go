package cliui

import (
	"fmt"
	"io"
	"strings"

	"github.com/papercomputeco/loom/pkg/memory"
)

// Memory writes a user's long-term memory as three sections.
func Memory(w io.Writer, snap *memory.Snapshot) {
	fmt.Fprintf(w, "\n  %s %s\n\n", HeaderStyle.Render("Memory"), NameStyle.Render(snap.UserID))

	fmt.Fprintf(w, "  %s\n", KeyStyle.Render("Profile"))
	p := snap.Profile
	if p == nil || p.IsEmpty() {
		fmt.Fprintf(w, "    %s\n", DimStyle.Render("(empty)"))
	} else {
		field(w, "name", p.Name)
		field(w, "location", p.Location)
		field(w, "job", p.Job)
		if len(p.Passions) > 0 {
			fmt.Fprintf(w, "    %s %s\n", DimStyle.Render("passions"), strings.Join(p.Passions, ", "))
		}
	}

	fmt.Fprintf(w, "\n  %s\n", KeyStyle.Render("Projects"))
	if len(snap.Projects) == 0 {
		fmt.Fprintf(w, "    %s\n", DimStyle.Render("(none)"))
	}
	for _, pr := range snap.Projects {
		due := ""
		if pr.DueDate != nil {
			due = " due " + *pr.DueDate
		}
		fmt.Fprintf(w, "    • %s %s\n", pr.Title, DimStyle.Render("["+pr.Status+due+"]"))
	}

	fmt.Fprintf(w, "\n  %s\n", KeyStyle.Render("Instructions"))
	if len(snap.Instructions) == 0 {
		fmt.Fprintf(w, "    %s\n", DimStyle.Render("(none)"))
	}
	for _, ins := range snap.Instructions {
		fmt.Fprintf(w, "    • %s\n", ins.Content)
	}
	fmt.Fprintln(w)
}

func field(w io.Writer, name string, v *string) {
	if v == nil || *v == "" {
		return
	}
	fmt.Fprintf(w, "    %s %s\n", DimStyle.Render(name), *v)
}
