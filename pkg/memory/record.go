package memory

import (
	"slices"
	"strings"
	"time"
)

// Profile is what is known about the user personally. Nil fields are unknown.
type Profile struct {
	Name     *string  `json:"name,omitempty"`
	Location *string  `json:"location,omitempty"`
	Job      *string  `json:"job,omitempty"`
	Passions []string `json:"passions,omitempty"`
}

// Merge applies update on top of p. Fields update leaves out keep their
// value in p. Passions are de-duplicated, case-insensitively.
func (p Profile) Merge(update Profile) Profile {
	out := p
	if update.Name != nil {
		out.Name = update.Name
	}
	if update.Location != nil {
		out.Location = update.Location
	}
	if update.Job != nil {
		out.Job = update.Job
	}
	if update.Passions != nil {
		out.Passions = dedupe(update.Passions)
	}
	return out
}

// IsEmpty reports whether nothing is known.
func (p Profile) IsEmpty() bool {
	return p.Name == nil && p.Location == nil && p.Job == nil && len(p.Passions) == 0
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return slices.Clip(out)
}

// Instruction is a paraphrased user preference about the assistant.
type Instruction struct {
	Content string `json:"content"`
}

// Project statuses.
const (
	StatusPlanned    = "planned"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// DateLayout is the due date format.
const DateLayout = "2006-01-02"

// Project is a task or goal the user is working on.
type Project struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	DueDate     *string `json:"due_date"`
	Status      string  `json:"status"`
}

// Normalize coerces Status to a known value and DueDate to DateLayout or nil.
func (p *Project) Normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.Status = NormalizeStatus(p.Status)

	if p.DueDate == nil {
		return
	}
	d := strings.TrimSpace(*p.DueDate)
	for _, layout := range []string{DateLayout, time.RFC3339, "2006/01/02"} {
		if t, err := time.Parse(layout, d); err == nil {
			s := t.Format(DateLayout)
			p.DueDate = &s
			return
		}
	}
	p.DueDate = nil
}

// NormalizeStatus maps loose spellings such as "in progress" onto the
// canonical statuses. Unknown values become planned.
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	switch s {
	case StatusInProgress, "inprogress", "started", "ongoing":
		return StatusInProgress
	case StatusCompleted, "complete", "done", "finished":
		return StatusCompleted
	default:
		return StatusPlanned
	}
}
