package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/cliui"
	"github.com/papercomputeco/loom/pkg/memory"
)

var _ = Describe("Step", func() {
	It("returns the result of fn and ends the line", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := cliui.Step(&buf, "thinking", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("thinking"))
		Expect(buf.String()).To(HaveSuffix("\n"))
	})
})

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below one second", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses seconds above one second", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Reply", func() {
	It("writes plain replies verbatim", func() {
		var buf bytes.Buffer
		cliui.Reply(&buf, "**hi**", false)
		Expect(buf.String()).To(ContainSubstring("**hi**"))
	})
})

var _ = Describe("Memory", func() {
	It("writes every section", func() {
		name := "Ada"
		due := "2026-11-01"
		snap := &memory.Snapshot{
			UserID:  "u1",
			Profile: &memory.Profile{Name: &name, Passions: []string{"chess"}},
			Projects: []memory.StoredProject{{
				Key:     "k1",
				Project: memory.Project{Title: "Launch", Status: memory.StatusPlanned, DueDate: &due},
			}},
		}

		var buf bytes.Buffer
		cliui.Memory(&buf, snap)

		out := buf.String()
		Expect(out).To(ContainSubstring("Ada"))
		Expect(out).To(ContainSubstring("chess"))
		Expect(out).To(ContainSubstring("Launch"))
		Expect(out).To(ContainSubstring("due 2026-11-01"))
		Expect(out).To(ContainSubstring("(none)"))
	})
})
