package memory_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/memory"
)

var _ = Describe("KindForAction", func() {
	DescribeTable("maps action requests to kinds",
		func(name string, args map[string]any, want memory.Kind, ok bool) {
			got, found := memory.KindForAction(llm.ActionRequest{Name: name, Arguments: args})
			Expect(found).To(Equal(ok))
			Expect(got).To(Equal(want))
		},
		Entry("profile tag", memory.TagProfile, nil, memory.KindProfile, true),
		Entry("instruction tag", memory.TagInstructions, nil, memory.KindInstructions, true),
		Entry("project tag", memory.TagProjects, nil, memory.KindProjects, true),
		Entry("bare kind", "projects", nil, memory.KindProjects, true),
		Entry("legacy user", memory.TagLegacy, map[string]any{"update_type": "user"}, memory.KindProfile, true),
		Entry("legacy todo", memory.TagLegacy, map[string]any{"update_type": "todo"}, memory.KindProjects, true),
		Entry("legacy instructions", memory.TagLegacy, map[string]any{"update_type": "instructions"}, memory.KindInstructions, true),
		Entry("legacy without type", memory.TagLegacy, nil, memory.Kind(""), false),
		Entry("unknown", "search", nil, memory.Kind(""), false),
	)

	It("exposes one spec per kind", func() {
		specs := memory.Specs()
		Expect(specs).To(HaveLen(3))
		for _, k := range memory.Kinds {
			Expect(specs).To(ContainElement(HaveField("Name", k.Tag())))
		}
	})
})

var _ = Describe("NormalizeStatus", func() {
	It("accepts loose spellings", func() {
		Expect(memory.NormalizeStatus("In Progress")).To(Equal(memory.StatusInProgress))
		Expect(memory.NormalizeStatus("in-progress")).To(Equal(memory.StatusInProgress))
		Expect(memory.NormalizeStatus("done")).To(Equal(memory.StatusCompleted))
		Expect(memory.NormalizeStatus("")).To(Equal(memory.StatusPlanned))
	})
})
