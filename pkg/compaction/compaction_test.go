package compaction_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/compaction"
	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/llm"
	testutils "github.com/papercomputeco/loom/pkg/utils/test"
)

func stateWith(n int) *llm.ConversationState {
	s := llm.NewConversationState("conv")
	for i := range n {
		if i%2 == 0 {
			s.Append(llm.NewUserMessage(fmt.Sprintf("user %d", i)))
		} else {
			s.Append(llm.NewAssistantMessage(fmt.Sprintf("assistant %d", i)))
		}
	}
	return s
}

var _ = Describe("Compactor", func() {
	var (
		ctx   context.Context
		model *testutils.ScriptedModel
		c     *compaction.Compactor
	)

	BeforeEach(func() {
		ctx = context.Background()
		model = testutils.NewScriptedModel()
		var err error
		c, err = compaction.New(compaction.Config{Model: model})
		Expect(err).NotTo(HaveOccurred())
	})

	It("defaults the threshold to 10", func() {
		Expect(c.Threshold()).To(Equal(10))
		Expect(c.NeedsCompaction(stateWith(10))).To(BeFalse())
		Expect(c.NeedsCompaction(stateWith(11))).To(BeTrue())
	})

	It("is a no-op below three messages", func() {
		s := stateWith(2)
		s.Summary = "earlier"

		res, err := c.Compact(ctx, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Prune).To(BeEmpty())
		Expect(res.Summary).To(Equal("earlier"))
		Expect(model.CallCount()).To(Equal(0))
	})

	DescribeTable("leaves exactly two active messages",
		func(n int) {
			s := stateWith(n)
			last := []string{s.Messages[n-2].ID, s.Messages[n-1].ID}
			model.PushText("  a summary  ")

			res, err := c.Compact(ctx, s)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Summary).To(Equal("a summary"))
			Expect(s.Messages).To(HaveLen(n), "Compact must not modify the state")

			compaction.Apply(s, res)
			Expect(s.Messages).To(HaveLen(2))
			Expect([]string{s.Messages[0].ID, s.Messages[1].ID}).To(Equal(last))
			Expect(s.Summary).To(Equal("a summary"))
		},
		Entry("3 messages", 3),
		Entry("11 messages", 11),
		Entry("40 messages", 40),
	)

	It("creates a summary when none exists", func() {
		model.PushText("summary")
		_, err := c.Compact(ctx, stateWith(4))
		Expect(err).NotTo(HaveOccurred())

		call := model.LastCall()
		Expect(call[0].Content).To(ContainSubstring("System time:"))
		Expect(call[1].Content).To(ContainSubstring("user 0"))
		Expect(call[1].Content).To(ContainSubstring("Create a summary of the conversation above."))
		Expect(model.Actions[0]).To(BeEmpty())
	})

	It("extends an existing summary", func() {
		s := stateWith(4)
		s.Summary = "Jane likes chess."
		model.PushText("Jane likes chess and hiking.")

		_, err := c.Compact(ctx, s)
		Expect(err).NotTo(HaveOccurred())
		Expect(model.LastCall()[1].Content).To(ContainSubstring("This is a summary of the conversation to date:\n\nJane likes chess."))
		Expect(model.LastCall()[1].Content).To(ContainSubstring("Extend the summary"))
	})

	It("flattens action traffic into the transcript", func() {
		s := llm.NewConversationState("conv")
		s.Append(llm.NewUserMessage("time?"))
		a := llm.NewAssistantMessage("")
		a.ActionRequests = []llm.ActionRequest{{ID: "a1", Name: "current_time"}}
		s.Append(a)
		s.Append(llm.NewActionResult("a1", "noon", false))
		s.Append(llm.NewAssistantMessage("It is noon."))
		model.PushText("user asked the time")

		_, err := c.Compact(ctx, s)
		Expect(err).NotTo(HaveOccurred())
		transcript := model.LastCall()[1].Content
		Expect(transcript).To(ContainSubstring("assistant: [requested current_time]"))
		Expect(transcript).To(ContainSubstring("action result: noon"))
	})

	It("fails on a model error without touching the state", func() {
		s := stateWith(12)
		model.PushError(fault.New(fault.KindTransient, "model", errors.New("timeout")))

		_, err := c.Compact(ctx, s)
		Expect(fault.KindOf(err)).To(Equal(fault.KindTransient))
		Expect(s.Messages).To(HaveLen(12))
	})

	It("rejects an empty summary", func() {
		model.PushText("   ")
		_, err := c.Compact(ctx, stateWith(5))
		Expect(fault.KindOf(err)).To(Equal(fault.KindMalformedOutput))
	})

	It("requires a model", func() {
		_, err := compaction.New(compaction.Config{})
		Expect(err).To(HaveOccurred())
	})
})
