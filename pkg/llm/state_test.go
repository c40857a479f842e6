package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/llm"
)

func assistantWithAction(id, name string) llm.Message {
	m := llm.NewAssistantMessage("")
	m.ActionRequests = []llm.ActionRequest{{ID: id, Name: name}}
	return m
}

var _ = Describe("ConversationState", func() {
	var state *llm.ConversationState

	BeforeEach(func() {
		state = llm.NewConversationState("conv-1")
	})

	Describe("PendingAction", func() {
		It("returns false for an empty conversation", func() {
			_, ok := state.PendingAction()
			Expect(ok).To(BeFalse())
		})

		It("finds an unresolved request", func() {
			state.Append(llm.NewUserMessage("what time is it"))
			state.Append(assistantWithAction("a1", "current_time"))

			req, ok := state.PendingAction()
			Expect(ok).To(BeTrue())
			Expect(req.ID).To(Equal("a1"))
		})

		It("ignores a resolved request", func() {
			state.Append(llm.NewUserMessage("what time is it"))
			state.Append(assistantWithAction("a1", "current_time"))
			state.Append(llm.NewActionResult("a1", "noon", false))
			state.Append(llm.NewAssistantMessage("It is noon."))

			_, ok := state.PendingAction()
			Expect(ok).To(BeFalse())
		})
	})

	Describe("LastUserMessage", func() {
		It("skips assistant and action-result messages", func() {
			state.Append(llm.NewUserMessage("first"))
			state.Append(llm.NewUserMessage("second"))
			state.Append(assistantWithAction("a1", "x"))
			state.Append(llm.NewActionResult("a1", "ok", false))

			m, ok := state.LastUserMessage()
			Expect(ok).To(BeTrue())
			Expect(m.Content).To(Equal("second"))
		})
	})

	Describe("Prune", func() {
		It("removes only the named messages", func() {
			a := llm.NewUserMessage("a")
			b := llm.NewUserMessage("b")
			c := llm.NewUserMessage("c")
			state.Append(a)
			state.Append(b)
			state.Append(c)

			state.Prune([]string{a.ID, c.ID})
			Expect(state.Messages).To(HaveLen(1))
			Expect(state.Messages[0].ID).To(Equal(b.ID))
		})
	})

	Describe("ModelHistory", func() {
		It("drops action results whose request was pruned", func() {
			state.Append(llm.NewActionResult("gone", "orphan", false))
			state.Append(llm.NewUserMessage("hello"))

			history := state.ModelHistory()
			Expect(history).To(HaveLen(1))
			Expect(history[0].Role).To(Equal(llm.RoleUser))
		})

		It("keeps paired results", func() {
			state.Append(assistantWithAction("a1", "x"))
			state.Append(llm.NewActionResult("a1", "ok", false))

			Expect(state.ModelHistory()).To(HaveLen(2))
		})
	})

	Describe("Clone", func() {
		It("does not share message storage", func() {
			state.Append(assistantWithAction("a1", "x"))
			c := state.Clone()
			c.Messages[0].ActionRequests[0].Name = "changed"
			c.Append(llm.NewUserMessage("more"))

			Expect(state.Messages).To(HaveLen(1))
			Expect(state.Messages[0].ActionRequests[0].Name).To(Equal("x"))
		})
	})
})

var _ = Describe("Message", func() {
	It("honors only the first action request", func() {
		m := llm.NewAssistantMessage("")
		m.ActionRequests = []llm.ActionRequest{{ID: "1", Name: "first"}, {ID: "2", Name: "second"}}

		req, ok := m.FirstAction()
		Expect(ok).To(BeTrue())
		Expect(req.Name).To(Equal("first"))
	})
})
