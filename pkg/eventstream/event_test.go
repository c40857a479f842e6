package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/eventstream"
	"github.com/papercomputeco/loom/pkg/llm"
)

var _ = Describe("Event", func() {
	It("marshals TurnCompletedEvent with expected top-level keys", func() {
		started := time.Now().Add(-2 * time.Second)
		event := eventstream.NewTurnCompletedEvent(llm.Turn{
			ConversationID: "conv-1",
			UserID:         "jane",
			Messages:       []llm.Message{llm.NewUserMessage("hello"), llm.NewAssistantMessage("hi")},
			Reply:          "hi",
			Steps:          1,
		}, eventstream.EventSource{Surface: "cli", Provider: "openai", Model: "gpt-4.1"}, started, false)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("request_meta"))
		Expect(got).To(HaveKey("turn"))
	})

	It("stamps identity and duration", func() {
		started := time.Now().Add(-1500 * time.Millisecond)
		event := eventstream.NewTurnCompletedEvent(llm.Turn{}, eventstream.EventSource{}, started, true)

		Expect(event.EventID).To(HavePrefix("evt_"))
		Expect(event.EventType).To(Equal(eventstream.EventTypeTurnCompleted))
		Expect(event.RequestMeta.DurationMs).To(BeNumerically(">=", 1500))
		Expect(event.RequestMeta.Compacted).To(BeTrue())
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeTurnCompleted).To(Equal("loom.turn.completed"))
	})

	It("provides ErrNilTurnEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilTurnEvent).NotTo(BeNil())
		Expect(eventstream.ErrNilTurnEvent).To(MatchError("nil turn event"))
	})
})
