package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama Model", func() {
	var (
		server   *httptest.Server
		received map[string]any
		status   int
		body     string
	)

	BeforeEach(func() {
		received = nil
		status = http.StatusOK
		body = `{"model":"llama3.2","created_at":"2026-01-01T00:00:00Z","message":{"role":"assistant","content":"Hello!"},"done":true,"prompt_eval_count":7,"eval_count":2}`

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		DeferCleanup(server.Close)
	})

	newModel := func() *ollama.Model {
		temp := 0.2
		return ollama.New(ollama.Config{BaseURL: server.URL, Temperature: &temp})
	}

	It("sends a non-streaming chat and returns text with usage", func() {
		msg, err := newModel().Invoke(context.Background(), []llm.Message{
			llm.NewSystemMessage("be nice"),
			llm.NewUserMessage("hi"),
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Content).To(Equal("Hello!"))
		Expect(msg.Usage).To(Equal(&llm.Usage{PromptTokens: 7, CompletionTokens: 2, TotalTokens: 9}))

		Expect(received["stream"]).To(BeFalse())
		Expect(received["model"]).To(Equal(ollama.DefaultModel))
		Expect(received["options"]).To(HaveKeyWithValue("temperature", 0.2))
		Expect(received).NotTo(HaveKey("tools"))
	})

	It("names the tool on result messages", func() {
		call := llm.NewAssistantMessage("")
		call.ActionRequests = []llm.ActionRequest{{ID: "a1", Name: "current_time"}}

		_, err := newModel().Invoke(context.Background(), []llm.Message{
			llm.NewUserMessage("time?"),
			call,
			llm.NewActionResult("a1", "noon", false),
		}, []llm.ActionSpec{{Name: "current_time"}})
		Expect(err).NotTo(HaveOccurred())

		msgs := received["messages"].([]any)
		Expect(msgs[2]).To(HaveKeyWithValue("role", "tool"))
		Expect(msgs[2]).To(HaveKeyWithValue("tool_name", "current_time"))
		Expect(received["tools"]).To(HaveLen(1))
	})

	It("decodes tool calls without ids", func() {
		body = `{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"search","arguments":{"query":"go"}}}]},"done":true}`

		msg, err := newModel().Invoke(context.Background(), []llm.Message{llm.NewUserMessage("go")}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.ActionRequests).To(HaveLen(1))
		Expect(msg.ActionRequests[0].ID).To(BeEmpty())
		Expect(msg.ActionRequests[0].Name).To(Equal("search"))
		Expect(msg.ActionRequests[0].Arguments).To(HaveKeyWithValue("query", "go"))
	})

	It("reports server errors as transient", func() {
		status = http.StatusServiceUnavailable
		body = `{"error":"loading model"}`

		_, err := newModel().Invoke(context.Background(), []llm.Message{llm.NewUserMessage("hi")}, nil)
		Expect(fault.IsTransient(err)).To(BeTrue())
	})

	It("reports an unreachable server as transient", func() {
		server.Close()

		_, err := newModel().Invoke(context.Background(), []llm.Message{llm.NewUserMessage("hi")}, nil)
		Expect(fault.IsTransient(err)).To(BeTrue())
	})
})
