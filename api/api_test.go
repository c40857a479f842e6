package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/api"
	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/graph"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/logger"
	"github.com/papercomputeco/loom/pkg/memory"
	"github.com/papercomputeco/loom/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/loom/pkg/utils/test"
)

// failingAgent fails every call with err.
type failingAgent struct {
	err error
}

func (f failingAgent) Advance(context.Context, string, string, string) (string, error) {
	return "", f.err
}

func (f failingAgent) Conversation(context.Context, string) (*llm.ConversationState, error) {
	return nil, f.err
}

func (f failingAgent) Memory(context.Context, string) (*memory.Snapshot, error) {
	return nil, f.err
}

// panickingAgent panics on every turn.
type panickingAgent struct {
	failingAgent
}

func (panickingAgent) Advance(context.Context, string, string, string) (string, error) {
	panic("agent exploded")
}

func decode[T any](resp *http.Response) T {
	defer resp.Body.Close()
	var out T
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, &out)).To(Succeed(), string(body))
	return out
}

func postTurn(server *api.Server, id string, body any) *http.Response {
	data, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())

	req, err := http.NewRequest(http.MethodPost, "/v1/conversations/"+id+"/turns", bytes.NewReader(data))
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")

	resp, err := server.App().Test(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func get(server *api.Server, path string) *http.Response {
	req, err := http.NewRequest(http.MethodGet, path, nil)
	Expect(err).NotTo(HaveOccurred())
	resp, err := server.App().Test(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

var _ = Describe("Server", func() {
	var (
		model  *testutils.ScriptedModel
		server *api.Server
	)

	BeforeEach(func() {
		model = testutils.NewScriptedModel()
		engine, err := graph.New(graph.Config{
			Model:  model,
			Store:  inmemory.NewDriver(),
			Logger: logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		server, err = api.NewServer(api.Config{ListenAddr: ":0"}, engine, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	It("answers ping", func() {
		resp := get(server, "/ping")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(decode[string](resp)).To(Equal("pong"))
	})

	Describe("POST /v1/conversations/:id/turns", func() {
		It("advances the conversation and returns the reply", func() {
			model.PushText("Hello there.")

			resp := postTurn(server, "c1", api.AdvanceRequest{UserID: "u1", Text: "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			out := decode[api.AdvanceResponse](resp)
			Expect(out.ConversationID).To(Equal("c1"))
			Expect(out.Reply).To(Equal("Hello there."))
		})

		It("rejects a request without text", func() {
			resp := postTurn(server, "c1", api.AdvanceRequest{UserID: "u1"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(model.CallCount()).To(BeZero())
		})

		It("rejects a malformed body", func() {
			req, err := http.NewRequest(http.MethodPost, "/v1/conversations/c1/turns", bytes.NewReader([]byte("{")))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports a model failure as unavailable", func() {
			model.PushError(fault.New(fault.KindTransient, "test", errors.New("overloaded")))

			resp := postTurn(server, "c1", api.AdvanceRequest{UserID: "u1", Text: "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
			Expect(decode[api.ErrorResponse](resp).Kind).To(Equal("transient"))
		})
	})

	It("answers 500 when a handler panics and keeps serving", func() {
		s, err := api.NewServer(api.Config{ListenAddr: ":0", DisableMCP: true}, panickingAgent{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		resp := postTurn(s, "c1", api.AdvanceRequest{UserID: "u1", Text: "hi"})
		Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(decode[api.ErrorResponse](resp).Error).To(ContainSubstring("agent exploded"))

		Expect(get(s, "/ping").StatusCode).To(Equal(http.StatusOK))
	})

	Describe("GET /v1/conversations/:id", func() {
		It("returns 404 for an unknown conversation", func() {
			resp := get(server, "/v1/conversations/missing")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("returns the checkpointed messages", func() {
			model.PushText("Hello there.")
			Expect(postTurn(server, "c1", api.AdvanceRequest{UserID: "u1", Text: "hi"}).StatusCode).To(Equal(http.StatusOK))

			resp := get(server, "/v1/conversations/c1")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			out := decode[api.ConversationResponse](resp)
			Expect(out.ConversationID).To(Equal("c1"))
			Expect(out.Messages).To(HaveLen(2))
			Expect(out.Messages[0].Role).To(Equal(llm.RoleUser))
			Expect(out.Messages[1].Content).To(Equal("Hello there."))
		})
	})

	Describe("GET /v1/users/:id/memory", func() {
		It("returns the profile saved during a turn", func() {
			model.
				PushAction(memory.TagProfile, nil, "").
				PushText(`{"name": "Jane"}`).
				PushText("Nice to meet you, Jane.")
			Expect(postTurn(server, "c1", api.AdvanceRequest{UserID: "u1", Text: "I'm Jane"}).StatusCode).To(Equal(http.StatusOK))

			resp := get(server, "/v1/users/u1/memory")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			snap := decode[memory.Snapshot](resp)
			Expect(snap.Profile).NotTo(BeNil())
			Expect(*snap.Profile.Name).To(Equal("Jane"))
		})
	})

	It("mounts the MCP endpoint", func() {
		resp := get(server, "/mcp")
		Expect(resp.StatusCode).NotTo(Equal(http.StatusNotFound))
	})
})

var _ = Describe("fault status mapping", func() {
	DescribeTable("maps failure kinds to HTTP status",
		func(kind fault.Kind, status int) {
			server, err := api.NewServer(api.Config{DisableMCP: true}, failingAgent{
				err: fault.New(kind, "test", errors.New("boom")),
			}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			resp := get(server, "/v1/users/u1/memory")
			Expect(resp.StatusCode).To(Equal(status))
		},
		Entry("contract", fault.KindContract, http.StatusBadRequest),
		Entry("store unavailable", fault.KindStoreUnavailable, http.StatusServiceUnavailable),
		Entry("malformed output", fault.KindMalformedOutput, http.StatusBadGateway),
		Entry("step limit", fault.KindStepLimit, http.StatusUnprocessableEntity),
		Entry("canceled", fault.KindCanceled, http.StatusRequestTimeout),
		Entry("unknown", fault.KindUnknown, http.StatusInternalServerError),
	)
})
