// Package storagetest holds the behavior every storage.Store backend must
// satisfy, shared by the driver test suites.
package storagetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/storage"
)

// DescribeStore registers conformance specs for the store returned by newStore.
// newStore is called before each spec; the returned store is closed after it.
func DescribeStore(name string, newStore func() storage.Store) bool {
	return Describe(name+" store conformance", func() {
		var (
			store storage.Store
			ctx   context.Context
			ns    storage.Namespace
		)

		BeforeEach(func() {
			ctx = context.Background()
			store = newStore()
			ns = storage.Namespace{Kind: "projects", UserID: "user-1"}
		})

		AfterEach(func() {
			if store != nil {
				Expect(store.Close()).To(Succeed())
			}
		})

		Describe("Get", func() {
			It("returns NotFoundError for a missing key", func() {
				_, err := store.Get(ctx, ns, "missing")
				Expect(err).To(HaveOccurred())
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})
		})

		Describe("Put", func() {
			It("stores and retrieves a value", func() {
				Expect(store.Put(ctx, ns, "k1", json.RawMessage(`{"title":"garden"}`))).To(Succeed())

				item, err := store.Get(ctx, ns, "k1")
				Expect(err).NotTo(HaveOccurred())
				Expect(item.Key).To(Equal("k1"))
				Expect(item.Namespace).To(Equal(ns))
				Expect(item.Value).To(MatchJSON(`{"title":"garden"}`))
			})

			It("replaces the value of an existing key", func() {
				Expect(store.Put(ctx, ns, "k1", json.RawMessage(`{"v":1}`))).To(Succeed())
				Expect(store.Put(ctx, ns, "k1", json.RawMessage(`{"v":2}`))).To(Succeed())

				item, err := store.Get(ctx, ns, "k1")
				Expect(err).NotTo(HaveOccurred())
				Expect(item.Value).To(MatchJSON(`{"v":2}`))

				items, err := store.Search(ctx, ns)
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(1))
			})

			It("rejects invalid JSON", func() {
				Expect(store.Put(ctx, ns, "k1", json.RawMessage(`{nope`))).NotTo(Succeed())
			})

			It("isolates namespaces", func() {
				other := storage.Namespace{Kind: "projects", UserID: "user-2"}
				Expect(store.Put(ctx, ns, "k1", json.RawMessage(`{"v":1}`))).To(Succeed())

				_, err := store.Get(ctx, other, "k1")
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})
		})

		Describe("Search", func() {
			It("returns nothing for an empty namespace", func() {
				items, err := store.Search(ctx, ns)
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(BeEmpty())
			})

			It("orders items by creation time", func() {
				for i, key := range []string{"zeta", "alpha", "mid"} {
					Expect(store.Put(ctx, ns, key, json.RawMessage(fmt.Sprintf(`{"i":%d}`, i)))).To(Succeed())
					time.Sleep(2 * time.Millisecond)
				}

				items, err := store.Search(ctx, ns)
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(3))
				Expect(items[0].Key).To(Equal("zeta"))
				Expect(items[1].Key).To(Equal("alpha"))
				Expect(items[2].Key).To(Equal("mid"))
			})

			It("keeps insertion order for back-to-back writes", func() {
				keys := make([]string, 0, 20)
				for i := 20; i > 0; i-- {
					key := fmt.Sprintf("k%02d", i)
					keys = append(keys, key)
					Expect(store.Put(ctx, ns, key, json.RawMessage(`{}`))).To(Succeed())
				}
				Expect(store.Put(ctx, ns, "k20", json.RawMessage(`{"updated":true}`))).To(Succeed())

				items, err := store.Search(ctx, ns)
				Expect(err).NotTo(HaveOccurred())
				got := make([]string, 0, len(items))
				for _, item := range items {
					got = append(got, item.Key)
				}
				Expect(got).To(Equal(keys))
			})

			It("handles concurrent writers", func() {
				var wg sync.WaitGroup
				for i := range 10 {
					wg.Add(1)
					go func() {
						defer wg.Done()
						defer GinkgoRecover()
						Expect(store.Put(ctx, ns, fmt.Sprintf("k%d", i), json.RawMessage(`{}`))).To(Succeed())
					}()
				}
				wg.Wait()

				items, err := store.Search(ctx, ns)
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(10))
			})
		})

		Describe("checkpoints", func() {
			It("loads an empty state for an unknown conversation", func() {
				state, err := store.Load(ctx, "conv-new")
				Expect(err).NotTo(HaveOccurred())
				Expect(state.ConversationID).To(Equal("conv-new"))
				Expect(state.Messages).To(BeEmpty())
				Expect(state.Summary).To(BeEmpty())
			})

			It("round-trips messages and summary", func() {
				state := llm.NewConversationState("conv-1")
				state.Append(llm.NewUserMessage("what time is it"))
				assistant := llm.NewAssistantMessage("")
				assistant.ActionRequests = []llm.ActionRequest{{
					ID:        "a1",
					Name:      "current_time",
					Arguments: map[string]any{"zone": "UTC"},
				}}
				state.Append(assistant)
				state.Append(llm.NewActionResult("a1", "boom", true))
				state.Summary = "user asked for the time"

				Expect(store.Save(ctx, state)).To(Succeed())

				loaded, err := store.Load(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded.Summary).To(Equal("user asked for the time"))
				Expect(loaded.Messages).To(HaveLen(3))
				Expect(loaded.Messages[0].Content).To(Equal("what time is it"))
				Expect(loaded.Messages[1].ActionRequests).To(HaveLen(1))
				Expect(loaded.Messages[1].ActionRequests[0].Arguments).To(HaveKeyWithValue("zone", "UTC"))
				Expect(loaded.Messages[2].ActionResultOf).To(Equal("a1"))
				Expect(loaded.Messages[2].IsError).To(BeTrue())
			})

			It("overwrites the previous checkpoint", func() {
				state := llm.NewConversationState("conv-1")
				state.Append(llm.NewUserMessage("one"))
				state.Append(llm.NewUserMessage("two"))
				Expect(store.Save(ctx, state)).To(Succeed())

				state.Prune([]string{state.Messages[0].ID})
				state.Summary = "one"
				Expect(store.Save(ctx, state)).To(Succeed())

				loaded, err := store.Load(ctx, "conv-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded.Messages).To(HaveLen(1))
				Expect(loaded.Messages[0].Content).To(Equal("two"))
				Expect(loaded.Summary).To(Equal("one"))
			})

			It("rejects a state without a conversation id", func() {
				Expect(store.Save(ctx, &llm.ConversationState{})).NotTo(Succeed())
			})
		})
	})
}
