package inmemory_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/storage"
	"github.com/papercomputeco/loom/pkg/storage/inmemory"
	"github.com/papercomputeco/loom/pkg/storage/storagetest"
)

var _ = storagetest.DescribeStore("inmemory", func() storage.Store {
	return inmemory.NewDriver()
})

var _ = Describe("Driver", func() {
	It("hands out copies that callers cannot mutate", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		ns := storage.Namespace{Kind: "profile", UserID: "u"}
		Expect(d.Put(ctx, ns, "user_profile", json.RawMessage(`{"name":"Jane"}`))).To(Succeed())

		item, err := d.Get(ctx, ns, "user_profile")
		Expect(err).NotTo(HaveOccurred())
		item.Value[2] = 'X'

		again, err := d.Get(ctx, ns, "user_profile")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Value).To(MatchJSON(`{"name":"Jane"}`))

		state := llm.NewConversationState("c")
		state.Append(llm.NewUserMessage("hi"))
		Expect(d.Save(ctx, state)).To(Succeed())
		state.Append(llm.NewUserMessage("unsaved"))

		loaded, err := d.Load(ctx, "c")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Messages).To(HaveLen(1))
	})

	It("keeps insertion order for items created in the same instant", func() {
		ctx := context.Background()
		frozen := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
		d := inmemory.NewDriver(inmemory.WithClock(func() time.Time { return frozen }))
		ns := storage.Namespace{Kind: "instructions", UserID: "u"}

		for _, key := range []string{"c", "b", "a"} {
			Expect(d.Put(ctx, ns, key, json.RawMessage(`{}`))).To(Succeed())
		}
		Expect(d.Put(ctx, ns, "c", json.RawMessage(`{"updated":true}`))).To(Succeed())

		items, err := d.Search(ctx, ns)
		Expect(err).NotTo(HaveOccurred())
		keys := make([]string, 0, len(items))
		for _, item := range items {
			keys = append(keys, item.Key)
		}
		Expect(keys).To(Equal([]string{"c", "b", "a"}))
	})
})
