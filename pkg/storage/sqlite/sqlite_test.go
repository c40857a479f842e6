package sqlite_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/storage"
	"github.com/papercomputeco/loom/pkg/storage/sqlite"
	"github.com/papercomputeco/loom/pkg/storage/storagetest"
)

var _ = storagetest.DescribeStore("sqlite", func() storage.Store {
	d, err := sqlite.NewDriver(context.Background(), ":memory:")
	Expect(err).NotTo(HaveOccurred())
	return d
})

var _ = Describe("NewDriver", func() {
	It("creates a file database and persists across reopen", func() {
		ctx := context.Background()
		dbPath := filepath.Join(GinkgoT().TempDir(), "loom.db")

		d, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())

		ns := storage.Namespace{Kind: "instructions", UserID: "u1"}
		Expect(d.Put(ctx, ns, "k", json.RawMessage(`{"content":"be brief"}`))).To(Succeed())
		state := llm.NewConversationState("conv")
		state.Append(llm.NewUserMessage("hello"))
		Expect(d.Save(ctx, state)).To(Succeed())
		Expect(d.Close()).To(Succeed())

		reopened, err := sqlite.NewDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		item, err := reopened.Get(ctx, ns, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(item.Value).To(MatchJSON(`{"content":"be brief"}`))

		loaded, err := reopened.Load(ctx, "conv")
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.Messages).To(HaveLen(1))
	})

	It("keeps the creation time when a key is replaced", func() {
		ctx := context.Background()
		d, err := sqlite.NewDriver(ctx, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()

		ns := storage.Namespace{Kind: "profile", UserID: "u1"}
		Expect(d.Put(ctx, ns, "user_profile", json.RawMessage(`{"name":"A"}`))).To(Succeed())
		first, err := d.Get(ctx, ns, "user_profile")
		Expect(err).NotTo(HaveOccurred())

		Expect(d.Put(ctx, ns, "user_profile", json.RawMessage(`{"name":"B"}`))).To(Succeed())
		second, err := d.Get(ctx, ns, "user_profile")
		Expect(err).NotTo(HaveOccurred())

		Expect(second.CreatedAt.Equal(first.CreatedAt)).To(BeTrue())
		Expect(second.Value).To(MatchJSON(`{"name":"B"}`))
	})
})
