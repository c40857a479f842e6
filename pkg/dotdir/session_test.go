package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/dotdir"
)

var _ = Describe("dotdir.Manager session", func() {
	var (
		tmpDir string
		m      *dotdir.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	It("returns nil when no session exists", func() {
		s, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeNil())
	})

	It("round-trips a session", func() {
		started := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		Expect(m.SaveSession(&dotdir.Session{ConversationID: "conv-1", UserID: "jane", StartedAt: started}, tmpDir)).To(Succeed())

		s, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.ConversationID).To(Equal("conv-1"))
		Expect(s.UserID).To(Equal("jane"))
		Expect(s.StartedAt.Equal(started)).To(BeTrue())
	})

	It("rejects sessions without a conversation id", func() {
		Expect(m.SaveSession(nil, tmpDir)).NotTo(Succeed())
		Expect(m.SaveSession(&dotdir.Session{UserID: "jane"}, tmpDir)).NotTo(Succeed())
	})

	It("returns an error for invalid JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("{"), 0o600)).To(Succeed())
		_, err := m.LoadSession(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("parsing session")))
	})

	It("clears the session and tolerates clearing twice", func() {
		Expect(m.SaveSession(&dotdir.Session{ConversationID: "conv-1"}, tmpDir)).To(Succeed())
		Expect(m.ClearSession(tmpDir)).To(Succeed())
		Expect(filepath.Join(tmpDir, "session.json")).NotTo(BeAnExistingFile())
		Expect(m.ClearSession(tmpDir)).To(Succeed())
	})
})
