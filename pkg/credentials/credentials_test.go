package credentials_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("targets credentials.toml in the override directory", func() {
		Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := `version = 0

[providers.openai]
api_key = "sk-test-key"
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers["openai"].APIKey).To(Equal("sk-test-key"))
		})

		It("rejects an unknown version", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte("version = 3\n"), 0o600)).To(Succeed())

			_, err := mgr.Load()
			Expect(err).To(MatchError(ContainSubstring("unsupported credentials version 3")))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "credentials.toml"), []byte("not valid [[["), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).To(HaveOccurred())
			Expect(creds).To(BeNil())
		})
	})

	Describe("Save", func() {
		It("persists credentials with restricted permissions", func() {
			Expect(mgr.Save(&credentials.Credentials{
				Providers: map[string]credentials.ProviderCredential{"openai": {APIKey: "sk-test"}},
			})).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "credentials.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("returns error for nil credentials", func() {
			Expect(mgr.Save(nil)).NotTo(Succeed())
		})
	})

	Describe("SetKey and GetKey", func() {
		It("stores, overwrites and isolates keys per provider", func() {
			Expect(mgr.SetKey("openai", "sk-old")).To(Succeed())
			Expect(mgr.SetKey("openai", " sk-new \n")).To(Succeed())
			Expect(mgr.SetKey("anthropic", "sk-anthropic")).To(Succeed())

			Expect(mgr.GetKey("openai")).To(Equal("sk-new"))
			Expect(mgr.GetKey("anthropic")).To(Equal("sk-anthropic"))
		})

		It("stamps when the key was stored", func() {
			before := time.Now().UTC().Add(-time.Second)
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Providers["openai"].StoredAt).To(BeTemporally(">=", before.Truncate(time.Second)))
			Expect(creds.Providers["openai"].StoredAt).To(BeTemporally("<=", time.Now()))
		})

		It("rejects providers without API keys", func() {
			Expect(mgr.SetKey("ollama", "x")).To(MatchError(ContainSubstring("does not use API keys")))
		})

		It("returns an empty key for unknown providers", func() {
			Expect(mgr.GetKey("nonexistent")).To(BeEmpty())
		})
	})

	Describe("RemoveKey", func() {
		It("removes an existing key", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())
			Expect(mgr.RemoveKey("openai")).To(Succeed())
			Expect(mgr.GetKey("openai")).To(BeEmpty())
		})

		It("is a no-op for nonexistent provider", func() {
			Expect(mgr.RemoveKey("nonexistent")).To(Succeed())
			Expect(mgr.GetTarget()).NotTo(BeAnExistingFile())
		})
	})

	Describe("Entries", func() {
		It("returns stored credentials in provider order", func() {
			Expect(mgr.Entries()).To(BeEmpty())

			Expect(mgr.SetKey("openai", "sk-1")).To(Succeed())
			Expect(mgr.SetKey("anthropic", "sk-2")).To(Succeed())

			entries, err := mgr.Entries()
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].Provider).To(Equal("anthropic"))
			Expect(entries[0].APIKey).To(Equal("sk-2"))
			Expect(entries[1].Provider).To(Equal("openai"))
			Expect(entries[1].APIKey).To(Equal("sk-1"))
		})
	})
})

var _ = Describe("IsSupportedProvider", func() {
	It("accepts keyed providers only", func() {
		Expect(credentials.IsSupportedProvider("openai")).To(BeTrue())
		Expect(credentials.IsSupportedProvider("anthropic")).To(BeTrue())
		Expect(credentials.IsSupportedProvider("ollama")).To(BeFalse())
	})
})

var _ = Describe("Mask", func() {
	It("keeps only the last four characters", func() {
		Expect(credentials.Mask("sk-abcdef1234")).To(Equal("********1234"))
		Expect(credentials.Mask("abc")).To(Equal("***"))
	})
})
