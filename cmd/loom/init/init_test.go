package initcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	initcmder "github.com/papercomputeco/loom/cmd/loom/init"
	"github.com/papercomputeco/loom/pkg/config"
)

var _ = Describe("init command", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		origDir, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tmpDir)).To(Succeed())
		DeferCleanup(os.Chdir, origDir)
	})

	execute := func(args ...string) error {
		cmd := initcmder.NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	loadConfig := func() *config.Config {
		data, err := os.ReadFile(filepath.Join(tmpDir, ".loom", "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		cfg, err := config.ParseConfigTOML(data)
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	It("rejects any arguments", func() {
		cmd := initcmder.NewInitCmd()
		Expect(cmd.Args(cmd, []string{"extra"})).NotTo(Succeed())
	})

	It("creates a .loom directory with a default config", func() {
		Expect(execute()).To(Succeed())

		info, err := os.Stat(filepath.Join(tmpDir, ".loom"))
		Expect(err).NotTo(HaveOccurred())
		Expect(info.IsDir()).To(BeTrue())

		cfg := loadConfig()
		Expect(cfg.Model.Provider).To(Equal("ollama"))
		Expect(cfg.Agent.CompactionThreshold).To(Equal(uint(10)))
	})

	It("writes the preset model settings", func() {
		Expect(execute("--preset", "anthropic")).To(Succeed())
		Expect(loadConfig().Model.Provider).To(Equal("anthropic"))
	})

	It("keeps an existing config without a preset", func() {
		Expect(execute("--preset", "openai")).To(Succeed())
		Expect(execute()).To(Succeed())
		Expect(loadConfig().Model.Provider).To(Equal("openai"))
	})

	It("overwrites an existing config only with --force", func() {
		Expect(execute("--preset", "openai")).To(Succeed())

		Expect(execute("--preset", "anthropic")).To(Succeed())
		Expect(loadConfig().Model.Provider).To(Equal("openai"))

		Expect(execute("--preset", "anthropic", "--force")).To(Succeed())
		Expect(loadConfig().Model.Provider).To(Equal("anthropic"))
	})

	It("ignores credentials and databases inside .loom", func() {
		Expect(execute()).To(Succeed())

		data, err := os.ReadFile(filepath.Join(tmpDir, ".loom", ".gitignore"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("credentials.toml"))
		Expect(string(data)).To(ContainSubstring("*.sqlite"))
	})

	It("keeps a customized .gitignore", func() {
		Expect(os.Mkdir(filepath.Join(tmpDir, ".loom"), 0o755)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(tmpDir, ".loom", ".gitignore"), []byte("*\n"), 0o644)).To(Succeed())

		Expect(execute()).To(Succeed())

		Expect(os.ReadFile(filepath.Join(tmpDir, ".loom", ".gitignore"))).To(Equal([]byte("*\n")))
	})

	It("rejects an unknown preset", func() {
		Expect(execute("--preset", "bedrock")).To(MatchError(ContainSubstring("unknown preset")))
	})
})
