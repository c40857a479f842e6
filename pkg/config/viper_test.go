package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/loom/pkg/config"
)

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
		Expect(v.IsSet("model.temperature")).To(BeFalse())
	})

	It("reads config file values over defaults", func() {
		data := `[model]
provider = "anthropic"
temperature = 0.3
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Model.Provider).To(Equal("anthropic"))
		Expect(cfg.Model.Temperature).To(Equal(0.3))
		Expect(v.IsSet("model.temperature")).To(BeTrue())
		Expect(cfg.Model.MaxAttempts).To(Equal(uint(4)))
	})

	It("env vars take precedence over config file values", func() {
		data := `[model]
provider = "anthropic"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("LOOM_MODEL_PROVIDER", "openai")
		GinkgoT().Setenv("LOOM_AGENT_MAX_STEPS", "3")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Model.Provider).To(Equal("openai"))
		Expect(cfg.Agent.MaxSteps).To(Equal(uint(3)))
	})
})

var _ = Describe("Flag registry", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		keys := []string{config.FlagAPIListen, config.FlagMaxSteps}
		config.AddFlags(cmd, config.Flags, keys)

		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())
		Expect(cmd.Flags().Set("max-steps", "5")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, config.Flags, keys)

		Expect(v.GetString("api.listen")).To(Equal(":7777"))
		Expect(v.GetUint("agent.max_steps")).To(Equal(uint(5)))
	})

	It("falls through to config when flag not set", func() {
		data := `[api]
listen = ":5555"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.AddFlags(cmd, config.Flags, []string{config.FlagAPIListen})
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagAPIListen})

		Expect(v.GetString("api.listen")).To(Equal(":5555"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{"nonexistent"})

		Expect(v.GetString("api.listen")).To(Equal(config.NewDefaultConfig().API.Listen))
	})

	It("pulls name, shorthand, default, and description from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var user string
		config.AddStringFlag(cmd, config.Flags, config.FlagUserID, &user)

		f := cmd.Flags().Lookup("user")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("u"))
		Expect(f.Usage).To(Equal(config.Flags[config.FlagUserID].Description))
		Expect(f.DefValue).To(Equal("default"))
	})

	It("registers uint flags with their defaults", func() {
		cmd := &cobra.Command{Use: "test"}
		config.AddFlags(cmd, config.Flags, []string{config.FlagCompactionThreshold})

		f := cmd.Flags().Lookup("compaction-threshold")
		Expect(f).NotTo(BeNil())
		Expect(f.Value.Type()).To(Equal("uint"))
		Expect(f.DefValue).To(Equal("10"))
	})

	It("maps every registry entry to a config key", func() {
		for key, f := range config.Flags {
			Expect(config.IsValidConfigKey(f.ViperKey)).To(BeTrue(), key)
		}
	})
})
