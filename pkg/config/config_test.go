package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/loom/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeConfig := func(data string) {
		err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads all config fields", func() {
			writeConfig(`version = 0

[storage]
driver = "postgres"
sqlite_path = "/tmp/loom.sqlite"
postgres_dsn = "postgres://localhost/loom"

[model]
provider = "anthropic"
target = "https://api.anthropic.com"
name = "claude-haiku-4-5-20251001"
temperature = 0.2
max_attempts = 2

[agent]
compaction_threshold = 20
max_steps = 4
user_id = "alice"

[api]
listen = ":9091"

[vector_store]
provider = "sqlite"
target = "/tmp/vectors.sqlite"

[embedding]
provider = "ollama"
target = "http://localhost:11434"
model = "nomic-embed-text"
dimensions = 1024

[eventstream]
provider = "kafka"
brokers = "localhost:9092"
topic = "turns"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage).To(Equal(config.StorageConfig{
				Driver:      "postgres",
				SQLitePath:  "/tmp/loom.sqlite",
				PostgresDSN: "postgres://localhost/loom",
			}))
			Expect(cfg.Model).To(Equal(config.ModelConfig{
				Provider:    "anthropic",
				Target:      "https://api.anthropic.com",
				Name:        "claude-haiku-4-5-20251001",
				Temperature: 0.2,
				MaxAttempts: 2,
			}))
			Expect(cfg.Agent).To(Equal(config.AgentConfig{CompactionThreshold: 20, MaxSteps: 4, UserID: "alice"}))
			Expect(cfg.API.Listen).To(Equal(":9091"))
			Expect(cfg.VectorStore.Target).To(Equal("/tmp/vectors.sqlite"))
			Expect(cfg.Embedding.Model).To(Equal("nomic-embed-text"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(1024)))
			Expect(cfg.EventStream).To(Equal(config.EventStreamConfig{Provider: "kafka", Brokers: "localhost:9092", Topic: "turns"}))
		})

		It("fills in defaults for unset fields in a partial config", func() {
			writeConfig(`[model]
provider = "openai"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Model.Provider).To(Equal("openai"))
			Expect(cfg.Model.MaxAttempts).To(Equal(defaults.Model.MaxAttempts))
			Expect(cfg.Storage.Driver).To(Equal(defaults.Storage.Driver))
			Expect(cfg.Agent).To(Equal(defaults.Agent))
			Expect(cfg.Embedding).To(Equal(defaults.Embedding))
			Expect(cfg.EventStream).To(Equal(defaults.EventStream))
		})

		It("returns error for malformed TOML", func() {
			writeConfig("not valid toml [[[")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(cfg).To(BeNil())
		})

		It("returns error for unsupported config version", func() {
			writeConfig("version = 99\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
			Expect(cfg).To(BeNil())
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Model.Provider = "anthropic"
			cfg.Agent.UserID = "bob"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).NotTo(Succeed())
		})
	})

	Describe("SetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets a string config key", func() {
			Expect(c.SetConfigValue("model.provider", "anthropic")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Model.Provider).To(Equal("anthropic"))
		})

		It("sets a uint config key", func() {
			Expect(c.SetConfigValue("agent.max_steps", "12")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Agent.MaxSteps).To(Equal(uint(12)))
		})

		It("sets a float config key", func() {
			Expect(c.SetConfigValue("model.temperature", "0.7")).To(Succeed())

			value, err := c.GetConfigValue("model.temperature")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("0.7"))
		})

		It("rejects an out of range temperature", func() {
			err := c.SetConfigValue("model.temperature", "3")
			Expect(err).To(MatchError(ContainSubstring("outside")))
		})

		It("returns error for unknown key", func() {
			err := c.SetConfigValue("nonexistent_key", "value")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		DescribeTable("restricts enumerated keys",
			func(key, value string, ok bool) {
				err := c.SetConfigValue(key, value)
				if ok {
					Expect(err).NotTo(HaveOccurred())
					return
				}
				Expect(err).To(MatchError(ContainSubstring("invalid value for " + key)))
			},
			Entry("known storage driver", "storage.driver", "Postgres", true),
			Entry("unknown storage driver", "storage.driver", "mysql", false),
			Entry("unknown model provider", "model.provider", "bedrock", false),
			Entry("kafka event stream", "eventstream.provider", "kafka", true),
			Entry("unknown event stream", "eventstream.provider", "nats", false),
			Entry("empty resets to the default", "storage.driver", "", true),
		)

		It("lowercases enumerated values", func() {
			Expect(c.SetConfigValue("storage.driver", "InMemory")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.Driver).To(Equal("inmemory"))
		})

		It("unsets keys back to their defaults", func() {
			Expect(c.SetConfigValue("agent.max_steps", "12")).To(Succeed())
			Expect(c.SetConfigValue("model.temperature", "0.4")).To(Succeed())

			Expect(c.UnsetConfigValue("agent.max_steps")).To(Succeed())
			Expect(c.UnsetConfigValue("model.temperature")).To(Succeed())

			Expect(c.GetConfigValue("agent.max_steps")).To(Equal("8"))
			Expect(c.GetConfigValue("model.temperature")).To(BeEmpty())
		})

		It("returns error for invalid uint value", func() {
			err := c.SetConfigValue("embedding.dimensions", "not-a-number")
			Expect(err).To(MatchError(ContainSubstring("invalid value for embedding.dimensions")))
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("model.provider", "openai")).To(Succeed())
			Expect(c.SetConfigValue("agent.user_id", "carol")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Model.Provider).To(Equal("openai"))
			Expect(cfg.Agent.UserID).To(Equal("carol"))
		})
	})

	Describe("GetConfigValue", func() {
		It("returns default values when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			value, err := c.GetConfigValue("agent.compaction_threshold")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("10"))

			value, err = c.GetConfigValue("model.name")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(BeEmpty())
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.GetConfigValue("proxy.upstream")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("DefaultConfigValue", func() {
	It("returns built-in defaults", func() {
		Expect(config.DefaultConfigValue("storage.driver")).To(Equal("sqlite"))
		Expect(config.DefaultConfigValue("model.name")).To(BeEmpty())
		_, err := config.DefaultConfigValue("nope")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("returns every key in section order", func() {
		keys := config.ValidConfigKeys()
		Expect(keys).To(HaveLen(22))
		Expect(keys[0]).To(Equal("storage.driver"))
		Expect(keys[len(keys)-1]).To(Equal("eventstream.topic"))
		for _, k := range keys {
			Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
		}
	})

	It("rejects unknown keys", func() {
		Expect(config.IsValidConfigKey("proxy.listen")).To(BeFalse())
		Expect(config.IsValidConfigKey("provider")).To(BeFalse())
	})
})

var _ = Describe("PresetConfig", func() {
	DescribeTable("sets the model section",
		func(name, provider, target string) {
			cfg, err := config.PresetConfig(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Model.Provider).To(Equal(provider))
			Expect(cfg.Model.Target).To(Equal(target))
			Expect(cfg.Model.Name).NotTo(BeEmpty())
			Expect(cfg.Agent).To(Equal(config.NewDefaultConfig().Agent))
			Expect(cfg.Model.MaxAttempts).To(Equal(config.NewDefaultConfig().Model.MaxAttempts))
		},
		Entry("openai", "openai", "openai", "https://api.openai.com"),
		Entry("anthropic", "Anthropic", "anthropic", "https://api.anthropic.com"),
		Entry("ollama", "OLLAMA", "ollama", "http://localhost:11434"),
	)

	It("returns error for unknown preset", func() {
		_, err := config.PresetConfig("bedrock")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
	})

	It("lists the preset names", func() {
		Expect(config.ValidPresetNames()).To(ConsistOf("openai", "anthropic", "ollama"))
	})
})

var _ = Describe("ParseConfigTOML", func() {
	It("returns empty config for empty input", func() {
		cfg, err := config.ParseConfigTOML([]byte(""))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Model.Provider).To(BeEmpty())
	})

	It("returns error for invalid TOML", func() {
		_, err := config.ParseConfigTOML([]byte("[[["))
		Expect(err).To(HaveOccurred())
	})
})
