package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeConfig := func(data string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file and fills the rest from defaults", func() {
			writeConfig(`version = 0

[llm]
provider = "openai"
model = "gpt-4o-mini"

[storage]
driver = "sqlite"
sqlite_path = "/tmp/threads.db"
ttl = "24h"

[orchestrator]
top_k = 8
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.LLM.Provider).To(Equal("openai"))
			Expect(cfg.LLM.Model).To(Equal("gpt-4o-mini"))
			Expect(cfg.LLM.Temperature).To(Equal(0.3))
			Expect(cfg.Storage.Driver).To(Equal("sqlite"))
			Expect(cfg.Storage.TTL).To(Equal("24h"))
			Expect(cfg.Orchestrator.TopK).To(Equal(8))
			Expect(cfg.Orchestrator.CallTimeout).To(Equal("30s"))
			Expect(cfg.VectorStore.Provider).To(Equal("sqlite-vec"))
			Expect(cfg.Router.HistoryWindow).To(Equal(10))
		})

		It("rejects unsupported versions", func() {
			writeConfig("version = 7\n")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
		})

		It("rejects invalid TOML", func() {
			writeConfig("[llm\nprovider = ")
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SaveConfig", func() {
		It("round-trips through config.toml", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Subjects.Path = "/data/subjects.json"
			cfg.EventStream.Provider = "kafka"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("rejects nil configs", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(HaveOccurred())
		})
	})

	Describe("Get and Set", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets and gets string keys", func() {
			Expect(c.SetConfigValue("vector_store.index_dir", "/srv/index")).To(Succeed())
			v, err := c.GetConfigValue("vector_store.index_dir")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("/srv/index"))
		})

		It("parses numeric and boolean keys", func() {
			Expect(c.SetConfigValue("orchestrator.top_k", "7")).To(Succeed())
			Expect(c.SetConfigValue("llm.temperature", "0.5")).To(Succeed())
			Expect(c.SetConfigValue("embedding.dimensions", "4096")).To(Succeed())
			Expect(c.SetConfigValue("telemetry.enabled", "true")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Orchestrator.TopK).To(Equal(7))
			Expect(cfg.LLM.Temperature).To(Equal(0.5))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(4096)))
			Expect(cfg.Telemetry.Enabled).To(BeTrue())
		})

		It("rejects malformed values", func() {
			Expect(c.SetConfigValue("orchestrator.top_k", "many")).To(HaveOccurred())
			Expect(c.SetConfigValue("orchestrator.top_k", "-1")).To(HaveOccurred())
			Expect(c.SetConfigValue("orchestrator.call_timeout", "soon")).To(HaveOccurred())
			Expect(c.SetConfigValue("telemetry.enabled", "maybe")).To(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			Expect(c.SetConfigValue("proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("proxy.upstream")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("keys", func() {
		It("lists every key in section order", func() {
			keys := config.ValidConfigKeys()
			Expect(keys[0]).To(Equal("api.listen"))
			Expect(keys).To(ContainElements("storage.redis_url", "eventstream.topic", "client.api_target"))
			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
			}
		})

		It("marks credentials as secret", func() {
			Expect(config.IsSecretKey("llm.api_key")).To(BeTrue())
			Expect(config.IsSecretKey("llm.model")).To(BeFalse())
		})
	})

	Describe("PresetConfig", func() {
		It("switches the ollama preset to local embeddings", func() {
			cfg, err := config.PresetConfig("ollama")
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.LLM.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("rejects unknown presets", func() {
			_, err := config.PresetConfig("bedrock")
			Expect(err).To(HaveOccurred())
		})
	})
})
