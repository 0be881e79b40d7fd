package provider_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/llm/provider"
	"github.com/papercomputeco/tabletalk/pkg/llm/provider/ollama"
	"github.com/papercomputeco/tabletalk/pkg/llm/provider/openai"
)

var envKeys = []string{"UPSTAGE_API_KEY", "OPENAI_API_KEY", "UPSTAGE_BASE_URL", "OPENAI_BASE_URL"}

var _ = Describe("Provider", func() {
	BeforeEach(func() {
		for _, k := range envKeys {
			if v, ok := os.LookupEnv(k); ok {
				DeferCleanup(os.Setenv, k, v)
			} else {
				DeferCleanup(os.Unsetenv, k)
			}
			Expect(os.Unsetenv(k)).To(Succeed())
		}
	})

	Describe("ResolveOpenAICompatible", func() {
		It("prefers explicit values", func() {
			GinkgoT().Setenv("UPSTAGE_API_KEY", "up-key")
			key, url := provider.ResolveOpenAICompatible(provider.OpenAI, "explicit", "http://local/v1")
			Expect(key).To(Equal("explicit"))
			Expect(url).To(Equal("http://local/v1"))
		})

		It("prefers the Upstage key and defaults its endpoint", func() {
			GinkgoT().Setenv("UPSTAGE_API_KEY", "up-key")
			GinkgoT().Setenv("OPENAI_API_KEY", "oa-key")
			key, url := provider.ResolveOpenAICompatible(provider.OpenAI, "", "")
			Expect(key).To(Equal("up-key"))
			Expect(url).To(Equal(openai.UpstageBaseURL))
		})

		It("falls back to the OpenAI key without forcing a base URL", func() {
			GinkgoT().Setenv("OPENAI_API_KEY", "oa-key")
			key, url := provider.ResolveOpenAICompatible(provider.OpenAI, "", "")
			Expect(key).To(Equal("oa-key"))
			Expect(url).To(BeEmpty())
		})

		It("honors base URL env overrides", func() {
			GinkgoT().Setenv("UPSTAGE_API_KEY", "up-key")
			GinkgoT().Setenv("OPENAI_BASE_URL", "http://proxy/v1")
			_, url := provider.ResolveOpenAICompatible(provider.Upstage, "", "")
			Expect(url).To(Equal("http://proxy/v1"))
		})
	})

	Describe("NewGenerator", func() {
		It("builds an ollama generator without credentials", func() {
			g, err := provider.NewGenerator(context.Background(), &provider.NewGeneratorOpts{ProviderType: "ollama"})
			Expect(err).NotTo(HaveOccurred())
			Expect(g).To(BeAssignableToTypeOf(&ollama.Generator{}))
		})

		It("builds an openai generator from the environment", func() {
			GinkgoT().Setenv("OPENAI_API_KEY", "oa-key")
			g, err := provider.NewGenerator(context.Background(), &provider.NewGeneratorOpts{ProviderType: "openai"})
			Expect(err).NotTo(HaveOccurred())
			Expect(g).To(BeAssignableToTypeOf(&openai.Generator{}))
		})

		It("fails without an openai key", func() {
			_, err := provider.NewGenerator(context.Background(), &provider.NewGeneratorOpts{ProviderType: "openai"})
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown providers", func() {
			_, err := provider.NewGenerator(context.Background(), &provider.NewGeneratorOpts{ProviderType: "bedrock"})
			Expect(err).To(MatchError(ContainSubstring("unsupported llm provider")))
		})
	})
})
