package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/llm/provider/ollama"
)

var _ = Describe("Ollama Generator", func() {
	It("posts a non-streaming chat request with the temperature option", func() {
		var got map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/chat"))
			Expect(json.NewDecoder(r.Body).Decode(&got)).To(Succeed())
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"안녕하세요"},"done":true}`))
		}))
		defer server.Close()

		g, err := ollama.NewGenerator(ollama.Config{BaseURL: server.URL, Model: "gemma3"})
		Expect(err).NotTo(HaveOccurred())

		out, err := g.Generate(context.Background(), []llm.Message{llm.User("hi")}, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("안녕하세요"))

		Expect(got["model"]).To(Equal("gemma3"))
		Expect(got["stream"]).To(BeFalse())
		opts, ok := got["options"].(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(opts["temperature"]).To(BeNumerically("==", 0))
	})

	It("returns an error for non-200 responses", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}))
		defer server.Close()

		g, _ := ollama.NewGenerator(ollama.Config{BaseURL: server.URL})
		_, err := g.Generate(context.Background(), []llm.Message{llm.User("hi")}, 0.3)
		Expect(err).To(MatchError(ContainSubstring("status 500")))
	})

	It("treats an empty message as an empty completion", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":""},"done":true}`))
		}))
		defer server.Close()

		g, _ := ollama.NewGenerator(ollama.Config{BaseURL: server.URL})
		_, err := g.Generate(context.Background(), []llm.Message{llm.User("hi")}, 0.3)
		Expect(errors.Is(err, llm.ErrEmptyCompletion)).To(BeTrue())
	})

	It("honors context cancellation", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		g, _ := ollama.NewGenerator(ollama.Config{BaseURL: server.URL})
		_, err := g.Generate(ctx, []llm.Message{llm.User("hi")}, 0.3)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
	})
})
