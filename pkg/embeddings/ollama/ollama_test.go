package ollama_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/embeddings/ollama"
	"github.com/papercomputeco/tabletalk/pkg/vector"
)

var _ = Describe("Ollama Embedder", func() {
	It("returns the first embedding", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.URL.Path).To(Equal("/api/embed"))

			var body map[string]string
			Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
			Expect(body["model"]).To(Equal(ollama.DefaultEmbeddingModel))
			Expect(body["input"]).To(Equal("만두가 맛있어요"))

			_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
		}))
		defer server.Close()

		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		Expect(err).NotTo(HaveOccurred())

		vec, err := e.Embed(context.Background(), "만두가 맛있어요")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(Equal([]float32{0.1, 0.2, 0.3}))
	})

	It("wraps failures in ErrEmbedding", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		_, err := e.Embed(context.Background(), "x")
		Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
	})

	It("rejects empty embedding lists", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"embeddings":[]}`))
		}))
		defer server.Close()

		e, _ := ollama.NewEmbedder(ollama.EmbedderConfig{BaseURL: server.URL})
		_, err := e.Embed(context.Background(), "x")
		Expect(errors.Is(err, vector.ErrEmbedding)).To(BeTrue())
	})
})
