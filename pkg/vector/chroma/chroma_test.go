package chroma_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/logger"
	"github.com/papercomputeco/tabletalk/pkg/vector"
	"github.com/papercomputeco/tabletalk/pkg/vector/chroma"
)

const collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

// fakeChroma serves just enough of the Chroma v2 API for the driver.
type fakeChroma struct {
	exists   bool
	created  bool
	upserted map[string]any
}

func (f *fakeChroma) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == collectionsPath+"/reviews":
		if !f.exists {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "reviews"})

	case r.Method == http.MethodPost && r.URL.Path == collectionsPath:
		f.created = true
		f.exists = true
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "reviews"})

	case strings.HasSuffix(r.URL.Path, "/col-1/upsert"):
		_ = json.NewDecoder(r.Body).Decode(&f.upserted)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("true"))

	case strings.HasSuffix(r.URL.Path, "/col-1/query"):
		_, _ = w.Write([]byte(`{
			"ids": [["a", "b"]],
			"documents": [["국물이 진해요", null]],
			"distances": [[0.12, 0.57]],
			"metadatas": [[{"source": "kakaomap", "row_index": 3, "rating": 4.5}, null]]
		}`))

	case strings.HasSuffix(r.URL.Path, "/col-1/get"):
		_, _ = w.Write([]byte(`{
			"ids": ["a"],
			"documents": ["국물이 진해요"],
			"metadatas": [{"source": "kakaomap"}],
			"embeddings": [[0.1, 0.2]]
		}`))

	case strings.HasSuffix(r.URL.Path, "/col-1/count"):
		_, _ = w.Write([]byte("2"))

	default:
		http.NotFound(w, r)
	}
}

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		fake   *fakeChroma
		server *httptest.Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = &fakeChroma{exists: true}
		server = httptest.NewServer(fake)
		DeferCleanup(server.Close)
	})

	Describe("NewDriver", func() {
		It("returns an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{}, logger.Nop())
			Expect(err).To(MatchError(ContainSubstring("chroma URL is required")))
		})

		It("does not create a missing collection unless asked", func() {
			fake.exists = false
			_, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger.Nop())
			Expect(errors.Is(err, vector.ErrNotFound)).To(BeTrue())
			Expect(fake.created).To(BeFalse())
		})

		It("creates a missing collection when asked", func() {
			fake.exists = false
			_, err := chroma.NewDriver(chroma.Config{URL: server.URL, Create: true}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.created).To(BeTrue())
		})

		It("reports an unreachable server as a connection error", func() {
			server.Close()
			_, err := chroma.NewDriver(chroma.Config{URL: server.URL}, logger.Nop())
			Expect(errors.Is(err, vector.ErrConnection)).To(BeTrue())
		})
	})

	Describe("with a connected driver", func() {
		var d *chroma.Driver

		BeforeEach(func() {
			var err error
			d, err = chroma.NewDriver(chroma.Config{URL: server.URL}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
		})

		It("upserts text and metadata", func() {
			err := d.Add(ctx, []vector.Document{{
				ID:        "a",
				Text:      "국물이 진해요",
				Metadata:  map[string]string{"source": "kakaomap"},
				Embedding: []float32{0.1, 0.2},
			}})
			Expect(err).NotTo(HaveOccurred())
			Expect(fake.upserted).To(HaveKeyWithValue("documents", ConsistOf("국물이 진해요")))
			Expect(fake.upserted).To(HaveKey("metadatas"))
		})

		It("returns raw distances with text and flattened metadata", func() {
			results, err := d.Query(ctx, []float32{0.1, 0.2}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))

			Expect(results[0].Distance).To(Equal(0.12))
			Expect(results[0].Text).To(Equal("국물이 진해요"))
			Expect(results[0].Metadata).To(HaveKeyWithValue("row_index", "3"))
			Expect(results[0].Metadata).To(HaveKeyWithValue("rating", "4.5"))

			Expect(results[1].Text).To(BeEmpty())
			Expect(results[1].Metadata).To(BeEmpty())
		})

		It("gets documents with embeddings", func() {
			docs, err := d.Get(ctx, []string{"a"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Embedding).To(Equal([]float32{0.1, 0.2}))
		})

		It("counts documents", func() {
			Expect(d.Count(ctx)).To(Equal(2))
		})
	})
})
