package evidence_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/evidence"
	"github.com/papercomputeco/tabletalk/pkg/logger"
	testutils "github.com/papercomputeco/tabletalk/pkg/utils/test"
	"github.com/papercomputeco/tabletalk/pkg/vector"
)

func reviewEmbedder() *testutils.MockEmbedder {
	e := testutils.NewMockEmbedder()
	e.Embeddings["국물이 진하고 맛있어요"] = []float32{1, 0, 0}
	e.Embeddings["만두가 짜요"] = []float32{0, 1, 0}
	e.Embeddings["줄이 길어요"] = []float32{0, 0, 1}
	e.Embeddings["국물 어때?"] = []float32{0.9, 0.1, 0}
	return e
}

func reviewDocuments() []vector.Document {
	return []vector.Document{
		{ID: "kakaomap-0", Text: "국물이 진하고 맛있어요", Metadata: map[string]string{"id": "kakaomap-0", "source": "kakaomap"}},
		{ID: "kakaomap-1", Text: "만두가 짜요", Metadata: map[string]string{"id": "kakaomap-1", "source": "kakaomap"}},
		{ID: "googlemap-0", Text: "줄이 길어요", Metadata: map[string]string{"id": "googlemap-0", "source": "googlemap"}},
	}
}

var _ = Describe("Evidence index", func() {
	var (
		ctx      context.Context
		dir      string
		embedder *testutils.MockEmbedder
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = filepath.Join(GinkgoT().TempDir(), "index")
		embedder = reviewEmbedder()
	})

	build := func(docs []vector.Document) evidence.Manifest {
		m, err := evidence.Build(ctx, evidence.BuildOpts{
			Dir:            dir,
			Documents:      docs,
			Embedder:       embedder,
			EmbeddingModel: "mock",
			Concurrency:    2,
			Logger:         logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return m
	}

	load := func() *evidence.Index {
		return evidence.Load(ctx, evidence.LoadOpts{Dir: dir, Embedder: embedder, Logger: logger.Nop()})
	}

	Describe("Build", func() {
		It("writes the database and manifest", func() {
			m := build(reviewDocuments())
			Expect(m.Dimensions).To(Equal(uint(3)))
			Expect(m.Documents).To(Equal(3))

			Expect(filepath.Join(dir, evidence.IndexFile)).To(BeAnExistingFile())
			read, err := evidence.ReadManifest(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(read.EmbeddingModel).To(Equal("mock"))
		})

		It("indexes a placeholder for an empty corpus", func() {
			m := build(nil)
			Expect(m.Documents).To(Equal(1))

			idx := load()
			Expect(idx).NotTo(BeNil())
			defer idx.Close()
			hits, err := idx.Search(ctx, "anything", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].Metadata).To(HaveKeyWithValue("id", evidence.DummyID))
		})

		It("replaces an existing index without leaving staging dirs", func() {
			build(reviewDocuments())
			build(reviewDocuments()[:1])

			m, err := evidence.ReadManifest(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Documents).To(Equal(1))

			entries, err := os.ReadDir(filepath.Dir(dir))
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("leaves the previous index alone when embedding fails", func() {
			build(reviewDocuments())
			embedder.FailOn = "만두가 짜요"

			_, err := evidence.Build(ctx, evidence.BuildOpts{
				Dir:       dir,
				Documents: reviewDocuments(),
				Embedder:  embedder,
				Logger:    logger.Nop(),
			})
			Expect(err).To(HaveOccurred())

			m, err := evidence.ReadManifest(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Documents).To(Equal(3))
		})

		It("rejects documents that share an id", func() {
			docs := reviewDocuments()
			docs[2].ID = docs[0].ID

			_, err := evidence.Build(ctx, evidence.BuildOpts{
				Dir:       dir,
				Documents: docs,
				Embedder:  embedder,
				Logger:    logger.Nop(),
			})
			Expect(err).To(MatchError(ContainSubstring(`duplicate document id "kakaomap-0"`)))
			Expect(embedder.Calls).To(BeEmpty())
			Expect(dir).NotTo(BeADirectory())
		})

		It("upserts into a remote store when Open is set", func() {
			driver := testutils.NewMockVectorDriver()
			var openedWith uint

			m, err := evidence.Build(ctx, evidence.BuildOpts{
				Documents: reviewDocuments(),
				Embedder:  embedder,
				Open: func(_ context.Context, dims uint) (vector.Driver, error) {
					openedWith = dims
					return driver, nil
				},
				Logger: logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Documents).To(Equal(3))
			Expect(openedWith).To(Equal(uint(3)))

			Expect(driver.Documents).To(HaveLen(3))
			for _, d := range driver.Documents {
				Expect(d.Embedding).To(HaveLen(3))
			}
			Expect(driver.Closed).To(BeTrue())
			Expect(dir).NotTo(BeADirectory())
		})

		It("reports a store that cannot be opened", func() {
			_, err := evidence.Build(ctx, evidence.BuildOpts{
				Documents: reviewDocuments(),
				Embedder:  embedder,
				Open: func(context.Context, uint) (vector.Driver, error) {
					return nil, errors.New("connection refused")
				},
				Logger: logger.Nop(),
			})
			Expect(err).To(MatchError(ContainSubstring("opening vector store: connection refused")))
		})
	})

	Describe("Load", func() {
		It("returns nil for a missing directory", func() {
			Expect(load()).To(BeNil())
		})

		It("returns nil for a corrupt manifest", func() {
			build(reviewDocuments())
			Expect(os.WriteFile(filepath.Join(dir, evidence.ManifestFile), []byte("{not json"), 0o600)).To(Succeed())
			Expect(load()).To(BeNil())
		})

		It("returns nil when the database is missing", func() {
			build(reviewDocuments())
			Expect(os.Remove(filepath.Join(dir, evidence.IndexFile))).To(Succeed())
			Expect(load()).To(BeNil())
		})

		It("returns nil when the database has no index tables", func() {
			Expect(os.MkdirAll(dir, 0o755)).To(Succeed())
			Expect(evidence.WriteManifest(dir, evidence.Manifest{Dimensions: 3, Documents: 1})).To(Succeed())
			Expect(os.WriteFile(filepath.Join(dir, evidence.IndexFile), nil, 0o600)).To(Succeed())
			Expect(load()).To(BeNil())
		})

		It("returns nil without an embedder", func() {
			build(reviewDocuments())
			Expect(evidence.Load(ctx, evidence.LoadOpts{Dir: dir, Logger: logger.Nop()})).To(BeNil())
		})

		It("searches a built index by ascending distance", func() {
			build(reviewDocuments())
			idx := load()
			Expect(idx).NotTo(BeNil())
			defer idx.Close()

			hits, err := idx.Search(ctx, "국물 어때?", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(2))
			Expect(hits[0].ID).To(Equal("kakaomap-0"))
			Expect(hits[0].Distance).To(BeNumerically("<=", hits[1].Distance))
		})
	})

	Describe("Holder", func() {
		It("reports an unavailable index as nil", func() {
			h := evidence.NewHolder(ctx, func(context.Context) *evidence.Index { return nil }, logger.Nop())
			Expect(h.Available()).To(BeFalse())
			Expect(h.Current()).To(BeNil())
		})

		It("keeps the current index when a reload fails", func() {
			build(reviewDocuments())
			h := evidence.NewHolder(ctx, func(context.Context) *evidence.Index { return load() }, logger.Nop())
			h.RetireAfter = 0
			defer h.Close()
			Expect(h.Available()).To(BeTrue())

			Expect(os.RemoveAll(dir)).To(Succeed())
			Expect(h.Reload(ctx)).To(BeFalse())
			Expect(h.Available()).To(BeTrue())
		})

		It("swaps in a rebuilt index when the directory is replaced", func() {
			h := evidence.NewHolder(ctx, func(context.Context) *evidence.Index { return load() }, logger.Nop())
			h.RetireAfter = 0
			defer h.Close()
			Expect(h.Available()).To(BeFalse())

			Expect(os.MkdirAll(filepath.Dir(dir), 0o755)).To(Succeed())
			watchCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				defer GinkgoRecover()
				Expect(h.Watch(watchCtx, dir)).To(Succeed())
			}()

			// give the watcher a moment to register
			time.Sleep(100 * time.Millisecond)
			build(reviewDocuments())

			Eventually(h.Available, 5*time.Second, 50*time.Millisecond).Should(BeTrue())
			Expect(h.Index().Manifest().Documents).To(Equal(3))
		})
	})
})

var _ = Describe("Index", func() {
	var (
		driver *testutils.MockVectorDriver
		idx    *evidence.Index
	)

	BeforeEach(func() {
		driver = testutils.NewMockVectorDriver(
			testutils.Hit("kakaomap-0", "kakaomap", "국물이 진하고 맛있어요", 0.1),
			testutils.Hit("kakaomap-1", "kakaomap", "만두가 짜요", 0.5),
		)
		idx = evidence.NewIndex(driver, reviewEmbedder(), evidence.Manifest{Dimensions: 3, Documents: 2})
	})

	It("returns the driver's hits up to k", func() {
		hits, err := idx.Search(context.Background(), "국물 어때?", 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(hits).To(HaveLen(1))
		Expect(hits[0].ID).To(Equal("kakaomap-0"))
	})

	It("wraps query failures", func() {
		driver.FailQuery = true
		_, err := idx.Search(context.Background(), "국물 어때?", 4)
		Expect(err).To(MatchError(ContainSubstring("querying index")))
	})

	It("closes the driver", func() {
		Expect(idx.Close()).To(Succeed())
		Expect(driver.Closed).To(BeTrue())
	})
})

var _ = Describe("ReadReviews", func() {
	It("maps columns to documents with provenance", func() {
		in := "review,star,date\n국물이 진해요,5,2024-01-02\n,3,2024-01-03\n  만두 짜요  ,2,2024-01-04\n"
		docs, err := evidence.ReadReviews(strings.NewReader(in), "kakaomap")
		Expect(err).NotTo(HaveOccurred())
		Expect(docs).To(HaveLen(2))

		Expect(docs[0].ID).To(Equal("kakaomap-0"))
		Expect(docs[0].Metadata).To(Equal(map[string]string{
			"id": "kakaomap-0", "source": "kakaomap", "row_index": "0", "rating": "5", "date": "2024-01-02",
		}))

		Expect(docs[1].ID).To(Equal("kakaomap-2"))
		Expect(docs[1].Text).To(Equal("만두 짜요"))
	})

	It("accepts score and rating columns", func() {
		docs, err := evidence.ReadReviews(strings.NewReader("Review,Score\n좋아요,4.5\n"), "googlemap")
		Expect(err).NotTo(HaveOccurred())
		Expect(docs[0].Metadata).To(HaveKeyWithValue("rating", "4.5"))
		Expect(docs[0].Metadata).NotTo(HaveKey("date"))
	})

	It("requires a review column", func() {
		_, err := evidence.ReadReviews(strings.NewReader("text,star\na,1\n"), "x")
		Expect(err).To(MatchError(ContainSubstring("review")))
	})
})
