package checkpoint_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/checkpoint"
	"github.com/papercomputeco/tabletalk/pkg/llm"
	"github.com/papercomputeco/tabletalk/pkg/logger"
	"github.com/papercomputeco/tabletalk/pkg/storage"
	"github.com/papercomputeco/tabletalk/pkg/storage/inmemory"
)

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		store  *checkpoint.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver(0)
		store = checkpoint.NewStore(driver, logger.Nop())
	})

	It("reports unknown threads as not found", func() {
		_, err := store.Load(ctx, "t1")
		Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())

		cp, err := store.LoadOrEmpty(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(cp.ThreadID).To(Equal("t1"))
		Expect(cp.History).To(BeEmpty())
	})

	It("round-trips history and subject", func() {
		history := []llm.Message{llm.User("명동교자 어때?"), llm.Assistant("칼국수가 유명해요.")}
		saved, err := store.Save(ctx, "t1", history, "명동교자 본점")
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.Head).NotTo(BeEmpty())

		cp, err := store.Load(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(cp.History).To(Equal(history))
		Expect(cp.Subject).To(Equal("명동교자 본점"))
		Expect(cp.Head).To(Equal(saved.Head))
	})

	It("dedupes nodes across saves of a growing history", func() {
		history := []llm.Message{llm.User("a"), llm.Assistant("b")}
		_, err := store.Save(ctx, "t1", history, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Count()).To(Equal(2))

		history = append(history, llm.User("c"), llm.Assistant("d"))
		_, err = store.Save(ctx, "t1", history, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.Count()).To(Equal(4))
	})

	It("keeps threads isolated", func() {
		_, err := store.Save(ctx, "t1", []llm.Message{llm.User("one")}, "을지면옥")
		Expect(err).NotTo(HaveOccurred())
		_, err = store.Save(ctx, "t2", []llm.Message{llm.User("two")}, "")
		Expect(err).NotTo(HaveOccurred())

		cp, err := store.Load(ctx, "t2")
		Expect(err).NotTo(HaveOccurred())
		Expect(cp.History).To(Equal([]llm.Message{llm.User("two")}))
		Expect(cp.Subject).To(BeEmpty())
	})

	It("saves an empty history", func() {
		_, err := store.Save(ctx, "t1", nil, "을지면옥")
		Expect(err).NotTo(HaveOccurred())

		cp, err := store.Load(ctx, "t1")
		Expect(err).NotTo(HaveOccurred())
		Expect(cp.History).To(BeEmpty())
		Expect(cp.Subject).To(Equal("을지면옥"))
	})

	It("requires a thread id", func() {
		_, err := store.Save(ctx, "", nil, "")
		Expect(err).To(HaveOccurred())
	})
})
