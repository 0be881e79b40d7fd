// Package storagetest holds the ginkgo specs every storage.Driver must pass.
package storagetest

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/merkle"
	"github.com/papercomputeco/tabletalk/pkg/storage"
	testutils "github.com/papercomputeco/tabletalk/pkg/utils/test"
)

// DescribeDriver registers the driver conformance specs. newDriver is called
// before each spec and the driver is closed after it.
func DescribeDriver(newDriver func() storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put", func() {
		It("reports new and duplicate nodes", func() {
			node := merkle.NewNode(testutils.NewTestBucket("user", "hello"), nil)

			isNew, err := driver.Put(ctx, node)
			Expect(err).NotTo(HaveOccurred())
			Expect(isNew).To(BeTrue())

			isNew, err = driver.Put(ctx, node)
			Expect(err).NotTo(HaveOccurred())
			Expect(isNew).To(BeFalse())
		})

		It("rejects nil nodes", func() {
			_, err := driver.Put(ctx, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Get and Has", func() {
		It("round-trips a child node", func() {
			chain := testutils.NewTestChain("명동교자 어때?", "칼국수가 유명해요.")
			_, err := storage.PutAll(ctx, driver, chain)
			Expect(err).NotTo(HaveOccurred())

			got, err := driver.Get(ctx, chain[1].Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Hash).To(Equal(chain[1].Hash))
			Expect(got.Parent()).To(Equal(chain[0].Hash))
			Expect(got.Bucket).To(Equal(chain[1].Bucket))
			Expect(got.Verify()).To(BeTrue())

			Expect(driver.Has(ctx, chain[0].Hash)).To(BeTrue())
		})

		It("reports missing nodes", func() {
			_, err := driver.Get(ctx, "nope")
			Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
			Expect(driver.Has(ctx, "nope")).To(BeFalse())
		})
	})

	Describe("Ancestry", func() {
		It("returns node first, root last", func() {
			chain := testutils.NewTestChain("a", "b", "c")
			_, err := storage.PutAll(ctx, driver, chain)
			Expect(err).NotTo(HaveOccurred())

			path, err := driver.Ancestry(ctx, chain[2].Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(HaveLen(3))
			Expect(path[0].Hash).To(Equal(chain[2].Hash))
			Expect(path[2].Hash).To(Equal(chain[0].Hash))
		})

		It("dedupes a re-sent history", func() {
			chain := testutils.NewTestChain("a", "b")
			inserted, err := storage.PutAll(ctx, driver, chain)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(Equal(2))

			inserted, err = storage.PutAll(ctx, driver, testutils.NewTestChain("a", "b", "c"))
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(Equal(1))
		})

		It("fails for a missing head", func() {
			_, err := driver.Ancestry(ctx, "nope")
			Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Threads", func() {
		It("upserts and reads thread records", func() {
			now := time.Now().UTC().Truncate(time.Second)
			Expect(driver.PutThread(ctx, storage.Thread{ID: "t1", Head: "h1", Subject: "을지면옥", UpdatedAt: now})).To(Succeed())
			Expect(driver.PutThread(ctx, storage.Thread{ID: "t1", Head: "h2", Subject: "을지면옥", UpdatedAt: now})).To(Succeed())

			t, err := driver.GetThread(ctx, "t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(t.Head).To(Equal("h2"))
			Expect(t.Subject).To(Equal("을지면옥"))
			Expect(t.UpdatedAt.Equal(now)).To(BeTrue())
		})

		It("reports missing threads", func() {
			_, err := driver.GetThread(ctx, "missing")
			Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
		})

		It("requires an id", func() {
			Expect(driver.PutThread(ctx, storage.Thread{})).NotTo(Succeed())
		})
	})
}
