package inmemory_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/storage"
	"github.com/papercomputeco/tabletalk/pkg/storage/inmemory"
	"github.com/papercomputeco/tabletalk/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	storagetest.DescribeDriver(func() storage.Driver {
		return inmemory.NewDriver(0)
	})

	It("expires thread records after the ttl", func() {
		ctx := context.Background()
		d := inmemory.NewDriver(50 * time.Millisecond)
		Expect(d.PutThread(ctx, storage.Thread{ID: "t1", Head: "h"})).To(Succeed())

		Eventually(func() bool {
			_, err := d.GetThread(ctx, "t1")
			return errors.Is(err, storage.ErrNotFound)
		}, time.Second, 20*time.Millisecond).Should(BeTrue())
	})
})
