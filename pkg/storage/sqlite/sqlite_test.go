package sqlite_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/storage"
	"github.com/papercomputeco/tabletalk/pkg/storage/sqlite"
	"github.com/papercomputeco/tabletalk/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	Context("with a file database", func() {
		storagetest.DescribeDriver(func() storage.Driver {
			d, err := sqlite.NewDriver(filepath.Join(GinkgoT().TempDir(), "tabletalk.db"))
			Expect(err).NotTo(HaveOccurred())
			return d
		})
	})

	Context("with an in-memory database", func() {
		storagetest.DescribeDriver(func() storage.Driver {
			d, err := sqlite.NewDriver(":memory:")
			Expect(err).NotTo(HaveOccurred())
			return d
		})
	})
})
