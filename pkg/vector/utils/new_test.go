package vectorutils_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/logger"
	"github.com/papercomputeco/tabletalk/pkg/vector/sqlitevec"
	vectorutils "github.com/papercomputeco/tabletalk/pkg/vector/utils"
)

var _ = Describe("NewVectorDriver", func() {
	It("opens a writable sqlite-vec store", func() {
		d, err := vectorutils.NewVectorDriver(context.Background(), &vectorutils.NewVectorDriverOpts{
			ProviderType: vectorutils.SQLiteVec,
			TargetURL:    filepath.Join(GinkgoT().TempDir(), "index.db"),
			Dimensions:   8,
			Writable:     true,
			Logger:       logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&sqlitevec.Driver{}))
		Expect(d.Close()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewVectorDriver(context.Background(), &vectorutils.NewVectorDriverOpts{
			ProviderType: "pinecone",
			Logger:       logger.Nop(),
		})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider")))
	})
})
