package postgres_test

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/storage"
	"github.com/papercomputeco/tabletalk/pkg/storage/postgres"
	"github.com/papercomputeco/tabletalk/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	It("fails on an unreachable server", func() {
		_, err := postgres.NewDriver(context.Background(), "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
		Expect(err).To(HaveOccurred())
	})

	Context("against a server", func() {
		var dsn string

		BeforeEach(func() {
			dsn = os.Getenv("TABLETALK_TEST_POSTGRES_DSN")
			if dsn == "" {
				Skip("TABLETALK_TEST_POSTGRES_DSN not set")
			}
		})

		storagetest.DescribeDriver(func() storage.Driver {
			ctx := context.Background()
			d, err := postgres.NewDriver(ctx, dsn)
			Expect(err).NotTo(HaveOccurred())

			conn, err := pgx.Connect(ctx, dsn)
			Expect(err).NotTo(HaveOccurred())
			defer conn.Close(ctx)
			_, err = conn.Exec(ctx, "TRUNCATE nodes, threads")
			Expect(err).NotTo(HaveOccurred())

			return d
		})
	})
})
