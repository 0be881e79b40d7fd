package redis_test

import (
	"context"
	"os"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/storage"
	"github.com/papercomputeco/tabletalk/pkg/storage/redis"
	"github.com/papercomputeco/tabletalk/pkg/storage/storagetest"
)

var _ = Describe("Driver", func() {
	It("rejects a malformed url", func() {
		_, err := redis.NewDriver(context.Background(), redis.Config{URL: "not a url"})
		Expect(err).To(HaveOccurred())
	})

	Context("against a server", func() {
		BeforeEach(func() {
			if os.Getenv("TABLETALK_TEST_REDIS_URL") == "" {
				Skip("TABLETALK_TEST_REDIS_URL not set")
			}
		})

		storagetest.DescribeDriver(func() storage.Driver {
			d, err := redis.NewDriver(context.Background(), redis.Config{
				URL:    os.Getenv("TABLETALK_TEST_REDIS_URL"),
				Prefix: "tabletalk-test-" + uuid.NewString(),
			})
			Expect(err).NotTo(HaveOccurred())
			return d
		})
	})
})
