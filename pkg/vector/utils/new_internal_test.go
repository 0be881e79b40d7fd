package vectorutils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("splitQdrantTarget", func() {
	DescribeTable("parses targets",
		func(target, host string, port int, tls bool) {
			h, p, t, err := splitQdrantTarget(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(h).To(Equal(host))
			Expect(p).To(Equal(port))
			Expect(t).To(Equal(tls))
		},
		Entry("bare host", "localhost", "localhost", 6334, false),
		Entry("host and port", "qdrant:7000", "qdrant", 7000, false),
		Entry("https url", "https://cloud.qdrant.io:6334", "cloud.qdrant.io", 6334, true),
	)

	It("rejects an empty target", func() {
		_, _, _, err := splitQdrantTarget("")
		Expect(err).To(HaveOccurred())
	})
})
