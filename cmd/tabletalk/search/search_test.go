package searchcmder

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apisearch "github.com/papercomputeco/tabletalk/api/search"
	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/logger"
)

type fakeRetriever struct {
	output *apisearch.Output
	err    error

	query string
	k     int
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, k int) (*apisearch.Output, error) {
	f.query = query
	f.k = k
	return f.output, f.err
}

var _ = Describe("search", func() {
	var (
		out   *bytes.Buffer
		fake  *fakeRetriever
		cmder *searchCommander
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		fake = &fakeRetriever{
			output: &apisearch.Output{
				Query: "dumplings",
				Citations: []conversation.Citation{
					{ID: "reviews.csv:0", Snippet: "Juicy dumplings", Score: 0.1},
					{ID: "reviews.csv:4", Snippet: "Dumplings were cold", Score: 0.4},
				},
				Count: 2,
			},
		}
		cmder = &searchCommander{
			query:  "dumplings",
			topK:   3,
			out:    out,
			search: fake,
			logger: logger.Nop(),
		}
	})

	It("passes the query and k through", func() {
		Expect(cmder.run(context.Background())).To(Succeed())
		Expect(fake.query).To(Equal("dumplings"))
		Expect(fake.k).To(Equal(3))
	})

	It("prints ranked reviews", func() {
		Expect(cmder.run(context.Background())).To(Succeed())
		Expect(out.String()).To(ContainSubstring("reviews.csv:0"))
		Expect(out.String()).To(ContainSubstring("Dumplings were cold"))
	})

	It("prints only ids when quiet", func() {
		cmder.quiet = true
		Expect(cmder.run(context.Background())).To(Succeed())
		Expect(out.String()).To(Equal("reviews.csv:0\nreviews.csv:4\n"))
	})

	It("reports an empty result", func() {
		fake.output = &apisearch.Output{Query: "dumplings", Citations: []conversation.Citation{}}
		Expect(cmder.run(context.Background())).To(Succeed())
		Expect(out.String()).To(Equal("No reviews found.\n"))
	})

	It("returns API errors", func() {
		fake.err = errors.New("API returned HTTP 503: evidence index unavailable")
		Expect(cmder.run(context.Background())).To(MatchError(ContainSubstring("503")))
	})
})
