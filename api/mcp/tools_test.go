package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/api/search"
	"github.com/papercomputeco/tabletalk/pkg/logger"
	"github.com/papercomputeco/tabletalk/pkg/orchestrator"
	testutils "github.com/papercomputeco/tabletalk/pkg/utils/test"
	"github.com/papercomputeco/tabletalk/pkg/vector"
)

type scriptedRunner struct {
	err  error
	reqs []orchestrator.TurnRequest
}

func (r *scriptedRunner) Run(_ context.Context, req orchestrator.TurnRequest) (orchestrator.TurnResult, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return orchestrator.TurnResult{}, r.err
	}
	return orchestrator.TurnResult{
		Response: "추천합니다",
		Route:    "chat",
		LastNode: "chat",
		ThreadID: "thread-1",
	}, nil
}

var _ = Describe("MCP tools", func() {
	var (
		ctx    context.Context
		runner *scriptedRunner
		stub   *testutils.StubSearcher
		server *Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		runner = &scriptedRunner{}
		stub = &testutils.StubSearcher{Results: []vector.QueryResult{
			testutils.Hit("kakaomap-0", "kakaomap", "육수가 시원해요", 0.25),
		}}

		var err error
		server, err = NewServer(Config{
			Turns:    runner,
			Searcher: search.NewSearcher(testutils.StaticIndex{Searcher: stub}, logger.Nop()),
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("handleTurn", func() {
		It("runs the turn and returns its result", func() {
			res, out, err := server.handleTurn(ctx, nil, TurnInput{UserInput: "안녕", ThreadID: "thread-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Response).To(Equal("추천합니다"))
			Expect(runner.reqs).To(HaveLen(1))
			Expect(runner.reqs[0].ThreadID).To(Equal("thread-1"))
			Expect(runner.reqs[0].UserInput).To(Equal("안녕"))

			text := res.Content[0].(*mcp.TextContent).Text
			Expect(text).To(ContainSubstring(`"response":"추천합니다"`))
		})

		It("reports a failed turn as a tool error", func() {
			runner.err = errors.New("upstream down")
			res, _, err := server.handleTurn(ctx, nil, TurnInput{UserInput: "안녕"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(res.Content[0].(*mcp.TextContent).Text).To(ContainSubstring("upstream down"))
		})
	})

	Describe("handleRetrieve", func() {
		It("returns evidence and citations", func() {
			res, out, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "냉면", K: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Evidence).To(Equal("육수가 시원해요"))
			Expect(out.Citations).To(HaveLen(1))
			Expect(out.Citations[0].Source).To(Equal("kakaomap"))
		})

		It("reports a blank query as a tool error", func() {
			res, _, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: ""})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(stub.Queries).To(BeEmpty())
		})
	})
})
