package chatcmder

import (
	"bytes"
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/dotdir"
	"github.com/papercomputeco/tabletalk/pkg/logger"
	"github.com/papercomputeco/tabletalk/pkg/orchestrator"
)

type turnCall struct {
	threadID string
	input    string
}

type fakeTurner struct {
	calls []turnCall
	err   error
}

func (f *fakeTurner) Turn(_ context.Context, threadID, userInput string) (*orchestrator.TurnResult, error) {
	f.calls = append(f.calls, turnCall{threadID: threadID, input: userInput})
	if f.err != nil {
		return nil, f.err
	}

	id := threadID
	if id == "" {
		id = "thread-new"
	}
	return &orchestrator.TurnResult{
		Response: "The noodles get the most praise.",
		Route:    conversation.RouteRAGReview,
		Subject:  "Noodle Bar",
		ThreadID: id,
		Citations: []conversation.Citation{
			{ID: "reviews.csv:3", Snippet: "Great noodles", Score: 0.12},
		},
	}, nil
}

var _ = Describe("chat", func() {
	var (
		dir    string
		out    *bytes.Buffer
		turns  *fakeTurner
		ddm    *dotdir.Manager
		cmder  *chatCommander
		newCmd func(input string) *chatCommander
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
		turns = &fakeTurner{}
		ddm = dotdir.NewManager()
		newCmd = func(input string) *chatCommander {
			return &chatCommander{
				apiTarget: "http://localhost:8081",
				configDir: dir,
				in:        strings.NewReader(input),
				out:       out,
				turns:     turns,
				ddm:       ddm,
				logger:    logger.Nop(),
			}
		}
	})

	It("sends each line as a turn and saves the thread id", func() {
		cmder = newCmd("which place has good noodles?\nwhat about the service?\n/exit\n")
		Expect(cmder.run(context.Background())).To(Succeed())

		Expect(turns.calls).To(Equal([]turnCall{
			{threadID: "", input: "which place has good noodles?"},
			{threadID: "thread-new", input: "what about the service?"},
		}))

		state, err := ddm.LoadThread(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.ThreadID).To(Equal("thread-new"))
		Expect(state.Subject).To(Equal("Noodle Bar"))

		Expect(out.String()).To(ContainSubstring("The noodles get the most praise."))
		Expect(out.String()).To(ContainSubstring("reviews.csv:3"))
	})

	It("resumes the saved thread", func() {
		Expect(ddm.SaveThread(&dotdir.ThreadState{ThreadID: "thread-7"}, dir)).To(Succeed())

		cmder = newCmd("hello\n")
		Expect(cmder.run(context.Background())).To(Succeed())

		Expect(turns.calls).To(ConsistOf(turnCall{threadID: "thread-7", input: "hello"}))
		Expect(out.String()).To(ContainSubstring("Resuming thread"))
	})

	It("starts over with --new", func() {
		Expect(ddm.SaveThread(&dotdir.ThreadState{ThreadID: "thread-7"}, dir)).To(Succeed())

		cmder = newCmd("hello\n")
		cmder.fresh = true
		Expect(cmder.run(context.Background())).To(Succeed())

		Expect(turns.calls).To(ConsistOf(turnCall{threadID: "", input: "hello"}))
	})

	It("clears the thread on /new", func() {
		Expect(ddm.SaveThread(&dotdir.ThreadState{ThreadID: "thread-7"}, dir)).To(Succeed())

		cmder = newCmd("/new\nhello\n")
		Expect(cmder.run(context.Background())).To(Succeed())

		Expect(turns.calls).To(ConsistOf(turnCall{threadID: "", input: "hello"}))
	})

	It("skips blank lines", func() {
		cmder = newCmd("\n   \n/exit\n")
		Expect(cmder.run(context.Background())).To(Succeed())
		Expect(turns.calls).To(BeEmpty())
	})

	It("keeps going after a failed turn", func() {
		turns.err = errors.New("API returned HTTP 502: turn failed")

		cmder = newCmd("first\nsecond\n")
		Expect(cmder.run(context.Background())).To(Succeed())

		Expect(turns.calls).To(HaveLen(2))
		Expect(out.String()).To(ContainSubstring("turn failed"))

		state, err := ddm.LoadThread(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("does not render markdown into a buffer", func() {
		cmder = newCmd("")
		Expect(cmder.renderMarkdown()).To(BeFalse())
	})
})

var _ = Describe("NewChatCmd", func() {
	It("registers its flags", func() {
		cmd := NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))
		Expect(cmd.Flags().Lookup("api-target")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("new")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("raw")).NotTo(BeNil())
	})
})
