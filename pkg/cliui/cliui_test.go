package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/cliui"
	"github.com/papercomputeco/tabletalk/pkg/conversation"
)

var _ = Describe("cliui", func() {
	It("formats durations", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})

	It("reports step errors", func() {
		var buf bytes.Buffer
		err := cliui.Step(&buf, "embedding reviews", func() error { return errors.New("boom") })
		Expect(err).To(MatchError("boom"))
		Expect(buf.String()).To(ContainSubstring("embedding reviews"))
	})

	It("writes ranked citations", func() {
		var buf bytes.Buffer
		cliui.WriteCitations(&buf, []conversation.Citation{
			{ID: "kakaomap-3", Source: "kakaomap", Score: 0.12, Snippet: "육수가 시원해요"},
			{ID: "google-9", Source: "google", Score: 0.3, Snippet: "줄이 길어요"},
		})
		out := buf.String()
		Expect(out).To(ContainSubstring("#1"))
		Expect(out).To(ContainSubstring("kakaomap-3"))
		Expect(out).To(ContainSubstring("0.1200"))
		Expect(out).To(ContainSubstring("줄이 길어요"))
	})

	It("renders the route badge", func() {
		Expect(cliui.RouteBadge("rag_review", "을지면옥")).To(ContainSubstring("을지면옥"))
	})
})
