package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/logger"
)

func decodeLine(buf *bytes.Buffer) map[string]any {
	var parsed map[string]any
	Expect(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &parsed)).To(Succeed())
	return parsed
}

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("writes text records by default", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf))
			l.Info("turn complete", "route", "rag_review")

			Expect(buf.String()).To(ContainSubstring("turn complete"))
			Expect(buf.String()).To(ContainSubstring("route=rag_review"))
		})

		It("drops debug records unless debug is enabled", func() {
			var quiet, loud bytes.Buffer
			logger.New(logger.WithWriter(&quiet)).Debug("classifier raw output")
			logger.New(logger.WithWriter(&loud), logger.WithDebug(true)).Debug("classifier raw output")

			Expect(quiet.String()).To(BeEmpty())
			Expect(loud.String()).To(ContainSubstring("classifier raw output"))
		})

		It("writes JSON records", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.Info("retrieved", "hits", 3)

			parsed := decodeLine(&buf)
			Expect(parsed["msg"]).To(Equal("retrieved"))
			Expect(parsed["hits"]).To(BeNumerically("==", 3))
		})

		It("prefers JSON over pretty output", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true), logger.WithPretty(true))
			l.Info("both")

			Expect(decodeLine(&buf)["msg"]).To(Equal("both"))
		})

		It("writes pretty records through charmbracelet/log", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithPretty(true), logger.WithDebug(true))
			l.Debug("index swapped", "dir", "/tmp/index")

			Expect(buf.String()).To(ContainSubstring("index swapped"))
			Expect(buf.String()).To(ContainSubstring("/tmp/index"))
		})

		It("fans out to several writers", func() {
			var a, b bytes.Buffer
			logger.New(logger.WithWriters(&a, &b)).Info("fanout")

			Expect(a.String()).To(ContainSubstring("fanout"))
			Expect(b.String()).To(ContainSubstring("fanout"))
		})

		It("nests grouped attributes", func() {
			var buf bytes.Buffer
			l := logger.New(logger.WithWriter(&buf), logger.WithJSON(true))
			l.WithGroup("turn").Info("routed", "thread_id", "t-1")

			group, ok := decodeLine(&buf)["turn"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(group["thread_id"]).To(Equal("t-1"))
		})
	})

	Describe("Nop", func() {
		It("is disabled at every level", func() {
			h := logger.Nop().Handler()
			for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
				Expect(h.Enabled(context.Background(), level)).To(BeFalse())
			}
		})

		It("accepts calls without panicking", func() {
			Expect(func() {
				logger.Nop().With("k", "v").WithGroup("g").Error("ignored")
			}).NotTo(Panic())
		})
	})

	Describe("Multi", func() {
		It("dispatches to every logger", func() {
			var text, js bytes.Buffer
			multi := logger.Multi(
				logger.New(logger.WithWriter(&text)),
				logger.New(logger.WithWriter(&js), logger.WithJSON(true)),
			)
			multi.Info("broadcast", "thread_id", "abc")

			Expect(text.String()).To(ContainSubstring("broadcast"))
			Expect(decodeLine(&js)["thread_id"]).To(Equal("abc"))
		})

		It("carries bound attributes to children", func() {
			var buf bytes.Buffer
			multi := logger.Multi(logger.New(logger.WithWriter(&buf), logger.WithJSON(true)))
			multi.With("component", "router").Info("classified")

			Expect(decodeLine(&buf)["component"]).To(Equal("router"))
		})

		It("skips nil loggers", func() {
			var buf bytes.Buffer
			multi := logger.Multi(nil, logger.New(logger.WithWriter(&buf)))
			multi.Info("still logs")

			Expect(buf.String()).To(ContainSubstring("still logs"))
		})

		It("is disabled when every child is disabled", func() {
			multi := logger.Multi(logger.Nop(), logger.Nop())
			Expect(multi.Handler().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
		})
	})
})
