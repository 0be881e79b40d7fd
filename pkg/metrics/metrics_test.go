package metrics_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/papercomputeco/tabletalk/pkg/metrics"
)

var _ = Describe("Metrics", func() {
	var (
		reg *prometheus.Registry
		m   *metrics.Metrics
	)

	BeforeEach(func() {
		reg = prometheus.NewRegistry()
		m = metrics.New(reg)
	})

	It("counts turns by route", func() {
		m.ObserveTurn("rag_review", 120*time.Millisecond)
		m.ObserveTurn("rag_review", 80*time.Millisecond)
		m.ObserveTurn("chat", time.Millisecond)

		expected := `
# HELP tabletalk_turns_total Completed turns by the handler route that answered them.
# TYPE tabletalk_turns_total counter
tabletalk_turns_total{route="chat"} 1
tabletalk_turns_total{route="rag_review"} 2
`
		Expect(testutil.GatherAndCompare(reg, strings.NewReader(expected), "tabletalk_turns_total")).To(Succeed())
	})

	It("counts failures, parse tiers and events", func() {
		m.TurnFailed("router")
		m.RouterParsed("pattern")
		m.TurnEvent(metrics.EventDropped)

		n, err := testutil.GatherAndCount(reg,
			"tabletalk_turn_failures_total",
			"tabletalk_router_parse_total",
			"tabletalk_turn_events_total",
		)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(3))
	})

	It("tracks index availability", func() {
		m.SetIndexAvailable(true)
		expected := `
# HELP tabletalk_evidence_index_available 1 when an evidence index is loaded.
# TYPE tabletalk_evidence_index_available gauge
tabletalk_evidence_index_available 1
`
		Expect(testutil.GatherAndCompare(reg, strings.NewReader(expected), "tabletalk_evidence_index_available")).To(Succeed())
	})

	It("is a no-op when nil", func() {
		var nilMetrics *metrics.Metrics
		Expect(func() {
			nilMetrics.ObserveTurn("chat", time.Second)
			nilMetrics.TurnFailed("router")
			nilMetrics.RouterParsed("json")
			nilMetrics.RetrievalHits(3)
			nilMetrics.TurnEvent(metrics.EventPublished)
			nilMetrics.SetIndexAvailable(false)
		}).NotTo(Panic())
	})
})
