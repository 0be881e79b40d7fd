package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tabletalk/pkg/conversation"
	"github.com/papercomputeco/tabletalk/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals TurnEvent with expected top-level keys", func() {
		event := eventstream.NewTurnEvent("t1", conversation.RouteRAGReview, conversation.RouteRAGReview, "을지면옥", 3, 2*time.Second)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKeyWithValue("schema_version", BeNumerically("==", 1)))
		Expect(got).To(HaveKeyWithValue("event_type", "tabletalk.turn.completed"))
		Expect(got).To(HaveKeyWithValue("thread_id", "t1"))
		Expect(got).To(HaveKeyWithValue("route", "rag_review"))
		Expect(got).To(HaveKeyWithValue("citation_count", BeNumerically("==", 3)))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("created_at"))
	})

	It("omits an empty subject", func() {
		event := eventstream.NewTurnEvent("t1", conversation.RouteChat, conversation.RouteChat, "", 0, 0)
		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(payload)).NotTo(ContainSubstring(`"subject"`))
	})

	It("assigns unique event ids", func() {
		a := eventstream.NewTurnEvent("t1", conversation.RouteChat, conversation.RouteChat, "", 0, 0)
		b := eventstream.NewTurnEvent("t1", conversation.RouteChat, conversation.RouteChat, "", 0, 0)
		Expect(a.ID).NotTo(Equal(b.ID))
	})

	It("provides ErrNilTurnEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilTurnEvent).To(MatchError("nil turn event"))
	})
})
