package occlib

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Subscriber registry", func() {
	Describe("GenerateSubscriptionId", func() {
		It("should embed the purpose in the id", func() {
			id := GenerateSubscriptionId("StateStream")
			Expect(id).To(HavePrefix("OCC_StateStream_"))
		})
		It("should cope with an empty purpose", func() {
			id := GenerateSubscriptionId("")
			Expect(id).To(HavePrefix("OCC_"))
			Expect(strings.Count(id, "_")).To(Equal(1))
		})
		It("should not repeat itself", func() {
			Expect(GenerateSubscriptionId("x")).NotTo(Equal(GenerateSubscriptionId("x")))
		})
	})

	Describe("subscription lifecycle", func() {
		var r *subscriberRegistry[State]

		BeforeEach(func() {
			r = newSubscriberRegistry[State]()
		})

		It("should deliver notifications to every subscriber", func() {
			_, q1 := r.Subscribe("a")
			_, q2 := r.Subscribe("b")
			Expect(r.Count()).To(Equal(2))

			r.Publish(CONFIGURED)
			Expect(<-q1).To(Equal(CONFIGURED))
			Expect(<-q2).To(Equal(CONFIGURED))
		})

		It("should close the queue on unsubscribe", func() {
			id, q := r.Subscribe("a")
			r.Unsubscribe(id)
			Expect(r.Count()).To(Equal(0))

			_, open := <-q
			Expect(open).To(BeFalse())
		})

		It("should tolerate a double unsubscribe", func() {
			id, _ := r.Subscribe("a")
			r.Unsubscribe(id)
			r.Unsubscribe(id)
			Expect(r.Count()).To(Equal(0))
		})

		When("a subscriber stops draining its queue", func() {
			It("should drop the oldest notification and keep the publisher unblocked", func() {
				_, q := r.Subscribe("slow")

				for i := 0; i < subscriptionQueueSize+3; i++ {
					r.Publish(RUNNING)
				}
				r.Publish(DONE)

				// The queue stayed bounded and the freshest publish
				// survived at its tail.
				Expect(len(q)).To(Equal(subscriptionQueueSize))
				var last State
				for len(q) > 0 {
					last = <-q
				}
				Expect(last).To(Equal(DONE))
			})
		})
	})
})
