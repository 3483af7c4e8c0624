package pb

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("JSON wire codec", func() {
	var codec JsonCodec

	It("should advertise itself as the json content subtype", func() {
		Expect(codec.Name()).To(Equal("json"))
	})

	It("should serialize a transition request with the wire field names", func() {
		raw, err := codec.Marshal(&TransitionRequest{
			SrcState:        "STANDBY",
			TransitionEvent: "CONFIGURE",
			Arguments: []*ConfigEntry{
				{Key: "chans.data.0.rateLogging", Value: "60"},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(MatchJSON(`{
			"srcState": "STANDBY",
			"transitionEvent": "CONFIGURE",
			"arguments": [{"key": "chans.data.0.rateLogging", "value": "60"}]
		}`))
	})

	It("should round-trip a transition reply including enum values", func() {
		raw, err := codec.Marshal(&TransitionReply{
			Trigger:         StateChangeTrigger_DEVICE_ERROR,
			State:           "ERROR",
			TransitionEvent: "START",
			Ok:              false,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(MatchJSON(`{
			"trigger": 2,
			"state": "ERROR",
			"transitionEvent": "START",
			"ok": false
		}`))

		var rep TransitionReply
		Expect(codec.Unmarshal(raw, &rep)).To(Succeed())
		Expect(rep.GetTrigger()).To(Equal(StateChangeTrigger_DEVICE_ERROR))
		Expect(rep.GetState()).To(Equal("ERROR"))
	})

	It("should tolerate absent optional fields on decode", func() {
		var req TransitionRequest
		Expect(codec.Unmarshal([]byte(`{"transitionEvent": "EXIT"}`), &req)).To(Succeed())
		Expect(req.GetTransitionEvent()).To(Equal("EXIT"))
		Expect(req.GetSrcState()).To(BeEmpty())
		Expect(req.GetArguments()).To(BeNil())
	})

	It("should keep nil-safe getters usable on absent messages", func() {
		var rep *EventStreamReply
		Expect(rep.GetEvent().GetType()).To(Equal(DeviceEventType_NULL_DEVICE_EVENT))
	})
})
