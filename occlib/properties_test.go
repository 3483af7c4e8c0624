package occlib

import (
	pb "github.com/AliceO2Group/occ/protos"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Property decoding", func() {
	Describe("ChannelPropertyValue", func() {
		When("a channel property is integer-typed", func() {
			It("should convert the value to int", func() {
				Expect(ChannelPropertyValue("chans.data-out.0.rateLogging", "60")).To(Equal(60))
				Expect(ChannelPropertyValue("chans.data-out.0.rcvBufSize", "1000")).To(Equal(1000))
				Expect(ChannelPropertyValue("chans.data-in.0.linger", "500")).To(Equal(500))
			})
			It("should keep the string on parse failure", func() {
				Expect(ChannelPropertyValue("chans.data-out.0.rateLogging", "lots")).To(Equal("lots"))
			})
		})
		When("a channel property is not integer-typed", func() {
			It("should keep the value as string", func() {
				Expect(ChannelPropertyValue("chans.data-out.0.transport", "zeromq")).To(Equal("zeromq"))
				Expect(ChannelPropertyValue("chans.data-out.0.address", "tcp://*:5555")).To(Equal("tcp://*:5555"))
			})
		})
		When("the key is not a channel property", func() {
			It("should keep the value as string, typed segment or not", func() {
				Expect(ChannelPropertyValue("somekey", "42")).To(Equal("42"))
				Expect(ChannelPropertyValue("other.rateLogging", "60")).To(Equal("60"))
			})
		})
	})

	Describe("PropMapEntryToTree", func() {
		When("the payload is json", func() {
			It("should attach the parsed tree at the declared key", func() {
				newKey, tree, err := PropMapEntryToTree("__ptree__:json:qc_config", `{"qc": {"interval": "5", "enabled": "true"}}`)
				Expect(err).NotTo(HaveOccurred())
				Expect(newKey).To(Equal("qc_config"))
				Expect(tree).To(HaveKey("qc"))
				sub, isMap := tree["qc"].(map[string]interface{})
				Expect(isMap).To(BeTrue())
				Expect(sub).To(HaveKeyWithValue("interval", "5"))
			})
		})
		When("the payload is ini", func() {
			It("should parse sections into subtrees", func() {
				newKey, tree, err := PropMapEntryToTree("__ptree__:ini:readout_cfg", "[readout]\nrate=10\n")
				Expect(err).NotTo(HaveOccurred())
				Expect(newKey).To(Equal("readout_cfg"))
				Expect(tree).To(HaveKey("readout"))
			})
		})
		When("the payload is xml", func() {
			It("should walk elements into a nested tree", func() {
				newKey, tree, err := PropMapEntryToTree("__ptree__:xml:detector", "<detector><name>TPC</name><sectors>18</sectors></detector>")
				Expect(err).NotTo(HaveOccurred())
				Expect(newKey).To(Equal("detector"))
				sub, isMap := tree["detector"].(map[string]interface{})
				Expect(isMap).To(BeTrue())
				Expect(sub).To(HaveKeyWithValue("name", "TPC"))
				Expect(sub).To(HaveKeyWithValue("sectors", "18"))
			})
		})
		When("the key does not split into exactly three parts", func() {
			It("should report a malformed typed key", func() {
				_, _, err := PropMapEntryToTree("__ptree__:json", "{}")
				Expect(err).To(MatchError(ErrMalformedTypedKey))
				_, _, err = PropMapEntryToTree("__ptree__:json:a:b", "{}")
				Expect(err).To(MatchError(ErrMalformedTypedKey))
			})
		})
		When("the syntax declaration is unknown", func() {
			It("should report a malformed typed key", func() {
				_, _, err := PropMapEntryToTree("__ptree__:toml:cfg", "a = 1")
				Expect(err).To(MatchError(ErrMalformedTypedKey))
			})
		})
		When("the payload cannot be parsed", func() {
			It("should report a malformed typed key", func() {
				_, _, err := PropMapEntryToTree("__ptree__:json:cfg", "{broken")
				Expect(err).To(MatchError(ErrMalformedTypedKey))
			})
		})
	})

	Describe("DecodeProperties", func() {
		It("should keep entries in arrival order", func() {
			pm := DecodeProperties([]*pb.ConfigEntry{
				{Key: "b", Value: "2"},
				{Key: "a", Value: "1"},
				{Key: "c", Value: "3"},
			})
			Expect(pm).To(HaveLen(3))
			Expect(pm[0].Key).To(Equal("b"))
			Expect(pm[2].Key).To(Equal("c"))
		})

		It("should apply channel typing and expand typed subtrees", func() {
			pm := DecodeProperties([]*pb.ConfigEntry{
				{Key: "chans.data-out.0.rateLogging", Value: "60"},
				{Key: "__ptree__:json:extra", Value: `{"k": "v"}`},
			})
			Expect(pm).To(HaveLen(2))
			v, ok := pm.Get("chans.data-out.0.rateLogging")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal(60))
			tree, ok := pm.Get("extra")
			Expect(ok).To(BeTrue())
			Expect(tree).To(HaveKeyWithValue("k", "v"))
		})

		It("should drop malformed typed entries without failing the decode", func() {
			pm := DecodeProperties([]*pb.ConfigEntry{
				{Key: "__ptree__:json:broken", Value: "{broken"},
				{Key: "good", Value: "value"},
			})
			Expect(pm).To(HaveLen(1))
			Expect(pm[0].Key).To(Equal("good"))
		})

		When("the same key appears twice", func() {
			It("should resolve Get to the last value", func() {
				pm := DecodeProperties([]*pb.ConfigEntry{
					{Key: "k", Value: "first"},
					{Key: "k", Value: "second"},
				})
				v, ok := pm.Get("k")
				Expect(ok).To(BeTrue())
				Expect(v).To(Equal("second"))
			})
		})
	})

	Describe("run number extraction", func() {
		It("should read the runNumber property", func() {
			pm := PropertyMap{{Key: "runNumber", Value: "12345"}}
			Expect(pm.runNumber()).To(Equal(RunNumber(12345)))
		})
		It("should fall back to undefined when absent or unparsable", func() {
			Expect(PropertyMap{}.runNumber()).To(Equal(RunNumberUndefined))
			pm := PropertyMap{{Key: "runNumber", Value: "soon"}}
			Expect(pm.runNumber()).To(Equal(RunNumberUndefined))
		})
	})
})
