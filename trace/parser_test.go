package trace_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/trace"
)

var _ = Describe("Classify", func() {
	DescribeTable("should map tokens to operations",
		func(token string, op trace.Op) {
			got, err := trace.Classify(token)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(op))
			Expect(got.Token()).To(Equal(token))
		},
		Entry("instruction fetch", "I", trace.OpInstructionFetch),
		Entry("load", "L", trace.OpLoad),
		Entry("store", "S", trace.OpStore),
		Entry("modify", "M", trace.OpModify),
	)

	DescribeTable("should reject unknown tokens",
		func(token string) {
			op, err := trace.Classify(token)
			Expect(err).To(MatchError(trace.ErrUnknownOp))
			Expect(op).To(Equal(trace.OpUnknown))
		},
		Entry("lower case", "l"),
		Entry("other letter", "X"),
		Entry("word", "LOAD"),
		Entry("empty", ""),
	)

	It("should count cache accesses per operation", func() {
		Expect(trace.OpLoad.Accesses()).To(Equal(1))
		Expect(trace.OpStore.Accesses()).To(Equal(1))
		Expect(trace.OpModify.Accesses()).To(Equal(2))
		Expect(trace.OpInstructionFetch.Accesses()).To(BeZero())
		Expect(trace.OpInstructionFetch.IsData()).To(BeFalse())
		Expect(trace.OpModify.IsData()).To(BeTrue())
	})
})

var _ = Describe("ParseLine", func() {
	It("should parse a data record with leading space", func() {
		rec, err := trace.ParseLine(" L 7ff0005c8,8")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Op).To(Equal(trace.OpLoad))
		Expect(rec.Address).To(Equal(uint64(0x7ff0005c8)))
		Expect(rec.Size).To(Equal(uint64(8)))
	})

	It("should parse an instruction fetch", func() {
		rec, err := trace.ParseLine("I 0400d7d4,8")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Op).To(Equal(trace.OpInstructionFetch))
		Expect(rec.Address).To(Equal(uint64(0x0400d7d4)))
	})

	It("should accept a 0x prefix and a space after the comma", func() {
		rec, err := trace.ParseLine("M 0x10, 4")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Op).To(Equal(trace.OpModify))
		Expect(rec.Address).To(Equal(uint64(0x10)))
		Expect(rec.Size).To(Equal(uint64(4)))
	})

	It("should parse the full 64-bit range", func() {
		rec, err := trace.ParseLine("S ffffffffffffffff,1")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec.Address).To(Equal(^uint64(0)))
	})

	It("should format back to trace syntax", func() {
		rec, _ := trace.ParseLine(" S 18,4")
		Expect(rec.String()).To(Equal("S 18,4"))
	})

	DescribeTable("should reject malformed lines",
		func(line string) {
			_, err := trace.ParseLine(line)
			Expect(err).To(MatchError(trace.ErrMalformed))
		},
		Entry("op only", "L"),
		Entry("missing size", "L 10"),
		Entry("empty size", "L 10,"),
		Entry("empty address", "L ,4"),
		Entry("non-hex address", "L 1g,4"),
		Entry("address overflow", "L 1ffffffffffffffff,4"),
		Entry("negative size", "L 10,-4"),
	)

	It("should report unknown operations distinctly", func() {
		_, err := trace.ParseLine("X 10,4")
		Expect(err).To(MatchError(trace.ErrUnknownOp))
	})
})
