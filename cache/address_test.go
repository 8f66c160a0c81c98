package cache_test

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/cache"
)

var _ = Describe("Geometry", func() {
	It("should derive sizes", func() {
		g, err := cache.NewGeometry(4, 2, 6)
		Expect(err).NotTo(HaveOccurred())

		Expect(g.NumSets()).To(Equal(uint64(16)))
		Expect(g.BlockSize()).To(Equal(uint64(64)))
		Expect(g.TagBits()).To(Equal(uint(54)))

		capacity, ok := g.Capacity()
		Expect(ok).To(BeTrue())
		Expect(capacity).To(Equal(uint64(16 * 2 * 64)))
		Expect(g.String()).To(Equal("s=4 E=2 b=6"))
	})

	It("should accept S + b = 64", func() {
		g, err := cache.NewGeometry(32, 1, 32)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.TagBits()).To(BeZero())

		_, ok := g.Capacity()
		Expect(ok).To(BeFalse())
	})

	DescribeTable("should reject",
		func(s, e, b uint) {
			_, err := cache.NewGeometry(s, e, b)
			Expect(errors.Is(err, cache.ErrInvalidGeometry)).To(BeTrue())
		},
		Entry("zero lines", uint(2), uint(0), uint(2)),
		Entry("S + b > 64", uint(33), uint(1), uint(32)),
		Entry("b > 64", uint(0), uint(1), uint(65)),
		Entry("S > 64", uint(65), uint(1), uint(0)),
	)
})

var _ = Describe("Decoder", func() {
	decoderFor := func(s, b uint) *cache.Decoder {
		g, err := cache.NewGeometry(s, 1, b)
		Expect(err).NotTo(HaveOccurred())
		d, err := cache.NewDecoder(g)
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	It("should split low to high into offset, set and tag", func() {
		d := decoderFor(4, 4)

		a := d.Decode(0xABCD)
		Expect(a.Offset).To(Equal(uint64(0xD)))
		Expect(a.SetIndex).To(Equal(uint64(0xC)))
		Expect(a.Tag).To(Equal(uint64(0xAB)))
	})

	It("should map the small scenario addresses", func() {
		d := decoderFor(1, 1)

		Expect(d.Decode(0x0)).To(Equal(cache.Address{Tag: 0, SetIndex: 0}))
		Expect(d.Decode(0x2)).To(Equal(cache.Address{Tag: 0, SetIndex: 1}))
		Expect(d.Decode(0x4)).To(Equal(cache.Address{Tag: 1, SetIndex: 0}))
	})

	It("should handle S = 0 and b = 0", func() {
		d := decoderFor(0, 0)

		a := d.Decode(0xFFFF_FFFF_FFFF_FFFF)
		Expect(a.Offset).To(BeZero())
		Expect(a.SetIndex).To(BeZero())
		Expect(a.Tag).To(Equal(uint64(0xFFFF_FFFF_FFFF_FFFF)))
	})

	It("should handle a zero-width tag", func() {
		d := decoderFor(60, 4)

		a := d.Decode(0xFFFF_FFFF_FFFF_FFF3)
		Expect(a.Tag).To(BeZero())
		Expect(a.Offset).To(Equal(uint64(3)))
		Expect(a.SetIndex).To(Equal(uint64(0x0FFF_FFFF_FFFF_FFFF)))
	})

	It("should round-trip to the block address", func() {
		rng := rand.New(rand.NewSource(7))

		for i := 0; i < 200; i++ {
			s := uint(rng.Intn(33))
			b := uint(rng.Intn(65 - int(s)))
			d := decoderFor(s, b)

			addr := rng.Uint64()
			a := d.Decode(addr)

			Expect(d.Reassemble(a.Tag, a.SetIndex)).To(Equal(d.BlockAddress(addr)),
				"s=%d b=%d addr=%#x", s, b, addr)
			Expect(d.BlockAddress(addr) | a.Offset).To(Equal(addr))
		}
	})
})
