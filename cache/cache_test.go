package cache_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/cache"
)

var _ = Describe("Cache", func() {
	var c *cache.Cache

	newCache := func(s, e, b uint) *cache.Cache {
		g, err := cache.NewGeometry(s, e, b)
		Expect(err).NotTo(HaveOccurred())
		c, err := cache.New(g)
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	Describe("Construction", func() {
		DescribeTable("should start with 2^S sets of E invalid lines",
			func(s, e, b uint) {
				c := newCache(s, e, b)
				Expect(c.NumSets()).To(Equal(1 << s))

				for i := 0; i < c.NumSets(); i++ {
					lines, err := c.Lines(uint64(i))
					Expect(err).NotTo(HaveOccurred())
					Expect(lines).To(HaveLen(int(e)))
					for _, line := range lines {
						Expect(line.Valid).To(BeFalse())
					}

					order, err := c.RecencyOrder(uint64(i))
					Expect(err).NotTo(HaveOccurred())
					Expect(order).To(BeEmpty())
				}
				Expect(c.CheckInvariants()).To(Succeed())
			},
			Entry("direct mapped", uint(0), uint(1), uint(0)),
			Entry("small", uint(1), uint(1), uint(1)),
			Entry("4-way", uint(4), uint(4), uint(6)),
			Entry("fully associative", uint(0), uint(16), uint(4)),
		)

		It("should refuse geometries that need too many lines", func() {
			g, err := cache.NewGeometry(40, 1, 4)
			Expect(err).NotTo(HaveOccurred())

			_, err = cache.New(g)
			Expect(errors.Is(err, cache.ErrGeometryTooLarge)).To(BeTrue())
		})

		It("should refuse the first geometries past MaxLines", func() {
			for _, g := range []cache.Geometry{
				{SetBits: 25, Lines: 1, BlockBits: 4},
				{SetBits: 24, Lines: 2, BlockBits: 4},
				{SetBits: 0, Lines: cache.MaxLines + 1, BlockBits: 4},
			} {
				_, ok := g.Footprint()
				Expect(ok).To(BeFalse())

				_, err := cache.New(g)
				Expect(err).To(MatchError(cache.ErrGeometryTooLarge), g.String())
			}
		})

		It("should keep the largest accepted geometry within the byte budget", func() {
			g := cache.Geometry{SetBits: 24, Lines: 1, BlockBits: 4}

			footprint, ok := g.Footprint()
			Expect(ok).To(BeTrue())
			Expect(footprint).To(Equal(uint64(cache.MaxFootprint)))
			Expect(footprint).To(BeNumerically("<", 1<<30))

			wide := cache.Geometry{SetBits: 0, Lines: cache.MaxLines, BlockBits: 4}
			footprint, ok = wide.Footprint()
			Expect(ok).To(BeTrue())
			Expect(footprint).To(BeNumerically("<=", uint64(cache.MaxFootprint)))
		})

		It("should refuse invalid geometries", func() {
			_, err := cache.New(cache.Geometry{SetBits: 1, Lines: 0, BlockBits: 1})
			Expect(errors.Is(err, cache.ErrInvalidGeometry)).To(BeTrue())
		})
	})

	Describe("Hits and misses", func() {
		BeforeEach(func() {
			c = newCache(2, 2, 4)
		})

		It("should miss then hit on the same tag", func() {
			r, err := c.Access(1, 0x42)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Outcome).To(Equal(cache.Miss))

			r, err = c.Access(1, 0x42)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Outcome).To(Equal(cache.Hit))
			Expect(c.CheckInvariants()).To(Succeed())
		})

		It("should keep sets independent", func() {
			_, _ = c.Access(0, 7)

			r, err := c.Access(1, 7)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Outcome).To(Equal(cache.Miss))
		})

		It("should only change recency on a hit", func() {
			_, _ = c.Access(3, 1)
			_, _ = c.Access(3, 2)
			before, _ := c.Lines(3)

			r, _ := c.Access(3, 1)
			Expect(r.Outcome).To(Equal(cache.Hit))

			after, _ := c.Lines(3)
			Expect(after).To(Equal(before))

			order, _ := c.RecencyOrder(3)
			Expect(order).To(Equal([]int{1, 0}))
		})

		It("should hit on any address in the same block", func() {
			_, err := c.AccessAddress(0x1000)
			Expect(err).NotTo(HaveOccurred())

			r, err := c.AccessAddress(0x100F)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Outcome).To(Equal(cache.Hit))
		})
	})

	Describe("Eviction", func() {
		It("should fill E lines without eviction and then evict the LRU", func() {
			c = newCache(0, 4, 0)

			for tag := uint64(0); tag < 4; tag++ {
				r, err := c.Access(0, tag)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Outcome).To(Equal(cache.Miss))
			}

			// Touch 0, 2, 3 so that 1 becomes least recently used.
			_, _ = c.Access(0, 0)
			_, _ = c.Access(0, 2)
			_, _ = c.Access(0, 3)

			r, err := c.Access(0, 99)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Outcome).To(Equal(cache.MissEviction))
			Expect(r.EvictedTag).To(Equal(uint64(1)))

			Expect(c.Contains(0, 1)).To(BeFalse())
			for _, tag := range []uint64{0, 2, 3, 99} {
				Expect(c.Contains(0, tag)).To(BeTrue())
			}

			r, _ = c.Access(0, 1)
			Expect(r.Outcome).To(Equal(cache.MissEviction))
			Expect(r.EvictedTag).To(Equal(uint64(0)))
			Expect(c.CheckInvariants()).To(Succeed())
		})

		It("should reuse the victim way", func() {
			c = newCache(0, 2, 0)
			first, _ := c.Access(0, 10)
			_, _ = c.Access(0, 11)

			r, _ := c.Access(0, 12)
			Expect(r.Outcome).To(Equal(cache.MissEviction))
			Expect(r.Way).To(Equal(first.Way))

			order, _ := c.RecencyOrder(0)
			Expect(order).To(Equal([]int{1, 0}))
		})

		It("should always evict in a direct-mapped set", func() {
			c = newCache(0, 1, 0)
			_, _ = c.Access(0, 1)

			for tag := uint64(2); tag < 10; tag++ {
				r, err := c.Access(0, tag)
				Expect(err).NotTo(HaveOccurred())
				Expect(r.Outcome).To(Equal(cache.MissEviction))
				Expect(r.EvictedTag).To(Equal(tag - 1))
			}
		})
	})

	Describe("Contract violations", func() {
		It("should reject an out-of-range set index", func() {
			c = newCache(1, 1, 1)

			_, err := c.Access(2, 0)
			Expect(errors.Is(err, cache.ErrInvariant)).To(BeTrue())
			Expect(errors.Is(err, cache.ErrSetIndexOutOfRange)).To(BeTrue())
		})
	})

	Describe("Invalidate and Reset", func() {
		BeforeEach(func() {
			c = newCache(1, 2, 2)
			_, _ = c.Access(0, 5)
			_, _ = c.Access(0, 6)
			_, _ = c.Access(1, 7)
		})

		It("should invalidate a single line", func() {
			Expect(c.Invalidate(0, 5)).To(BeTrue())
			Expect(c.Invalidate(0, 5)).To(BeFalse())
			Expect(c.Contains(0, 5)).To(BeFalse())
			Expect(c.CheckInvariants()).To(Succeed())

			r, _ := c.Access(0, 8)
			Expect(r.Outcome).To(Equal(cache.Miss))
		})

		It("should empty every set on reset", func() {
			c.Reset()

			for i := uint64(0); i < 2; i++ {
				lines, _ := c.Lines(i)
				for _, line := range lines {
					Expect(line.Valid).To(BeFalse())
				}
			}
			Expect(c.CheckInvariants()).To(Succeed())

			r, _ := c.Access(1, 7)
			Expect(r.Outcome).To(Equal(cache.Miss))
		})
	})

	Describe("Outcome", func() {
		It("should print the verbose words", func() {
			Expect(cache.Hit.String()).To(Equal("hit"))
			Expect(cache.Miss.String()).To(Equal("miss"))
			Expect(cache.MissEviction.String()).To(Equal("miss eviction"))
			Expect(cache.MissEviction.IsMiss()).To(BeTrue())
			Expect(cache.Hit.IsMiss()).To(BeFalse())
		})
	})
})
