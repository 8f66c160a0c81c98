package cache

// Address is a memory address split into its cache fields.
type Address struct {
	Tag      uint64
	SetIndex uint64
	Offset   uint64
}

// Decoder splits addresses according to a geometry. Bits are taken from
// the low end: b offset bits, then S set-index bits, then the tag.
type Decoder struct {
	geometry   Geometry
	setMask    uint64
	offsetMask uint64
}

// NewDecoder creates a decoder for a validated geometry.
func NewDecoder(g Geometry) (*Decoder, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	return &Decoder{
		geometry:   g,
		setMask:    lowMask(g.SetBits),
		offsetMask: lowMask(g.BlockBits),
	}, nil
}

// Geometry returns the geometry the decoder was built for.
func (d *Decoder) Geometry() Geometry {
	return d.geometry
}

// Decode splits addr into tag, set index and block offset.
func (d *Decoder) Decode(addr uint64) Address {
	b := d.geometry.BlockBits
	s := d.geometry.SetBits

	return Address{
		Offset:   addr & d.offsetMask,
		SetIndex: (addr >> b) & d.setMask,
		Tag:      addr >> (s + b),
	}
}

// Reassemble rebuilds the block-aligned address of a (tag, set index) pair.
func (d *Decoder) Reassemble(tag, setIndex uint64) uint64 {
	b := d.geometry.BlockBits
	s := d.geometry.SetBits

	return (tag << (s + b)) | ((setIndex & d.setMask) << b)
}

// BlockAddress clears the block-offset bits of addr.
func (d *Decoder) BlockAddress(addr uint64) uint64 {
	return addr &^ d.offsetMask
}

// lowMask returns a mask of the lowest n bits. Go defines shifts by the
// full width as zero, so n = 64 yields all ones.
func lowMask(n uint) uint64 {
	return (uint64(1) << n) - 1
}
