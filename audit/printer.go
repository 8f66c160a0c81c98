package audit

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	akitasim "github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cachesim/cache"
)

// Printer writes one verbose line per access, e.g. "L 10,1 miss eviction".
type Printer struct {
	w        io.Writer
	hit      *color.Color
	miss     *color.Color
	eviction *color.Color
}

// NewPrinter creates a Printer. With useColor the outcome words are
// colored.
func NewPrinter(w io.Writer, useColor bool) *Printer {
	p := &Printer{
		w:        w,
		hit:      color.New(color.FgGreen),
		miss:     color.New(color.FgYellow),
		eviction: color.New(color.FgRed),
	}

	for _, c := range []*color.Color{p.hit, p.miss, p.eviction} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// Func prints the access.
func (p *Printer) Func(ctx akitasim.HookCtx) {
	rec, ok := accessRecord(ctx)
	if !ok {
		return
	}

	words := make([]string, 0, len(rec.Outcomes)+1)
	for _, o := range rec.Outcomes {
		switch o {
		case cache.Hit:
			words = append(words, p.hit.Sprint("hit"))
		case cache.Miss:
			words = append(words, p.miss.Sprint("miss"))
		case cache.MissEviction:
			words = append(words, p.miss.Sprint("miss"), p.eviction.Sprint("eviction"))
		}
	}

	fmt.Fprintf(p.w, "%s %x,%d %s\n",
		rec.Op.Token(), rec.Address, rec.Size, strings.Join(words, " "))
}
