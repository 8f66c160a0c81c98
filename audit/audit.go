// Package audit exports the per-access trail of a simulation run. Every
// exporter is an Akita hook that the driver invokes once per resolved
// trace record.
package audit

import (
	akitasim "github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/cachesim/sim"
)

// accessRecord extracts the access record from a hook context, or returns
// false if the hook fired at another position.
func accessRecord(ctx akitasim.HookCtx) (sim.AccessRecord, bool) {
	if ctx.Pos != sim.HookPosAccess {
		return sim.AccessRecord{}, false
	}

	rec, ok := ctx.Item.(sim.AccessRecord)

	return rec, ok
}

// Recorder keeps every access record in memory.
type Recorder struct {
	Records []sim.AccessRecord
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Func records the access.
func (r *Recorder) Func(ctx akitasim.HookCtx) {
	if rec, ok := accessRecord(ctx); ok {
		r.Records = append(r.Records, rec)
	}
}
