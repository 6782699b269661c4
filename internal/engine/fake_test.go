package engine

import "fmt"

type fakeTarget struct {
	id       int
	w, h     int
	released bool
}

func (t *fakeTarget) Size() (int, int) { return t.w, t.h }

// call is one recorded device operation. Target fields hold target ids.
type call struct {
	op    string
	src   int
	dst   int
	pings int32
}

func (c call) String() string { return fmt.Sprintf("%s(%d->%d,%d)", c.op, c.src, c.dst, c.pings) }

// fakeDevice records every operation instead of rendering.
type fakeDevice struct {
	nextID    int
	calls     []call
	allocErr  error
	uploadErr error
	field     *RandomField
	targets   map[int]*fakeTarget

	lastSample  *SampleUniforms
	lastDisplay *DisplayUniforms
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{targets: make(map[int]*fakeTarget)}
}

func (d *fakeDevice) AllocTargets(w, h int) ([2]Target, error) {
	if d.allocErr != nil {
		return [2]Target{}, d.allocErr
	}
	var out [2]Target
	for i := range out {
		d.nextID++
		t := &fakeTarget{id: d.nextID, w: w, h: h}
		d.targets[t.id] = t
		out[i] = t
	}
	d.calls = append(d.calls, call{op: "alloc", src: out[0].(*fakeTarget).id, dst: out[1].(*fakeTarget).id})
	return out, nil
}

func (d *fakeDevice) ReleaseTargets(ts [2]Target) {
	for _, t := range ts {
		ft := t.(*fakeTarget)
		ft.released = true
		d.calls = append(d.calls, call{op: "release", dst: ft.id})
	}
}

func (d *fakeDevice) Clear(t Target) {
	d.calls = append(d.calls, call{op: "clear", dst: t.(*fakeTarget).id})
}

func (d *fakeDevice) UploadRandomField(f *RandomField) error {
	if d.uploadErr != nil {
		return d.uploadErr
	}
	d.field = f
	return nil
}

func (d *fakeDevice) Sample(u *SampleUniforms, src, dst Target) {
	d.lastSample = u
	d.calls = append(d.calls, call{op: "sample", src: src.(*fakeTarget).id, dst: dst.(*fakeTarget).id})
}

func (d *fakeDevice) Display(u *DisplayUniforms, src Target) {
	d.lastDisplay = u
	d.calls = append(d.calls, call{op: "display", src: src.(*fakeTarget).id, pings: u.NumPings})
}

// ops returns the recorded operation names since the last reset.
func (d *fakeDevice) ops() []string {
	out := make([]string, len(d.calls))
	for i, c := range d.calls {
		out[i] = c.op
	}
	return out
}

func (d *fakeDevice) resetCalls() { d.calls = nil }

func id(t Target) int { return t.(*fakeTarget).id }
