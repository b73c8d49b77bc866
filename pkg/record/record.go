// Package record captures the collisions of a simulation run tick by tick
// and stores them as msgpack, so two runs can be compared for determinism.
package record

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/opd-ai/go-arena/pkg/event"
	"github.com/opd-ai/go-arena/pkg/physics"
)

// FormatVersion is written into every recording.
const FormatVersion = 1

// ErrUnsupportedVersion is returned when decoding a recording written by a
// newer format.
var ErrUnsupportedVersion = errors.New("unsupported recording version")

// Side is one collider of a recorded pair. Entity IDs are process-wide
// counters and are left out so recordings of separate runs compare equal.
type Side struct {
	Kind     uint8  `msgpack:"k"`
	Collider uint64 `msgpack:"c"`
}

// Pair is one collision, ordered the same way as its pair key
type Pair struct {
	A Side `msgpack:"a"`
	B Side `msgpack:"b"`
}

// Frame holds the collisions reported during one tick
type Frame struct {
	Tick  uint64 `msgpack:"t"`
	Pairs []Pair `msgpack:"p"`
}

// Recording is the encoded form of a run
type Recording struct {
	Version int     `msgpack:"v"`
	Frames  []Frame `msgpack:"f"`
}

// Recorder listens on a bus and builds one Frame per completed tick.
// Ticks without collisions are recorded only when KeepEmpty is set.
type Recorder struct {
	KeepEmpty bool

	mu      sync.Mutex
	pending []Pair
	frames  []Frame
	subs    []*event.Subscription
}

// NewRecorder subscribes a recorder to bus
func NewRecorder(bus *event.Bus) *Recorder {
	r := &Recorder{}
	r.subs = []*event.Subscription{
		bus.Subscribe(event.EntityCollision, r.onCollision),
		bus.Subscribe(event.TickCompleted, r.onTick),
	}
	return r
}

func sideOf(c physics.Collider) Side {
	s := Side{Collider: uint64(c.ID())}
	if o := c.Owner(); o != nil {
		s.Kind = uint8(o.Kind())
	}
	return s
}

func (r *Recorder) onCollision(e event.Event) {
	ce, ok := e.(*physics.CollisionEvent)
	if !ok {
		return
	}
	r.mu.Lock()
	r.pending = append(r.pending, Pair{A: sideOf(ce.A), B: sideOf(ce.B)})
	r.mu.Unlock()
}

func (r *Recorder) onTick(e event.Event) {
	te, ok := e.(*event.TickEvent)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 && !r.KeepEmpty {
		return
	}
	r.frames = append(r.frames, Frame{Tick: te.Tick, Pairs: r.pending})
	r.pending = nil
}

// Close stops recording
func (r *Recorder) Close() {
	for _, sub := range r.subs {
		sub.Cancel()
	}
}

// Frames returns a copy of the recorded frames
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.frames)
}

// Encode writes the recording to w as msgpack
func (r *Recorder) Encode(w io.Writer) error {
	rec := Recording{Version: FormatVersion, Frames: r.Frames()}
	if err := msgpack.NewEncoder(w).Encode(&rec); err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}
	return nil
}

// WriteFile encodes the recording into path
func (r *Recorder) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create recording: %w", err)
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Decode reads a recording written by Encode
func Decode(rd io.Reader) (*Recording, error) {
	var rec Recording
	if err := msgpack.NewDecoder(rd).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode recording: %w", err)
	}
	if rec.Version > FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, rec.Version)
	}
	return &rec, nil
}

// Diff returns the first tick at which a and b disagree and true, or
// false when the recordings are identical.
func Diff(a, b *Recording) (uint64, bool) {
	n := min(len(a.Frames), len(b.Frames))
	for i := 0; i < n; i++ {
		fa, fb := a.Frames[i], b.Frames[i]
		if fa.Tick != fb.Tick {
			return min(fa.Tick, fb.Tick), true
		}
		if !slices.Equal(fa.Pairs, fb.Pairs) {
			return fa.Tick, true
		}
	}
	switch {
	case len(a.Frames) > n:
		return a.Frames[n].Tick, true
	case len(b.Frames) > n:
		return b.Frames[n].Tick, true
	}
	return 0, false
}
