// Package chunker applies silence and duration boundary policy to a live
// PCM stream, sealing bounded chunks in strict capture order.
package chunker

import (
	"sync"
	"time"
)

// Reason records which trigger sealed a chunk.
type Reason string

const (
	ReasonSilence     Reason = "silence"
	ReasonMaxDuration Reason = "max_duration"
	ReasonForcedStop  Reason = "forced_stop"
)

// Sealed is one immutable bounded span of captured audio. Seq values are
// contiguous from zero within a session; Start/End are offsets from the
// session origin derived from sample counts, not wall clock.
type Sealed struct {
	Seq     int
	Samples []int16
	Start   time.Duration
	End     time.Duration
	Reason  Reason
}

// Config holds the boundary policy parameters.
type Config struct {
	SampleRate    int
	Threshold     int           // peak amplitude below which a frame counts as silence
	SilenceLimit  time.Duration // minimum silence run before a silence split
	SplitInterval time.Duration // hard per-chunk duration cap
}

// Chunker consumes PCM frames and emits sealed chunks. It is fed from the
// capture goroutine; SetSplitInterval may be called from the control loop.
type Chunker struct {
	mu  sync.Mutex
	cfg Config

	seq        int
	buf        []int16
	baseSample int64 // session-relative sample offset of buf[0]
	silenceRun int   // consecutive silent samples ending at the buffer tail
	voiced     bool  // current open chunk contains at least one voiced frame
}

func New(cfg Config) *Chunker {
	return &Chunker{cfg: cfg}
}

// SetSplitInterval swaps the max-duration cap; the realtime transcription
// toggle uses this to shorten chunks without restarting capture.
func (c *Chunker) SetSplitInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.cfg.SplitInterval = d
	}
}

// Feed consumes one capture frame and returns any chunks it sealed, in
// order. A single frame can complete both a silence window and the duration
// cap; whichever fires first wins and resets the accumulators.
func (c *Chunker) Feed(frame []int16) []Sealed {
	if len(frame) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if Peak(frame) < c.cfg.Threshold {
		c.silenceRun += len(frame)
	} else {
		c.silenceRun = 0
		c.voiced = true
	}
	c.buf = append(c.buf, frame...)

	var sealed []Sealed

	// Silence trigger: seal at the silence onset. The trailing silence is
	// kept as the next chunk's lead-in so word onsets are never clipped.
	if c.voiced && c.silenceRun >= c.samplesFor(c.cfg.SilenceLimit) {
		onset := len(c.buf) - c.silenceRun
		if onset > 0 {
			sealed = append(sealed, c.seal(onset, ReasonSilence))
			c.silenceRun = 0
			c.voiced = false
		}
	}

	// Max-duration trigger: hard cut exactly at the configured interval.
	for limit := c.samplesFor(c.cfg.SplitInterval); limit > 0 && len(c.buf) >= limit; {
		sealed = append(sealed, c.seal(limit, ReasonMaxDuration))
		c.silenceRun = min(c.silenceRun, len(c.buf))
		c.voiced = Peak(c.buf) >= c.cfg.Threshold
	}

	return sealed
}

// ForceSeal closes whatever partial chunk is open, regardless of duration
// or silence state. Returns nil when nothing is buffered.
func (c *Chunker) ForceSeal() *Sealed {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.buf) == 0 {
		return nil
	}
	s := c.seal(len(c.buf), ReasonForcedStop)
	c.silenceRun = 0
	c.voiced = false
	return &s
}

// Reset discards all buffered audio and restarts seq and the session clock
// at zero. Capture continues uninterrupted.
func (c *Chunker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
	c.buf = nil
	c.baseSample = 0
	c.silenceRun = 0
	c.voiced = false
}

// NextSeq returns the seq the next sealed chunk will receive.
func (c *Chunker) NextSeq() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// seal detaches the first n buffered samples as a chunk. Caller holds c.mu.
func (c *Chunker) seal(n int, reason Reason) Sealed {
	samples := make([]int16, n)
	copy(samples, c.buf[:n])
	c.buf = c.buf[n:]

	s := Sealed{
		Seq:     c.seq,
		Samples: samples,
		Start:   c.duration(c.baseSample),
		End:     c.duration(c.baseSample + int64(n)),
		Reason:  reason,
	}
	c.seq++
	c.baseSample += int64(n)
	return s
}

func (c *Chunker) samplesFor(d time.Duration) int {
	return int(d.Seconds() * float64(c.cfg.SampleRate))
}

func (c *Chunker) duration(samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(c.cfg.SampleRate) * float64(time.Second))
}

// Peak returns the largest absolute sample amplitude in the frame.
func Peak(frame []int16) int {
	peak := 0
	for _, s := range frame {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
