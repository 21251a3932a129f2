package tui

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Sound names a short cue played for a game event.
type Sound int

const (
	SoundNone Sound = iota
	SoundBlocked
	SoundSplash
	SoundExplosion
	SoundDeath
	SoundExit
	SoundGate
)

// Sounder plays cues. The terminal client only depends on this.
type Sounder interface {
	Play(Sound)
}

// SoundManager mixes cues onto the system speaker.
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

// NewSoundManager creates a silent manager; call Initialize to open the
// speaker.
func NewSoundManager() *SoundManager {
	return &SoundManager{mixer: &beep.Mixer{}}
}

// Initialize sets up the audio system
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Close stops all sounds and releases the speaker.
func (sm *SoundManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	sm.initialized = false
}

// Play queues the cue. It is a no-op before Initialize.
func (sm *SoundManager) Play(s Sound) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	streamer := Cue(s)
	if streamer == nil {
		return
	}
	speaker.Lock()
	sm.mixer.Add(streamer)
	speaker.Unlock()
}

// Cue builds the streamer for s, nil for SoundNone.
func Cue(s Sound) beep.Streamer {
	switch s {
	case SoundBlocked:
		return tone(110, 60*time.Millisecond, 0.2, waveSquare)
	case SoundSplash:
		return tone(0, 250*time.Millisecond, 0.3, waveNoise)
	case SoundExplosion:
		return beep.Seq(
			tone(0, 120*time.Millisecond, 0.5, waveNoise),
			tone(55, 250*time.Millisecond, 0.4, waveSquare),
		)
	case SoundDeath:
		return beep.Seq(
			tone(392, 150*time.Millisecond, 0.3, waveSine),
			tone(311, 150*time.Millisecond, 0.3, waveSine),
			tone(262, 300*time.Millisecond, 0.3, waveSine),
		)
	case SoundExit:
		return beep.Seq(
			tone(523.25, 100*time.Millisecond, 0.3, waveSine),
			tone(659.25, 100*time.Millisecond, 0.3, waveSine),
			tone(783.99, 200*time.Millisecond, 0.3, waveSine),
		)
	case SoundGate:
		return tone(220, 120*time.Millisecond, 0.2, waveSaw)
	}
	return nil
}

type wave int

const (
	waveSine wave = iota
	waveSquare
	waveSaw
	waveNoise
)

// oscillator generates a fixed number of samples of one wave with a linear
// release over the last quarter.
type oscillator struct {
	freq     float64
	phase    float64
	amp      float64
	wave     wave
	position int
	duration int
}

func tone(freq float64, d time.Duration, amp float64, w wave) beep.Streamer {
	return &oscillator{freq: freq, amp: amp, wave: w, duration: sampleRate.N(d)}
}

func (o *oscillator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if o.position >= o.duration {
			return i, i > 0
		}

		var val float64
		switch o.wave {
		case waveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case waveSquare:
			val = 1
			if o.phase >= 0.5 {
				val = -1
			}
		case waveSaw:
			val = 2 * (o.phase - 0.5)
		case waveNoise:
			val = rand.Float64()*2 - 1
		}

		vol := o.amp
		release := o.duration / 4
		if remaining := o.duration - o.position; release > 0 && remaining < release {
			vol *= float64(remaining) / float64(release)
		}

		samples[i][0] = val * vol
		samples[i][1] = val * vol

		o.phase += o.freq / float64(sampleRate)
		o.phase -= math.Floor(o.phase)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }
