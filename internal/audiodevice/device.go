// Package audiodevice bridges the engine's realtime render callback to
// an actual audio output device via oto/v3. Grounded on
// internal/audio/player.go's oto.NewContext/sync.Once idiom, generalized
// from one-shot blocking sound playback to a continuous streaming
// reader that pulls fixed-size blocks from Engine.RenderBlock.
package audiodevice

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// ErrAudioInitFailed wraps any failure to initialize the platform audio
// backend. Per spec.md §7 this is the one error kind that is fatal to
// the process; cmd/vibed logs it and exits with code 1.
var ErrAudioInitFailed = errors.New("audiodevice: audio init failed")

// Renderer is the callback contract a Device pulls blocks from. It
// matches internal/engine.Engine.RenderBlock's signature exactly so no
// adaptor shim is needed at the call site in cmd/vibed.
type Renderer interface {
	RenderBlock(out []float32, frames int) float64
}

// Device owns an oto playback context and player, continuously pulling
// fixed-size float32 stereo blocks from a Renderer.
type Device struct {
	ctx    *oto.Context
	player *oto.Player
	reader *blockReader
	logger *slog.Logger
}

// Config parameterizes a Device. SampleRate and BlockSize must match
// what the Renderer was constructed with.
type Config struct {
	SampleRate int
	BlockSize  int
	Logger     *slog.Logger
}

// Open initializes the platform audio backend and starts a player
// pulling blocks from r. Playback begins immediately; use
// engine.SetPlaying(false) to silence output without tearing the
// device down.
func Open(r Renderer, cfg Config) (*Device, error) {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 512
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: initializing oto context: %v", ErrAudioInitFailed, err)
	}
	<-ready

	reader := &blockReader{renderer: r, frames: cfg.BlockSize}
	player := ctx.NewPlayer(reader)
	player.SetBufferSize(cfg.BlockSize * 2 * 4 * 2) // two blocks of headroom, float32 stereo

	d := &Device{ctx: ctx, player: player, reader: reader, logger: logger}
	player.Play()
	return d, nil
}

// Close stops playback and releases the player. The oto.Context itself
// is process-lifetime and is not torn down.
func (d *Device) Close() error {
	return d.player.Close()
}

// blockReader adapts a Renderer's pull-based RenderBlock into the
// streaming io.Reader oto.NewPlayer expects.
type blockReader struct {
	mu       sync.Mutex
	renderer Renderer
	frames   int
	scratch  []float32
	pending  []byte
}

func (b *blockReader) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		if b.scratch == nil {
			b.scratch = make([]float32, b.frames*2)
		}
		b.renderer.RenderBlock(b.scratch, b.frames)
		b.pending = encodeFloat32LE(b.scratch, b.pending[:0])
	}

	n := copy(p, b.pending)
	b.pending = b.pending[n:]
	return n, nil
}

func encodeFloat32LE(samples []float32, dst []byte) []byte {
	for _, s := range samples {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(s))
		dst = append(dst, buf[:]...)
	}
	return dst
}

var _ io.Reader = (*blockReader)(nil)
