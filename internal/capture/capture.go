// Package capture records microphone audio into WAV files and plays them back.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/diktor/internal/encoder"
)

// ErrPermissionDenied reports that the capture device could not be opened.
var ErrPermissionDenied = errors.New("microphone access denied")

// DeviceInfo describes a capture device.
type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// DataCallback receives 16-bit little-endian mono PCM.
type DataCallback func(pcm []byte)

type backend interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, sampleRate uint32, cb DataCallback) (captureDevice, error)
	Play(ctx context.Context, samples []int16, sampleRate int) error
	Close()
}

type captureDevice interface {
	Start() error
	Stop()
	Close()
}

// Config selects the input device. An empty Device uses the system default.
type Config struct {
	Device     string
	SampleRate int
}

// Microphone opens capture streams on the configured device.
type Microphone struct {
	backend    backend
	device     string
	sampleRate int
	dir        string
	log        zerolog.Logger
}

// NewMicrophone connects to the platform audio system. Recordings are written to dir.
func NewMicrophone(cfg Config, dir string, log zerolog.Logger) (*Microphone, error) {
	b, err := newBackend()
	if err != nil {
		return nil, fmt.Errorf("audio backend: %w", err)
	}
	return newMicrophone(b, cfg, dir, log), nil
}

func newMicrophone(b backend, cfg Config, dir string, log zerolog.Logger) *Microphone {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = encoder.SampleRate
	}
	return &Microphone{
		backend:    b,
		device:     strings.TrimSpace(cfg.Device),
		sampleRate: rate,
		dir:        dir,
		log:        log,
	}
}

// Close disconnects from the audio system.
func (m *Microphone) Close() {
	m.backend.Close()
}

// SampleRate returns the capture rate in Hz.
func (m *Microphone) SampleRate() int {
	return m.sampleRate
}

// Devices lists the available capture devices.
func (m *Microphone) Devices() ([]DeviceInfo, error) {
	return m.backend.Devices()
}

// resolveDevice finds the configured device by ID or by case-insensitive name fragment.
func (m *Microphone) resolveDevice() (*DeviceInfo, error) {
	if m.device == "" {
		return nil, nil
	}
	devices, err := m.backend.Devices()
	if err != nil {
		return nil, err
	}
	return matchDevice(devices, m.device)
}

func matchDevice(devices []DeviceInfo, want string) (*DeviceInfo, error) {
	for i := range devices {
		if devices[i].ID == want {
			return &devices[i], nil
		}
	}
	lower := strings.ToLower(want)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), lower) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("capture device %q not found", want)
}

// RequestAccess opens the capture device. The stream is idle until Record.
func (m *Microphone) RequestAccess(_ context.Context) (*Stream, error) {
	device, err := m.resolveDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	s := &Stream{dir: m.dir, sampleRate: m.sampleRate, log: m.log}
	dev, err := m.backend.NewCapture(device, uint32(m.sampleRate), s.onData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	s.device = dev
	return s, nil
}

// Listen streams raw PCM to onData until the returned stop function is called
// or ctx is done.
func (m *Microphone) Listen(ctx context.Context, onData func(pcm []byte)) (func(), error) {
	device, err := m.resolveDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	dev, err := m.backend.NewCapture(device, uint32(m.sampleRate), onData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if err := dev.Start(); err != nil {
		dev.Close()
		return nil, fmt.Errorf("start capture: %w", err)
	}
	var once sync.Once
	done := make(chan struct{})
	stop := func() {
		once.Do(func() {
			close(done)
			dev.Stop()
			dev.Close()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()
	return stop, nil
}

// Stream buffers PCM between Record and Stop.
type Stream struct {
	device     captureDevice
	dir        string
	sampleRate int
	log        zerolog.Logger

	mu        sync.Mutex
	recording bool
	pcm       []byte

	releaseOnce sync.Once
}

func (s *Stream) onData(pcm []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recording {
		s.pcm = append(s.pcm, pcm...)
	}
}

// Record starts capturing.
func (s *Stream) Record() error {
	s.mu.Lock()
	s.recording = true
	s.pcm = s.pcm[:0]
	s.mu.Unlock()
	if err := s.device.Start(); err != nil {
		s.mu.Lock()
		s.recording = false
		s.mu.Unlock()
		return fmt.Errorf("start capture: %w", err)
	}
	return nil
}

// Stop stops capturing and writes the take to a WAV file.
func (s *Stream) Stop() (*Recording, error) {
	s.device.Stop()
	s.mu.Lock()
	s.recording = false
	pcm := s.pcm
	s.pcm = nil
	s.mu.Unlock()
	return writeRecording(s.dir, encoder.Samples(pcm), s.sampleRate)
}

// Release closes the capture device. Calls after the first are no-ops.
func (s *Stream) Release() error {
	s.releaseOnce.Do(func() {
		s.device.Close()
	})
	return nil
}

func writeRecording(dir string, samples []int16, sampleRate int) (*Recording, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, uuid.NewString()+".wav")
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := encoder.WriteWAV(f, samples, sampleRate); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	return &Recording{path: path}, nil
}

// Recording is a WAV file on disk.
type Recording struct {
	path string
}

// Path returns the WAV file location.
func (r *Recording) Path() string {
	return r.path
}

// Release deletes the file. A missing file is not an error.
func (r *Recording) Release() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Player plays recordings on the default output device.
type Player struct {
	backend backend
}

// Player returns a player sharing the microphone's audio connection.
func (m *Microphone) Player() *Player {
	return &Player{backend: m.backend}
}

// PlayFile plays a WAV file and blocks until it ends or ctx is done.
func (p *Player) PlayFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	samples, rate, err := encoder.ReadWAV(f)
	if cerr := f.Close(); cerr != nil {
		// Read-only file; the close error carries no information.
		_ = cerr
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(samples) == 0 {
		return nil
	}
	return p.backend.Play(ctx, samples, rate)
}

// RemoveDir deletes the recordings directory.
func RemoveDir(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}
