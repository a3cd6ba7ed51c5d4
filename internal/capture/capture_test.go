package capture

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/diktor/internal/encoder"
)

type fakeBackend struct {
	devices []DeviceInfo
	openErr error
	chunks  [][]byte

	mu      sync.Mutex
	opened  []*fakeDevice
	played  []int16
	playHz  int
	lastDev *DeviceInfo
}

func (f *fakeBackend) Devices() ([]DeviceInfo, error) { return f.devices, nil }
func (f *fakeBackend) Close()                         {}

func (f *fakeBackend) NewCapture(device *DeviceInfo, _ uint32, cb DataCallback) (captureDevice, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastDev = device
	d := &fakeDevice{chunks: f.chunks, cb: cb}
	f.opened = append(f.opened, d)
	return d, nil
}

func (f *fakeBackend) Play(_ context.Context, samples []int16, sampleRate int) error {
	f.played = samples
	f.playHz = sampleRate
	return nil
}

type fakeDevice struct {
	chunks  [][]byte
	cb      DataCallback
	started int
	stopped int
	closed  int
}

// Start delivers every chunk synchronously.
func (d *fakeDevice) Start() error {
	d.started++
	for _, c := range d.chunks {
		d.cb(c)
	}
	return nil
}

func (d *fakeDevice) Stop()  { d.stopped++ }
func (d *fakeDevice) Close() { d.closed++ }

func TestRecordWritesWAV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	b := &fakeBackend{chunks: [][]byte{encoder.PCM([]int16{1, 2}), encoder.PCM([]int16{3})}}
	mic := newMicrophone(b, Config{}, dir, zerolog.Nop())

	stream, err := mic.RequestAccess(context.Background())
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	if err := stream.Record(); err != nil {
		t.Fatalf("record: %v", err)
	}
	rec, err := stream.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if filepath.Dir(rec.Path()) != dir || filepath.Ext(rec.Path()) != ".wav" {
		t.Fatalf("unexpected path %q", rec.Path())
	}
	f, err := os.Open(rec.Path())
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	samples, rate, err := encoder.ReadWAV(f)
	_ = f.Close()
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	if rate != encoder.SampleRate || len(samples) != 3 || samples[2] != 3 {
		t.Fatalf("unexpected recording %v at %d Hz", samples, rate)
	}

	if err := rec.Release(); err != nil {
		t.Fatalf("release recording: %v", err)
	}
	if _, err := os.Stat(rec.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected recording to be deleted, got %v", err)
	}
	if err := rec.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestStreamReleaseClosesOnce(t *testing.T) {
	b := &fakeBackend{}
	mic := newMicrophone(b, Config{}, t.TempDir(), zerolog.Nop())
	stream, err := mic.RequestAccess(context.Background())
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	_ = stream.Release()
	_ = stream.Release()
	if got := b.opened[0].closed; got != 1 {
		t.Fatalf("expected one close, got %d", got)
	}
}

func TestDataOutsideRecordingIsDropped(t *testing.T) {
	b := &fakeBackend{}
	mic := newMicrophone(b, Config{}, t.TempDir(), zerolog.Nop())
	stream, err := mic.RequestAccess(context.Background())
	if err != nil {
		t.Fatalf("request access: %v", err)
	}
	stream.onData([]byte{1, 0})
	rec, err := stream.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	info, err := os.Stat(rec.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != encoder.WAVHeaderSize {
		t.Fatalf("expected empty recording, got %d bytes", info.Size())
	}
}

func TestRequestAccessFailureIsPermissionDenied(t *testing.T) {
	b := &fakeBackend{openErr: errors.New("no device")}
	mic := newMicrophone(b, Config{}, t.TempDir(), zerolog.Nop())
	if _, err := mic.RequestAccess(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := mic.Listen(context.Background(), func([]byte) {}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied from Listen, got %v", err)
	}
}

func TestConfiguredDeviceIsResolved(t *testing.T) {
	b := &fakeBackend{devices: []DeviceInfo{
		{ID: "alsa_input.pci", Name: "Built-in Audio"},
		{ID: "bluez_input.1", Name: "AirPods Pro"},
	}}
	mic := newMicrophone(b, Config{Device: "airpods"}, t.TempDir(), zerolog.Nop())
	if _, err := mic.RequestAccess(context.Background()); err != nil {
		t.Fatalf("request access: %v", err)
	}
	if b.lastDev == nil || b.lastDev.ID != "bluez_input.1" {
		t.Fatalf("unexpected device %+v", b.lastDev)
	}

	mic = newMicrophone(b, Config{Device: "usb headset"}, t.TempDir(), zerolog.Nop())
	if _, err := mic.RequestAccess(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected missing device to deny access, got %v", err)
	}
}

func TestMatchDevicePrefersExactID(t *testing.T) {
	devices := []DeviceInfo{{ID: "mic", Name: "Other"}, {ID: "x", Name: "mic"}}
	got, err := matchDevice(devices, "mic")
	if err != nil || got.Name != "Other" {
		t.Fatalf("expected exact ID match, got %+v %v", got, err)
	}
}

func TestListenStopsOnCancel(t *testing.T) {
	b := &fakeBackend{chunks: [][]byte{{1, 0, 2, 0}}}
	mic := newMicrophone(b, Config{}, t.TempDir(), zerolog.Nop())
	var got []byte
	stop, err := mic.Listen(context.Background(), func(pcm []byte) { got = append(got, pcm...) })
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("expected PCM to be delivered, got %v", got)
	}
	stop()
	stop()
	d := b.opened[0]
	if d.stopped != 1 || d.closed != 1 {
		t.Fatalf("expected single stop/close, got %d/%d", d.stopped, d.closed)
	}
}

func TestPlayFileDecodesWAV(t *testing.T) {
	b := &fakeBackend{}
	mic := newMicrophone(b, Config{}, t.TempDir(), zerolog.Nop())
	rec, err := writeRecording(t.TempDir(), []int16{5, -5}, 8000)
	if err != nil {
		t.Fatalf("write recording: %v", err)
	}
	if err := mic.Player().PlayFile(context.Background(), rec.Path()); err != nil {
		t.Fatalf("play: %v", err)
	}
	if b.playHz != 8000 || len(b.played) != 2 || b.played[1] != -5 {
		t.Fatalf("unexpected playback %v at %d Hz", b.played, b.playHz)
	}
}

func TestRemoveDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	if _, err := writeRecording(dir, []int16{1}, encoder.SampleRate); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	if err := RemoveDir(dir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected directory to be removed")
	}
}
