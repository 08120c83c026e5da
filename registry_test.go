package cpshadow

import (
	"errors"
	"testing"
)

// withRegistry swaps in an empty registry for the duration of a test.
func withRegistry(t *testing.T) {
	t.Helper()
	registryMu.Lock()
	saved := registry
	registry = make(map[string]*backendEntry)
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})
}

func fakeFactory(dev *fakeDevice) DeviceFactory {
	return func(any) (Device, error) { return dev, nil }
}

func TestRegisterBackend(t *testing.T) {
	withRegistry(t)

	RegisterBackend("low", 10, fakeFactory(&fakeDevice{}), nil)
	RegisterBackend("high", 100, fakeFactory(&fakeDevice{}), func() bool { return false })
	RegisterBackend("mid", 50, fakeFactory(&fakeDevice{}), nil)

	got := Backends()
	want := []BackendInfo{
		{Name: "high", Priority: 100, Available: false},
		{Name: "mid", Priority: 50, Available: true},
		{Name: "low", Priority: 10, Available: true},
	}
	if len(got) != len(want) {
		t.Fatalf("Backends() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Backends()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	UnregisterBackend("mid")
	if n := len(Backends()); n != 2 {
		t.Errorf("len(Backends()) after unregister = %d, want 2", n)
	}
}

func TestOpenDeviceErrors(t *testing.T) {
	withRegistry(t)

	_, err := OpenDevice("missing", nil)
	var nf *BackendNotFoundError
	if !errors.As(err, &nf) || nf.Name != "missing" {
		t.Errorf("OpenDevice(missing) err = %v, want *BackendNotFoundError", err)
	}

	RegisterBackend("off", 10, fakeFactory(&fakeDevice{}), func() bool { return false })
	_, err = OpenDevice("off", nil)
	var ua *BackendUnavailableError
	if !errors.As(err, &ua) {
		t.Errorf("OpenDevice(off) err = %v, want *BackendUnavailableError", err)
	}
}

func TestOpenBestDeviceFallsBack(t *testing.T) {
	withRegistry(t)

	cpu := &fakeDevice{}
	RegisterBackend("gpu", 100, func(any) (Device, error) {
		return nil, errors.New("no adapter")
	}, nil)
	RegisterBackend("cpu", 10, fakeFactory(cpu), nil)

	d, err := OpenBestDevice(nil)
	if err != nil {
		t.Fatalf("OpenBestDevice() = %v", err)
	}
	if d != cpu {
		t.Error("OpenBestDevice() did not fall back to cpu backend")
	}
}

func TestOpenBestDeviceNone(t *testing.T) {
	withRegistry(t)

	if _, err := OpenBestDevice(nil); !errors.Is(err, ErrContextUnavailable) {
		t.Errorf("empty registry err = %v, want ErrContextUnavailable", err)
	}

	RegisterBackend("broken", 10, func(any) (Device, error) {
		return nil, errors.New("boom")
	}, nil)
	if _, err := OpenBestDevice(nil); !errors.Is(err, ErrContextUnavailable) {
		t.Errorf("failing backend err = %v, want ErrContextUnavailable", err)
	}
}
