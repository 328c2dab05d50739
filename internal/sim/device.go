package sim

import (
	"fmt"
	"sync"

	"capturekit"
)

// Texture is a recorded texture view. It carries the descriptor it was
// created from and nothing else.
type Texture struct {
	desc capturekit.TextureDescriptor
}

func (t *Texture) Format() capturekit.TextureFormat { return t.desc.Format }
func (t *Texture) Width() int                       { return t.desc.Width }
func (t *Texture) Height() int                      { return t.desc.Height }

// Device implements capturekit.Device by recording every descriptor it is
// asked to create, validated against the runtime's table when one is
// attached. Binder tests read the record back to assert the mapping policy.
type Device struct {
	rt *Runtime

	mu      sync.Mutex
	created []capturekit.TextureDescriptor
	failErr error
}

// NewDevice returns a device validating against rt. rt may be nil for a
// device that accepts any descriptor.
func NewDevice(rt *Runtime) *Device {
	return &Device{rt: rt}
}

func (d *Device) CreateTexture(desc capturekit.TextureDescriptor) (capturekit.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failErr != nil {
		err := d.failErr
		d.failErr = nil
		return nil, err
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("sim: texture with empty extent %dx%d", desc.Width, desc.Height)
	}
	if d.rt != nil {
		d.rt.mu.Lock()
		obj, ok := d.rt.objects[desc.Surface]
		d.rt.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("sim: texture over unknown resource %#x", uintptr(desc.Surface))
		}
		if obj.kind != kindSurface {
			return nil, fmt.Errorf("sim: texture over %s resource", obj.kind)
		}
	}
	d.created = append(d.created, desc)
	return &Texture{desc: desc}, nil
}

// Created returns a copy of every descriptor created so far, in order.
func (d *Device) Created() []capturekit.TextureDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]capturekit.TextureDescriptor, len(d.created))
	copy(out, d.created)
	return out
}

// Reset clears the record.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.created = nil
}

// FailNext makes the next CreateTexture call return err.
func (d *Device) FailNext(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failErr = err
}
