package rhi

import (
	"log/slog"
	"sync"
)

// fakeDriver records the configuration it was asked to create a context with.
type fakeDriver struct {
	name string

	mu      sync.Mutex
	log     *slog.Logger
	surface SurfaceConfig
	cfg     Config
	calls   int
	err     error
}

func (d *fakeDriver) Name() string { return d.name }

func (d *fakeDriver) CreateContext(surface SurfaceConfig, cfg Config) (Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.surface, d.cfg = surface, cfg
	return nil, d.err
}

func (d *fakeDriver) SetLogger(l *slog.Logger) {
	d.mu.Lock()
	d.log = l
	d.mu.Unlock()
}

func (d *fakeDriver) logger() *slog.Logger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.log
}
