package app

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// profiler appends per-section frame timings to a CSV file. A nil profiler
// is a no-op.
type profiler struct {
	mu     sync.Mutex
	file   *os.File
	log    logrus.FieldLogger
	start  time.Time
	last   time.Time
	frames int
}

func newProfiler(path string, log logrus.FieldLogger) *profiler {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.WithError(err).Warn("profiler disabled")
		return nil
	}
	p := &profiler{file: f, log: log}
	fmt.Fprintln(p.file, "timestamp,frame,section,delta_ms")
	log.WithField("path", path).Info("frame profiling enabled")
	return p
}

func (p *profiler) beginFrame() {
	if p == nil {
		return
	}
	now := time.Now()
	p.start = now
	p.last = now
	p.frames++
}

func (p *profiler) markSection(name string) {
	if p == nil {
		return
	}
	now := time.Now()
	delta := now.Sub(p.last).Seconds() * 1000
	p.last = now
	p.write(name, delta)
}

func (p *profiler) endFrame() {
	if p == nil {
		return
	}
	p.write("frame_total", time.Since(p.start).Seconds()*1000)
}

func (p *profiler) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}

func (p *profiler) write(section string, deltaMs float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return
	}
	timestamp := time.Now().Format(time.RFC3339Nano)
	if _, err := fmt.Fprintf(p.file, "%s,%d,%s,%.3f\n", timestamp, p.frames, section, deltaMs); err != nil {
		p.log.WithError(err).Warn("profiler write failed")
	}
}
