package ripple

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Capacity is the fixed number of concurrent ripples.
const Capacity = 16

// Point is a position in field coordinates: X is the stereo axis (-1 left,
// +1 right), Y the frequency-tier axis (0 top/treble, 1 bottom/bass).
type Point struct {
	X, Y float64
}

// Params is a resolved ripple shape.
type Params struct {
	Speed      float64 `json:"speed"`
	Width      float64 `json:"width"`
	MinRadius  float64 `json:"minRadius"`
	MaxRadius  float64 `json:"maxRadius"`
	Multiplier float64 `json:"multiplier"`
}

// DefaultParams returns the global ripple shape.
func DefaultParams() Params {
	return Params{
		Speed:      0.6,
		Width:      0.05,
		MinRadius:  0.02,
		MaxRadius:  0.9,
		Multiplier: 0.6,
	}
}

// sanitize replaces fields that cannot describe a ring. Zero is a valid
// MinRadius and Multiplier; Speed, Width and MaxRadius must be positive.
func (p Params) sanitize(def Params) Params {
	if !(p.Speed > 0) {
		p.Speed = def.Speed
	}
	if !(p.Width > 0) {
		p.Width = def.Width
	}
	if !(p.MinRadius >= 0) {
		p.MinRadius = def.MinRadius
	}
	if !(p.MaxRadius > 0) {
		p.MaxRadius = def.MaxRadius
	}
	if !(p.Multiplier >= 0) {
		p.Multiplier = def.Multiplier
	}
	return p
}

// Override changes selected fields of a ripple shape. Nil fields inherit.
type Override struct {
	Speed      *float64 `json:"speed,omitempty"`
	Width      *float64 `json:"width,omitempty"`
	MinRadius  *float64 `json:"minRadius,omitempty"`
	MaxRadius  *float64 `json:"maxRadius,omitempty"`
	Multiplier *float64 `json:"multiplier,omitempty"`
}

// Value returns a pointer to v for use in an Override.
func Value(v float64) *float64 { return &v }

// Apply returns base with the set fields of o replacing it.
func (o Override) Apply(base Params) Params {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&base.Speed, o.Speed)
	set(&base.Width, o.Width)
	set(&base.MinRadius, o.MinRadius)
	set(&base.MaxRadius, o.MaxRadius)
	set(&base.Multiplier, o.Multiplier)
	return base
}

// Event is a single expanding ring. Params are resolved at spawn time.
type Event struct {
	Center    Point   `json:"center"`
	SpawnTime float64 `json:"spawnTime"`
	Intensity float64 `json:"intensity"`
	Params    Params  `json:"params"`
	Active    bool    `json:"active"`
}

// TargetRadius is the radius at which the ring stops expanding.
func (e *Event) TargetRadius() float64 {
	return e.Params.MinRadius + (e.Params.MaxRadius-e.Params.MinRadius)*e.Intensity
}

// Duration is the movement time; the ring is fully faded once its age reaches it.
func (e *Event) Duration() float64 {
	return (e.TargetRadius() - e.Params.MinRadius) / e.Params.Speed
}

// Radius returns the ring radius at the given age.
func (e *Event) Radius(age float64) float64 {
	travel := e.TargetRadius() - e.Params.MinRadius
	return e.Params.MinRadius + math.Min(age*e.Params.Speed, travel)
}

// Contribution returns the ring brightness at pos and time t. It is exactly
// zero once the event has aged past its duration.
func (e *Event) Contribution(pos Point, t float64) float64 {
	if !e.Active {
		return 0
	}
	age := t - e.SpawnTime
	duration := e.Duration()
	if age < 0 || duration <= 0 || age >= duration {
		return 0
	}
	dist := math.Hypot(pos.X-e.Center.X, pos.Y-e.Center.Y)
	ring := math.Exp(-math.Abs(dist-e.Radius(age)) / e.Params.Width)
	fade := 1 - age/duration
	return ring * fade * fade * fade * e.Intensity * e.Params.Multiplier
}

// Config configures a Pool.
type Config struct {
	Defaults Params
	Log      logrus.FieldLogger
}

// Pool is a fixed-capacity set of ripple events. When every slot is busy a
// new spawn recycles the oldest active event. Pool is single-writer: Spawn
// and Tick must not run concurrently with each other or with Render; readers
// on other goroutines use a Snapshot.
type Pool struct {
	events   [Capacity]Event
	defaults Params
	log      logrus.FieldLogger
	recycled int
}

// NewPool creates an empty pool.
func NewPool(cfg Config) *Pool {
	def := DefaultParams()
	if cfg.Defaults != (Params{}) {
		def = cfg.Defaults.sanitize(def)
	}
	logger := cfg.Log
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pool{defaults: def, log: logger}
}

// Defaults returns the fallback ripple parameters.
func (p *Pool) Defaults() Params { return p.defaults }

// Spawn activates a ripple at center with spawn time now. It returns the slot
// used, or -1 when the event could not produce a visible ring (non-positive
// intensity or zero travel).
func (p *Pool) Spawn(center Point, intensity float64, shape Override, now float64) int {
	if math.IsNaN(intensity) || intensity <= 0 {
		return -1
	}
	ev := Event{
		Center:    center,
		SpawnTime: now,
		Intensity: math.Min(intensity, 1),
		Params:    shape.Apply(p.defaults).sanitize(p.defaults),
		Active:    true,
	}
	if ev.Params.MaxRadius < ev.Params.MinRadius {
		ev.Params.MaxRadius = ev.Params.MinRadius
	}
	if ev.Duration() <= 0 {
		return -1
	}

	slot := p.freeSlot()
	if slot < 0 {
		slot = p.oldestSlot()
		p.recycled++
		p.log.WithFields(logrus.Fields{
			"component": "ripple",
			"slot":      slot,
			"age":       now - p.events[slot].SpawnTime,
		}).Debug("ripple pool full, recycling oldest event")
	}
	p.events[slot] = ev
	return slot
}

// Tick deactivates every event whose age reached its movement duration and
// returns the number of events still active.
func (p *Pool) Tick(now float64) int {
	active := 0
	for i := range p.events {
		ev := &p.events[i]
		if !ev.Active {
			continue
		}
		if now-ev.SpawnTime >= ev.Duration() {
			ev.Active = false
			continue
		}
		active++
	}
	return active
}

// Render sums the contribution of all active events at pos and time t.
func (p *Pool) Render(pos Point, t float64) float64 {
	return render(&p.events, pos, t)
}

// Active returns the number of active events.
func (p *Pool) Active() int {
	n := 0
	for i := range p.events {
		if p.events[i].Active {
			n++
		}
	}
	return n
}

// Recycled returns how many spawns had to evict an active event.
func (p *Pool) Recycled() int { return p.recycled }

// Events returns a copy of the active events.
func (p *Pool) Events() []Event {
	out := make([]Event, 0, Capacity)
	for _, ev := range p.events {
		if ev.Active {
			out = append(out, ev)
		}
	}
	return out
}

// Snapshot copies the current events for concurrent read-only rendering.
func (p *Pool) Snapshot() Snapshot {
	return Snapshot{events: p.events}
}

// Clear deactivates every event.
func (p *Pool) Clear() {
	for i := range p.events {
		p.events[i].Active = false
	}
}

func (p *Pool) freeSlot() int {
	for i := range p.events {
		if !p.events[i].Active {
			return i
		}
	}
	return -1
}

func (p *Pool) oldestSlot() int {
	oldest := 0
	for i := 1; i < len(p.events); i++ {
		if p.events[i].SpawnTime < p.events[oldest].SpawnTime {
			oldest = i
		}
	}
	return oldest
}

// Snapshot is an immutable copy of the pool, safe to share between goroutines.
type Snapshot struct {
	events [Capacity]Event
}

// Render sums the contribution of all active events at pos and time t.
func (s *Snapshot) Render(pos Point, t float64) float64 {
	return render(&s.events, pos, t)
}

// Active returns the number of events active in the snapshot.
func (s *Snapshot) Active() int {
	n := 0
	for i := range s.events {
		if s.events[i].Active {
			n++
		}
	}
	return n
}

func render(events *[Capacity]Event, pos Point, t float64) float64 {
	sum := 0.0
	for i := range events {
		sum += events[i].Contribution(pos, t)
	}
	return sum
}
