package kb

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/relnav-sensor-sim/model"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventSensorAdded EventType = iota
	EventSensorReplaced
	EventSensorRemoved
)

func (t EventType) String() string {
	switch t {
	case EventSensorAdded:
		return "added"
	case EventSensorReplaced:
		return "replaced"
	case EventSensorRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when a sensor definition changes.
type Event struct {
	Type   EventType
	Sensor model.SensorDefinition
}

// KnowledgeBase is an in-memory, thread-safe store for sensor definitions.
// Definitions are stored by value; a reconfiguration replaces the whole
// definition.
type KnowledgeBase struct {
	mu sync.RWMutex

	sensors map[string]model.SensorDefinition

	nextSub int
	subs    map[int]func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		sensors: make(map[string]model.SensorDefinition),
		subs:    make(map[int]func(Event)),
	}
}

// AddSensor adds a new sensor definition. It returns an error if the ID is
// empty or already exists.
func (kb *KnowledgeBase) AddSensor(def model.SensorDefinition) error {
	if def.ID == "" {
		return fmt.Errorf("sensor definition has empty ID")
	}
	kb.mu.Lock()
	if _, exists := kb.sensors[def.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("sensor with ID %q already exists", def.ID)
	}
	kb.sensors[def.ID] = def
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventSensorAdded, Sensor: def})
	return nil
}

// ReplaceSensor swaps the definition of an existing sensor wholesale.
func (kb *KnowledgeBase) ReplaceSensor(def model.SensorDefinition) error {
	kb.mu.Lock()
	if _, exists := kb.sensors[def.ID]; !exists {
		kb.mu.Unlock()
		return fmt.Errorf("sensor with ID %q not found", def.ID)
	}
	kb.sensors[def.ID] = def
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventSensorReplaced, Sensor: def})
	return nil
}

// RemoveSensor deletes a sensor definition.
func (kb *KnowledgeBase) RemoveSensor(id string) error {
	kb.mu.Lock()
	def, exists := kb.sensors[id]
	if !exists {
		kb.mu.Unlock()
		return fmt.Errorf("sensor with ID %q not found", id)
	}
	delete(kb.sensors, id)
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventSensorRemoved, Sensor: def})
	return nil
}

// GetSensor returns the definition with the given ID.
func (kb *KnowledgeBase) GetSensor(id string) (model.SensorDefinition, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	def, ok := kb.sensors[id]
	return def, ok
}

// ListSensors returns a snapshot of all definitions sorted by ID.
func (kb *KnowledgeBase) ListSensors() []model.SensorDefinition {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.SensorDefinition, 0, len(kb.sensors))
	for _, def := range kb.sensors {
		res = append(res, def)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Subscribe registers a callback for KB events. It returns an unsubscribe
// function. Callbacks run outside the lock and may call back into the KB.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextSub
	kb.nextSub++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

func (kb *KnowledgeBase) snapshotSubsLocked() []func(Event) {
	ids := make([]int, 0, len(kb.subs))
	for id := range kb.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	subs := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		subs = append(subs, kb.subs[id])
	}
	return subs
}

func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		sub(ev)
	}
}
