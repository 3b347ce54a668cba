package projection

import (
	"encoding/json"
	"sync"
)

// EventType names the kind of a task event
type EventType string

const (
	EventProgress EventType = "progress"
	EventWarning  EventType = "warning"
	EventDebug    EventType = "debug"
	EventDone     EventType = "done"
)

// Event is one notification of a projection task. Every task emits zero or
// more progress, warning and debug events followed by exactly one done
// event. Generation and ID identify the task that emitted it.
type Event struct {
	Type       EventType
	Label      string      // progress
	Message    string      // warning, debug
	Result     [][]float64 // done
	Generation uint64
	ID         string
}

// MarshalJSON encodes the event in the wire format:
//
//	{"type":"progress","label":...}
//	{"type":"warning","message":...}
//	{"type":"debug","message":...}
//	{"type":"done","result":[[x,y,z],...]}
//
// with "generation" and "id" added to every event.
func (e Event) MarshalJSON() ([]byte, error) {
	wire := struct {
		Type       EventType    `json:"type"`
		Label      *string      `json:"label,omitempty"`
		Message    *string      `json:"message,omitempty"`
		Result     *[][]float64 `json:"result,omitempty"`
		Generation uint64       `json:"generation"`
		ID         string       `json:"id,omitempty"`
	}{
		Type:       e.Type,
		Generation: e.Generation,
		ID:         e.ID,
	}

	switch e.Type {
	case EventProgress:
		wire.Label = &e.Label
	case EventDone:
		result := e.Result
		if result == nil {
			result = [][]float64{}
		}
		wire.Result = &result
	default:
		wire.Message = &e.Message
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes an event in the wire format.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type       EventType   `json:"type"`
		Label      string      `json:"label"`
		Message    string      `json:"message"`
		Result     [][]float64 `json:"result"`
		Generation uint64      `json:"generation"`
		ID         string      `json:"id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*e = Event{
		Type:       wire.Type,
		Label:      wire.Label,
		Message:    wire.Message,
		Result:     wire.Result,
		Generation: wire.Generation,
		ID:         wire.ID,
	}
	return nil
}

// Reporter receives the advisory notifications of pipeline stages.
type Reporter interface {
	Progress(label string)
	Warning(message string)
	Debug(message string)
}

// eventQueue is an unbounded FIFO between the pipeline goroutine and the
// consumer, so a slow or absent reader never stalls the pipeline.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Event
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) push(e Event) {
	q.mu.Lock()
	if !q.closed {
		q.items = append(q.items, e)
	}
	q.mu.Unlock()
	q.cond.Signal()
}

// close marks the end of the stream; queued events are still delivered.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// pop blocks until an event is available or the queue is closed and empty.
func (q *eventQueue) pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return Event{}, false
	}
	e := q.items[0]
	q.items[0] = Event{}
	q.items = q.items[1:]
	return e, true
}

// pump forwards queued events to out and closes out at the end of the stream.
func (q *eventQueue) pump(out chan<- Event) {
	defer close(out)
	for {
		e, ok := q.pop()
		if !ok {
			return
		}
		out <- e
	}
}
