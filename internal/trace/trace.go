// Package trace records the durations of long-running phases (publisher
// phases, builder scans, jobs) as Chrome trace events, which can be loaded
// into chrome://tracing or Perfetto.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// https://docs.google.com/document/d/1CvAClvFfyA5R-PhYUmn5OOQtYMH4h6I0nSsKchNAySU/edit

var start = time.Now()

var (
	sinkMu sync.Mutex
	sink   io.Writer = ioutil.Discard
	pid    = uint64(os.Getpid())
)

// Sink writes all following events into w, in the JSON Array Format.
func Sink(w io.Writer) {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	sink = w
	// The closing ] is optional, so we never write it.
	w.Write([]byte{'['})
}

// Enable creates dir/prefix.$PID and sinks events into it. The returned
// function closes the file.
func Enable(dir, prefix string) (func() error, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%s.%d", prefix, os.Getpid())))
	if err != nil {
		return nil, err
	}
	Sink(f)
	return func() error {
		sinkMu.Lock()
		defer sinkMu.Unlock()
		sink = ioutil.Discard
		return f.Close()
	}, nil
}

type PendingEvent struct {
	Name           string            `json:"name"` // name of the event, as displayed in Trace Viewer
	Categories     string            `json:"cat"`  // event categories (comma-separated)
	Type           string            `json:"ph"`   // event type (single character)
	ClockTimestamp uint64            `json:"ts"`   // tracing clock timestamp (microsecond granularity)
	Duration       uint64            `json:"dur"`
	Pid            uint64            `json:"pid"`
	Tid            uint64            `json:"tid"` // lane in Trace Viewer, e.g. the worker number
	Args           map[string]string `json:"args,omitempty"`

	start time.Time
}

// Arg annotates the event with key=value.
func (pe *PendingEvent) Arg(key, value string) *PendingEvent {
	if pe.Args == nil {
		pe.Args = make(map[string]string)
	}
	pe.Args[key] = value
	return pe
}

// Done records the event with the time elapsed since it was created.
func (pe *PendingEvent) Done() {
	pe.Duration = uint64(time.Since(pe.start) / time.Microsecond)
	b, err := json.Marshal(pe)
	if err != nil {
		panic(err)
	}
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if _, err := sink.Write(append(b, ',')); err != nil {
		log.Printf("[trace] %v", err)
	}
}

// Event starts a complete ("X") event in category cat on lane tid.
func Event(name, cat string, tid uint64) *PendingEvent {
	return &PendingEvent{
		Name:           name,
		Categories:     cat,
		Type:           "X",
		ClockTimestamp: uint64(time.Since(start) / time.Microsecond),
		Pid:            pid,
		Tid:            tid,
		start:          time.Now(),
	}
}
