// Package oops writes error reports. Each report gets an id which is logged
// and stored next to the failure (e.g. in the job table), so that operators
// can look up the full report later.
package oops

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/renameio"
	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

type Report struct {
	ID      string            `json:"id"`
	Time    time.Time         `json:"time"`
	Type    string            `json:"type"`
	Value   string            `json:"value"`
	Context map[string]string `json:"context,omitempty"`
	Stack   string            `json:"stack,omitempty"`
}

// NewID returns a new report id, e.g. OOPS-1b4e28ba2fa1.
func NewID() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "OOPS-" + id[:12]
}

// Reporter writes reports below Dir.
type Reporter struct {
	Dir string
	Now func() time.Time // defaults to time.Now
}

func (r *Reporter) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Path returns where the report with the given id and time is stored.
func (r *Reporter) Path(id string, t time.Time) string {
	return filepath.Join(r.Dir, t.UTC().Format("2006-01-02"), id)
}

// Error writes a report for err. context is stored verbatim.
func (r *Reporter) Error(err error, context map[string]string) (*Report, error) {
	rep := &Report{
		ID:      NewID(),
		Time:    r.now().UTC(),
		Type:    fmt.Sprintf("%T", unwrapAll(err)),
		Value:   err.Error(),
		Context: context,
		Stack:   fmt.Sprintf("%+v", err),
	}
	return rep, r.write(rep)
}

// Panic writes a report for a recovered panic value, including the stack of
// the calling goroutine.
func (r *Reporter) Panic(recovered interface{}, context map[string]string) (*Report, error) {
	rep := &Report{
		ID:      NewID(),
		Time:    r.now().UTC(),
		Type:    fmt.Sprintf("panic(%T)", recovered),
		Value:   fmt.Sprint(recovered),
		Context: context,
		Stack:   string(debug.Stack()),
	}
	return rep, r.write(rep)
}

func (r *Reporter) write(rep *Report) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	fn := r.Path(rep.ID, rep.Time)
	if err := os.MkdirAll(filepath.Dir(fn), 0755); err != nil {
		return err
	}
	if err := renameio.WriteFile(fn, append(b, '\n'), 0644); err != nil {
		return xerrors.Errorf("writing %s: %w", rep.ID, err)
	}
	return nil
}

// Read loads the report stored at path.
func Read(path string) (*Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rep Report
	if err := json.Unmarshal(b, &rep); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return &rep, nil
}

func unwrapAll(err error) error {
	for {
		next := xerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
