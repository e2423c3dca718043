package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"
)

// RecordFormat selects the on-disk encoding of a session record.
type RecordFormat string

const (
	FormatText RecordFormat = "text"
	FormatJSON RecordFormat = "json"
	FormatYAML RecordFormat = "yaml"
)

// Recorder persists session reports under a results directory. Concurrent
// probe runs may share the directory, so writes serialize on a lock file.
type Recorder struct {
	dir    string
	format RecordFormat
}

// NewRecorder creates a recorder for the given directory and format.
func NewRecorder(dir string, format RecordFormat) (*Recorder, error) {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unsupported record format %q (supported: text, json, yaml)", format)
	}
	if dir == "" {
		dir = "results"
	}
	return &Recorder{dir: dir, format: format}, nil
}

// Write persists the report and returns the path of the file it created.
// The filename embeds the wall-clock timestamp and the session ID, so
// successive runs never collide.
func (r *Recorder) Write(report Report) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create results directory: %w", err)
	}

	lock := flock.New(filepath.Join(r.dir, ".lock"))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("lock results directory: %w", err)
	}
	defer lock.Unlock()

	data, err := r.encode(report)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("ratelimit_%s_%s.%s",
		report.Session.StartedAt.Format("20060102_150405"),
		report.Session.ID,
		r.extension())
	path := filepath.Join(r.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write session record: %w", err)
	}
	return path, nil
}

func (r *Recorder) encode(report Report) ([]byte, error) {
	switch r.format {
	case FormatJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode session record: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(report)
		if err != nil {
			return nil, fmt.Errorf("encode session record: %w", err)
		}
		return data, nil
	default:
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "Recorded: %s\n", report.Session.StartedAt.Format(time.RFC3339))
		PrintReport(&buf, report, nil)
		return buf.Bytes(), nil
	}
}

func (r *Recorder) extension() string {
	switch r.format {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "txt"
	}
}
