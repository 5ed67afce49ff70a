// Package results - the durable, append-only log of completed runs.
package results

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TimestampLayout is the layout of the Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// NoMask is written in the Mask Name column when a run used no mask.
const NoMask = "None"

// Header is the first row of every results file.
var Header = []string{"Mask Name", "Video File", "Fish Count", "Processed Video Path", "Timestamp"}

// ErrMalformed is returned by ReadAll for rows that do not match Header.
var ErrMalformed = errors.New("results: malformed row")

// Record is one completed run.
type Record struct {
	MaskName           string
	VideoFile          string
	FishCount          int
	ProcessedVideoPath string
	Timestamp          time.Time
}

// Row renders the record as a CSV row in Header order.
func (r Record) Row() []string {
	mask := r.MaskName
	if mask == "" {
		mask = NoMask
	}
	return []string{
		mask,
		r.VideoFile,
		strconv.Itoa(r.FishCount),
		r.ProcessedVideoPath,
		r.Timestamp.Format(TimestampLayout),
	}
}

// CSVLog appends records to a CSV file. The header row is written once, when
// the file is created. Appends from multiple goroutines are serialized.
type CSVLog struct {
	path   string
	mu     sync.Mutex
	logger logrus.FieldLogger
}

// NewCSVLog opens the results file at path, creating it and its directory
// with a header row if it does not exist yet.
func NewCSVLog(path string, logger logrus.FieldLogger) (*CSVLog, error) {
	if path == "" {
		return nil, errors.New("results: path is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "results: create directory for %s", path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	switch {
	case err == nil:
		werr := writeRow(f, Header)
		cerr := f.Close()
		if werr != nil {
			return nil, errors.Wrapf(werr, "results: write header to %s", path)
		}
		if cerr != nil {
			return nil, errors.Wrapf(cerr, "results: close %s", path)
		}
	case os.IsExist(err):
	default:
		return nil, errors.Wrapf(err, "results: create %s", path)
	}

	return &CSVLog{path: path, logger: logger.WithField("component", "results")}, nil
}

// Path returns the results file path.
func (l *CSVLog) Path() string {
	return l.path
}

// Append writes one record and syncs the file.
func (l *CSVLog) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrapf(err, "results: open %s", l.path)
	}
	if err := writeRow(f, rec.Row()); err != nil {
		f.Close()
		return errors.Wrapf(err, "results: append to %s", l.path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Wrapf(err, "results: sync %s", l.path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "results: close %s", l.path)
	}

	l.logger.WithFields(logrus.Fields{
		"file":       l.path,
		"fish_count": rec.FishCount,
		"video":      rec.VideoFile,
	}).Info("results saved")
	return nil
}

// ReadAll parses every record of a results file. Timestamps are interpreted
// in the local time zone, matching how they were written.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "results: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	var records []Record
	for line := 1; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "%s line %d: %v", path, line, err)
		}
		if line == 1 {
			continue
		}

		count, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "%s line %d: fish count %q", path, line, row[2])
		}
		ts, err := time.ParseInLocation(TimestampLayout, row[4], time.Local)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "%s line %d: timestamp %q", path, line, row[4])
		}
		records = append(records, Record{
			MaskName:           row[0],
			VideoFile:          row[1],
			FishCount:          count,
			ProcessedVideoPath: row[3],
			Timestamp:          ts,
		})
	}
	return records, nil
}

func writeRow(w io.Writer, row []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(row); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
