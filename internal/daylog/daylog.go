// v1
// internal/daylog/daylog.go
package daylog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// Row is one day's irrigation summary.
type Row struct {
	Date         string // YYYY-MM-DD
	MeanVWC      float64
	ET0          float64
	ETc          float64
	PumpTimeS    float64
	AvailWaterMM float64
	RootZoneMM   float64
	Kc           float64
}

var header = []string{"Date", "MeanVWC", "ET0", "ETc", "PumpTimeS", "AvailWaterMM", "RootZoneMM", "Kc"}

// Log appends one row per processed day to a CSV file. The header is
// written when the file is created or empty, so restarts never duplicate
// it.
type Log struct {
	mu   sync.Mutex
	path string
}

func New(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create daily log dir: %w", err)
		}
	}
	return &Log{path: path}, nil
}

func (l *Log) Path() string { return l.path }

// Append writes one row, creating the file with a header on first use.
func (l *Log) Append(r Row) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open daily log: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat daily log: %w", err)
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write daily log header: %w", err)
		}
	}
	if err := w.Write(r.fields()); err != nil {
		return fmt.Errorf("write daily log row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush daily log: %w", err)
	}
	return nil
}

func (r Row) fields() []string {
	f1 := func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
	f2 := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return []string{
		r.Date,
		f1(r.MeanVWC),
		f2(r.ET0),
		f2(r.ETc),
		f1(r.PumpTimeS),
		f1(r.AvailWaterMM),
		f1(r.RootZoneMM),
		strconv.FormatFloat(r.Kc, 'f', 3, 64),
	}
}

// ReadAll parses every row back. A missing file yields an empty slice.
func (l *Log) ReadAll() ([]Row, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open daily log: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read daily log: %w", err)
	}
	var rows []Row
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && rec[0] == header[0] {
			continue
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("daily log line %d: got %d fields, want %d", i+1, len(rec), len(header))
		}
		row := Row{Date: rec[0]}
		vals := make([]float64, len(rec)-1)
		for j, s := range rec[1:] {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("daily log line %d field %s: %w", i+1, header[j+1], err)
			}
			vals[j] = v
		}
		row.MeanVWC, row.ET0, row.ETc = vals[0], vals[1], vals[2]
		row.PumpTimeS, row.AvailWaterMM, row.RootZoneMM, row.Kc = vals[3], vals[4], vals[5], vals[6]
		rows = append(rows, row)
	}
	return rows, nil
}

// RawCSV returns the file contents for serving over HTTP. A missing file
// yields just the header so clients always see a well-formed document.
func (l *Log) RawCSV() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return []byte("Date,MeanVWC,ET0,ETc,PumpTimeS,AvailWaterMM,RootZoneMM,Kc\n"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read daily log: %w", err)
	}
	return b, nil
}
