package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ReadFrame loads one raw table from a headered CSV file.
func ReadFrame(path, table string) (Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("open %s: %w", table, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return Frame{}, fmt.Errorf("read %s: %w", table, err)
	}
	if len(records) == 0 {
		return Frame{}, fmt.Errorf("read %s: file has no header", table)
	}

	return NewFrame(table, records[0], records[1:]), nil
}

// Frames bundles the four undecoded raw tables.
type Frames struct {
	Customers     Frame
	Subscriptions Frame
	Usage         Frame
	Tickets       Frame
}

// ReadFrames loads the four raw tables from dir.
func ReadFrames(dir string) (Frames, error) {
	var fr Frames
	var err error
	if fr.Customers, err = ReadFrame(filepath.Join(dir, TableCustomers+".csv"), TableCustomers); err != nil {
		return Frames{}, err
	}
	if fr.Subscriptions, err = ReadFrame(filepath.Join(dir, TableSubscriptions+".csv"), TableSubscriptions); err != nil {
		return Frames{}, err
	}
	if fr.Usage, err = ReadFrame(filepath.Join(dir, TableUsageEvents+".csv"), TableUsageEvents); err != nil {
		return Frames{}, err
	}
	if fr.Tickets, err = ReadFrame(filepath.Join(dir, TableSupportTickets+".csv"), TableSupportTickets); err != nil {
		return Frames{}, err
	}
	return fr, nil
}

// WriteCSV writes a headered CSV artifact. Row order and cell formatting are
// the caller's responsibility; output is byte-stable for identical input.
func WriteCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// FormatFloat renders feature values the way the artifacts expect: integers
// without a decimal point, everything else in shortest round-trip form.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
