package validate

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelPass Level = "pass"
	LevelWarn Level = "warn"
	LevelFail Level = "fail"
)

// Finding is one pass/warn/fail line of a validation run.
type Finding struct {
	Level   Level  `json:"level"`
	Check   string `json:"check"`
	Table   string `json:"table"`
	Message string `json:"message"`
}

// Report is the outcome of one validation run. It is ephemeral: rendered,
// optionally exported, and then discarded with the run.
type Report struct {
	ID          string
	GeneratedAt time.Time
	Findings    []Finding
}

func NewReport(at time.Time) *Report {
	return &Report{
		ID:          uuid.NewString(),
		GeneratedAt: at,
	}
}

func (r *Report) pass(check, table, message string) {
	r.Findings = append(r.Findings, Finding{Level: LevelPass, Check: check, Table: table, Message: message})
}

func (r *Report) warn(check, table, message string) {
	r.Findings = append(r.Findings, Finding{Level: LevelWarn, Check: check, Table: table, Message: message})
}

func (r *Report) fail(check, table, message string) {
	r.Findings = append(r.Findings, Finding{Level: LevelFail, Check: check, Table: table, Message: message})
}

func (r *Report) Failed() bool {
	for _, f := range r.Findings {
		if f.Level == LevelFail {
			return true
		}
	}
	return false
}

func (r *Report) Warnings() int {
	n := 0
	for _, f := range r.Findings {
		if f.Level == LevelWarn {
			n++
		}
	}
	return n
}

// Render returns the human-readable status lines.
func (r *Report) Render() []string {
	lines := make([]string, 0, len(r.Findings)+1)
	for _, f := range r.Findings {
		switch f.Level {
		case LevelWarn:
			lines = append(lines, fmt.Sprintf("[WARNING] %s", f.Message))
		case LevelFail:
			lines = append(lines, fmt.Sprintf("[DATA VALIDATION FAILED] %s", f.Message))
		default:
			lines = append(lines, f.Message)
		}
	}
	if !r.Failed() {
		lines = append(lines, "ALL DATA VALIDATION CHECKS PASSED SUCCESSFULLY")
	}
	return lines
}
