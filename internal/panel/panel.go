// Package panel holds the people panel: a table of the identified people of
// the most recent detection set.
package panel

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/kozaktomas/facecam/internal/recognizer"
)

// Row is one person. Fields the service did not send are blank.
type Row struct {
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date"`
	Rank      string `json:"rank"`
	Position  string `json:"position"`
	Unit      string `json:"unit"`
}

// Columns are the table headers in row order.
var Columns = []string{"Full Name", "Birth Date", "Rank", "Position", "Unit"}

// Panel is hidden until rendered with at least one person.
type Panel struct {
	mu      sync.RWMutex
	rows    []Row
	visible bool
}

// New creates a hidden panel.
func New() *Panel {
	return &Panel{}
}

// Render shows one row per person, or hides the panel when people is empty.
func (p *Panel) Render(people []recognizer.DetectedPerson) {
	rows := make([]Row, 0, len(people))
	for _, person := range people {
		rows = append(rows, rowOf(person.Info))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows = rows
	p.visible = len(rows) > 0
}

func rowOf(info recognizer.PersonRecord) Row {
	return Row{
		FullName:  info.FullName,
		BirthDate: info.BirthDate,
		Rank:      info.Rank,
		Position:  info.Position,
		Unit:      info.Unit,
	}
}

// Clear empties and hides the panel.
func (p *Panel) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows = nil
	p.visible = false
}

// Visible reports whether the panel is shown.
func (p *Panel) Visible() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.visible
}

// Rows returns a copy of the rows.
func (p *Panel) Rows() []Row {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Row, len(p.rows))
	copy(out, p.rows)
	return out
}

// WriteTable writes the rows as an aligned text table. Nothing is written
// while the panel is hidden.
func (p *Panel) WriteTable(w io.Writer) error {
	return WriteRows(w, p.Rows())
}

// WriteRows writes rows as an aligned text table. Absent fields are empty
// cells, as in the web panel.
func WriteRows(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", Columns[0], Columns[1], Columns[2], Columns[3], Columns[4])
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.FullName, r.BirthDate, r.Rank, r.Position, r.Unit)
	}
	return tw.Flush()
}
