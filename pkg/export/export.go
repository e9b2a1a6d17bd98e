package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kilianp07/resident-scheduler/core/model"
)

// ScheduleDoc is the JSON form of a schedule.
type ScheduleDoc struct {
	Block       int           `json:"block"`
	StartDate   model.Date    `json:"start_date"`
	LengthDays  int           `json:"length_days"`
	Assignments []model.Entry `json:"assignments"`
}

// NewScheduleDoc converts s.
func NewScheduleDoc(s *model.Schedule) ScheduleDoc {
	return ScheduleDoc{
		Block:       s.Block.Number,
		StartDate:   s.Block.Start,
		LengthDays:  s.Block.Length,
		Assignments: s.Entries(),
	}
}

// WriteJSON writes the schedule to w in JSON format.
func WriteJSON(w io.Writer, s *model.Schedule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewScheduleDoc(s))
}

// ReadJSON decodes a document written by WriteJSON.
func ReadJSON(r io.Reader) (ScheduleDoc, error) {
	var doc ScheduleDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode schedule: %w", err)
	}
	return doc, nil
}

// WriteCSV writes one row per assignment.
func WriteCSV(w io.Writer, s *model.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"resident_id", "date", "kind"}); err != nil {
		return err
	}
	for _, e := range s.Entries() {
		if err := cw.Write([]string{e.ResidentID, e.Date.String(), e.Kind.String()}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGridCSV writes one row per resident and one column per date, the
// layout posted on the department board. Residents are listed in roster
// order; days off are empty cells.
func WriteGridCSV(w io.Writer, s *model.Schedule, roster *model.Roster) error {
	cw := csv.NewWriter(w)
	dates := s.Block.Dates()
	header := make([]string, 0, len(dates)+1)
	header = append(header, "resident_id")
	for _, d := range dates {
		header = append(header, d.String())
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range roster.Residents() {
		row := make([]string, 0, len(dates)+1)
		row = append(row, r.ID)
		for _, d := range dates {
			cell := ""
			if k, ok := s.Lookup(r.ID, d); ok {
				cell = k.String()
			}
			row = append(row, cell)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
