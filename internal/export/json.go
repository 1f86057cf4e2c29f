package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/habitr/internal/calendar"
)

type jsonExport struct {
	ExportedAt string `json:"exported_at"`
	Month      string `json:"month"`
	Today      string `json:"today"`
	Habits     int    `json:"habits"`
	Count      int    `json:"count"`
	Cells      []Row  `json:"cells"`
}

func ToJSON(g calendar.Grid, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, g, time.Now()); err != nil {
		return err
	}
	return f.Close()
}

func WriteJSON(w io.Writer, g calendar.Grid, exportedAt time.Time) error {
	rows := Rows(g)
	export := jsonExport{
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
		Month:      g.Month.String(),
		Today:      g.Today.String(),
		Habits:     len(g.Habits),
		Count:      len(rows),
		Cells:      rows,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
