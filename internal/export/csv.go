package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sadopc/habitr/internal/calendar"
)

func ToCSV(g calendar.Grid, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, g); err != nil {
		return err
	}
	return f.Close()
}

func WriteCSV(out io.Writer, g calendar.Grid) error {
	w := csv.NewWriter(out)

	if err := w.Write([]string{"Habit ID", "Habit", "Date", "Status", "Editable", "Notes"}); err != nil {
		return err
	}

	for _, r := range Rows(g) {
		row := []string{
			strconv.FormatInt(r.HabitID, 10),
			r.Habit,
			r.Date,
			r.Status,
			strconv.FormatBool(r.Editable),
			r.Notes,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
