package calendar

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func day(s string) time.Time {
	return MustParseDate(s).Time()
}

func march2024() Month { return Month{Year: 2024, Month: time.March} }

func habit(id int64, created string) Habit {
	return Habit{ID: id, Name: "habit", Active: true, Created: day(created)}
}

func logOn(id, habitID int64, date string, st LogStatus) HabitLog {
	return HabitLog{ID: id, HabitID: habitID, Date: day(date), Status: st}
}

// ============================================================
// Example scenarios
// ============================================================

func TestReconcileHabitCreatedMidMonth(t *testing.T) {
	g, err := Reconcile([]Habit{habit(1, "2024-03-10")}, nil, march2024(), day("2024-03-15"))
	if err != nil {
		t.Fatal(err)
	}
	for d := 1; d <= 31; d++ {
		c, ok := g.Cell(1, d)
		if !ok {
			t.Fatalf("missing cell for day %d", d)
		}
		var want DisplayStatus
		switch {
		case d < 10:
			want = DisplayBeforeCreation
		case d <= 15:
			want = DisplayNotDone
		default:
			want = DisplayFuture
		}
		if c.Status != want {
			t.Errorf("day %d: status %v, want %v", d, c.Status, want)
		}
		if c.Editable != (d == 15) {
			t.Errorf("day %d: editable %v", d, c.Editable)
		}
	}
}

func TestReconcileTodayLogIsEditable(t *testing.T) {
	logs := []HabitLog{logOn(7, 1, "2024-03-15", LogCompleted)}
	g, err := Reconcile([]Habit{habit(1, "2024-03-10")}, logs, march2024(), day("2024-03-15"))
	if err != nil {
		t.Fatal(err)
	}
	c, _ := g.Cell(1, 15)
	if c.Status != DisplayCompleted || !c.Editable {
		t.Fatalf("unexpected today cell: %+v", c)
	}
	if c.Log == nil || c.Log.ID != 7 {
		t.Fatalf("expected backing log 7, got %+v", c.Log)
	}
}

func TestReconcilePastMonthNotEditable(t *testing.T) {
	feb := Month{Year: 2024, Month: time.February}
	logs := []HabitLog{
		logOn(1, 1, "2024-02-03", LogPartial),
		logOn(2, 1, "2024-02-29", LogCompleted),
	}
	g, err := Reconcile([]Habit{habit(1, "2024-01-01")}, logs, feb, day("2024-03-15"))
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != 29 {
		t.Fatalf("expected 29 cells for leap February, got %d", g.Len())
	}
	for _, c := range g.Row(1) {
		if c.Editable {
			t.Fatalf("day %s should not be editable", c.Date)
		}
		want := DisplayNotDone
		switch c.Date.Day {
		case 3:
			want = DisplayPartial
		case 29:
			want = DisplayCompleted
		}
		if c.Status != want {
			t.Errorf("day %d: status %v, want %v", c.Date.Day, c.Status, want)
		}
	}
}

func TestReconcileTwoHabitsToday(t *testing.T) {
	habits := []Habit{habit(1, "2024-03-01"), habit(2, "2024-03-01")}
	logs := []HabitLog{
		logOn(1, 1, "2024-03-15", LogPartial),
		logOn(2, 2, "2024-03-15", LogCompleted),
	}
	g, err := Reconcile(habits, logs, march2024(), day("2024-03-15"))
	if err != nil {
		t.Fatal(err)
	}
	a, _ := g.Cell(1, 15)
	b, _ := g.Cell(2, 15)
	if a.Status != DisplayPartial || b.Status != DisplayCompleted {
		t.Fatalf("got %v and %v", a.Status, b.Status)
	}
	for _, id := range []int64{1, 2} {
		for _, c := range g.Row(id) {
			if c.Date.Day == 15 {
				continue
			}
			if c.Status != DisplayNotDone && c.Status != DisplayFuture {
				t.Fatalf("habit %d day %d unexpectedly %v", id, c.Date.Day, c.Status)
			}
		}
	}
}

// ============================================================
// Properties
// ============================================================

func TestReconcileFutureIgnoresLogs(t *testing.T) {
	logs := []HabitLog{logOn(1, 1, "2024-03-20", LogCompleted)}
	g, _ := Reconcile([]Habit{habit(1, "2024-03-01")}, logs, march2024(), day("2024-03-15"))
	c, _ := g.Cell(1, 20)
	if c.Status != DisplayFuture || c.Editable || c.Log != nil {
		t.Fatalf("future cell should ignore log: %+v", c)
	}
}

func TestReconcileBeforeCreationIgnoresLogs(t *testing.T) {
	logs := []HabitLog{logOn(1, 1, "2024-03-05", LogCompleted)}
	g, _ := Reconcile([]Habit{habit(1, "2024-03-10")}, logs, march2024(), day("2024-03-15"))
	c, _ := g.Cell(1, 5)
	if c.Status != DisplayBeforeCreation || c.Log != nil {
		t.Fatalf("before-creation cell should ignore log: %+v", c)
	}
}

func TestReconcileCreatedAfterTodayNothingEditable(t *testing.T) {
	g, _ := Reconcile([]Habit{habit(1, "2024-03-20")}, nil, march2024(), day("2024-03-15"))
	c, _ := g.Cell(1, 15)
	if c.Status != DisplayBeforeCreation || c.Editable {
		t.Fatalf("today before creation must not be editable: %+v", c)
	}
	c, _ = g.Cell(1, 25)
	if c.Status != DisplayFuture {
		t.Fatalf("day after creation and after today should be future, got %v", c.Status)
	}
}

func TestReconcileSize(t *testing.T) {
	habits := []Habit{habit(1, "2023-01-01"), habit(2, "2023-01-01"), habit(3, "2023-01-01")}
	tests := []struct {
		month Month
		days  int
	}{
		{Month{2024, time.February}, 29},
		{Month{2023, time.February}, 28},
		{Month{2024, time.April}, 30},
		{Month{2024, time.December}, 31},
	}
	for _, tt := range tests {
		g, err := Reconcile(habits, nil, tt.month, day("2024-06-01"))
		if err != nil {
			t.Fatal(err)
		}
		if g.Len() != len(habits)*tt.days {
			t.Errorf("%s: %d cells, want %d", tt.month, g.Len(), len(habits)*tt.days)
		}
	}
}

func TestReconcileNoHabits(t *testing.T) {
	g, err := Reconcile(nil, []HabitLog{logOn(1, 1, "2024-03-01", LogCompleted)}, march2024(), day("2024-03-15"))
	if err != nil {
		t.Fatal(err)
	}
	if g.Len() != 0 || len(g.Habits) != 0 {
		t.Fatalf("expected empty grid, got %d cells", g.Len())
	}
}

func TestReconcileIgnoresOtherMonths(t *testing.T) {
	logs := []HabitLog{logOn(1, 1, "2024-02-15", LogCompleted), logOn(2, 1, "2024-04-15", LogCompleted)}
	g, _ := Reconcile([]Habit{habit(1, "2024-01-01")}, logs, march2024(), day("2024-03-31"))
	for _, c := range g.Row(1) {
		if c.Status != DisplayNotDone {
			t.Fatalf("day %d: %v", c.Date.Day, c.Status)
		}
	}
}

func TestReconcileDuplicateLogsFirstWins(t *testing.T) {
	logs := []HabitLog{
		logOn(1, 1, "2024-03-12", LogPartial),
		logOn(2, 1, "2024-03-12", LogCompleted),
	}
	g, _ := Reconcile([]Habit{habit(1, "2024-03-01")}, logs, march2024(), day("2024-03-15"))
	c, _ := g.Cell(1, 12)
	if c.Status != DisplayPartial || c.Log.ID != 1 {
		t.Fatalf("first log should win: %+v", c)
	}
}

func TestReconcileDuplicateHabitsSkipped(t *testing.T) {
	habits := []Habit{habit(1, "2024-03-01"), habit(1, "2024-03-20")}
	g, _ := Reconcile(habits, nil, march2024(), day("2024-03-15"))
	if len(g.Habits) != 1 || g.Len() != 31 {
		t.Fatalf("duplicate habit should be skipped: %d habits, %d cells", len(g.Habits), g.Len())
	}
	c, _ := g.Cell(1, 12)
	if c.Status != DisplayNotDone {
		t.Fatalf("first habit definition should win, got %v", c.Status)
	}
}

func TestReconcileNormalizesTimeOfDay(t *testing.T) {
	h := Habit{ID: 1, Created: time.Date(2024, time.March, 10, 23, 59, 0, 0, time.UTC)}
	logs := []HabitLog{{ID: 1, HabitID: 1, Date: time.Date(2024, time.March, 15, 18, 30, 0, 0, time.UTC), Status: LogCompleted}}
	today := time.Date(2024, time.March, 15, 0, 0, 1, 0, time.UTC)

	g, err := Reconcile([]Habit{h}, logs, march2024(), today)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := g.Cell(1, 10)
	if c.Status != DisplayNotDone {
		t.Fatalf("creation day should be tracked, got %v", c.Status)
	}
	c, _ = g.Cell(1, 15)
	if c.Status != DisplayCompleted || !c.Editable {
		t.Fatalf("unexpected today cell: %+v", c)
	}
}

func TestReconcileUsesLocalCalendarDate(t *testing.T) {
	tz := time.FixedZone("UTC+5", 5*3600)
	// 2024-03-15 02:00 in UTC+5 is still 2024-03-14 in UTC.
	today := time.Date(2024, time.March, 15, 2, 0, 0, 0, tz)
	g, _ := Reconcile([]Habit{habit(1, "2024-03-01")}, nil, march2024(), today)
	if c, _ := g.Cell(1, 15); !c.Editable {
		t.Fatal("calendar date in the caller's zone should be editable")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	habits := []Habit{habit(1, "2024-03-10"), habit(2, "2024-02-01")}
	logs := []HabitLog{logOn(1, 1, "2024-03-11", LogPartial), logOn(2, 2, "2024-03-15", LogCompleted)}
	a, err := Reconcile(habits, logs, march2024(), day("2024-03-15"))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Reconcile(habits, logs, march2024(), day("2024-03-15"))
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical inputs should give identical grids")
	}
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	habits := []Habit{habit(1, "2024-03-10")}
	logs := []HabitLog{logOn(1, 1, "2024-03-11", LogPartial)}
	hCopy := append([]Habit(nil), habits...)
	lCopy := append([]HabitLog(nil), logs...)

	g, _ := Reconcile(habits, logs, march2024(), day("2024-03-15"))
	c, _ := g.Cell(1, 11)
	c.Log.Status = LogCompleted

	if !reflect.DeepEqual(habits, hCopy) || !reflect.DeepEqual(logs, lCopy) {
		t.Fatal("inputs were mutated")
	}
}

// ============================================================
// Errors
// ============================================================

func TestReconcileInvalidDates(t *testing.T) {
	tests := []struct {
		name   string
		habits []Habit
		logs   []HabitLog
		today  time.Time
	}{
		{"zero creation", []Habit{{ID: 1}}, nil, day("2024-03-15")},
		{"zero log date", []Habit{habit(1, "2024-03-01")}, []HabitLog{{ID: 1, HabitID: 1}}, day("2024-03-15")},
		{"zero today", []Habit{habit(1, "2024-03-01")}, nil, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reconcile(tt.habits, tt.logs, march2024(), tt.today)
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("expected ErrInvalidDate, got %v", err)
			}
		})
	}
}

func TestReconcileInvalidMonth(t *testing.T) {
	_, err := Reconcile(nil, nil, Month{Year: 2024, Month: 13}, day("2024-03-15"))
	if !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}
