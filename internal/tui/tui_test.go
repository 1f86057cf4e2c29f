package tui

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/sadopc/habitr/internal/api"
	"github.com/sadopc/habitr/internal/calendar"
	"github.com/sadopc/habitr/internal/session"
	"github.com/sadopc/habitr/internal/store"
	gokeyring "github.com/zalando/go-keyring"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// fakeServer is a minimal habit API.
type fakeServer struct {
	mu      sync.Mutex
	fail    bool
	habits  []api.Habit
	logs    []api.HabitLog
	created []api.LogInput
	nextID  int64
}

func (f *fakeServer) router() http.Handler {
	r := mux.NewRouter()
	a := r.PathPrefix("/api").Subrouter()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	a.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			fail := f.fail
			f.mu.Unlock()
			if fail {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	a.HandleFunc("/token/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, api.TokenPair{Access: validToken(), Refresh: validToken()})
	}).Methods(http.MethodPost)
	a.HandleFunc("/profile/", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, api.Profile{ID: 1, Username: "ana", Email: "ana@example.com"})
	}).Methods(http.MethodGet)
	a.HandleFunc("/habits/active/", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, f.habits)
	}).Methods(http.MethodGet)
	a.HandleFunc("/habits/{id:[0-9]+}/", func(w http.ResponseWriter, req *http.Request) {
		var in api.HabitInput
		json.NewDecoder(req.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.habits {
			if fmt.Sprint(f.habits[i].ID) != mux.Vars(req)["id"] {
				continue
			}
			if in.IsActive != nil {
				f.habits[i].IsActive = *in.IsActive
			}
			writeJSON(w, f.habits[i])
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodPatch)
	a.HandleFunc("/habit-logs/monthly/", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, f.logs)
	}).Methods(http.MethodGet)
	a.HandleFunc("/habit-logs/", func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var out []api.HabitLog
		for _, l := range f.logs {
			if d := req.URL.Query().Get("date"); d != "" && l.Date != d {
				continue
			}
			out = append(out, l)
		}
		writeJSON(w, out)
	}).Methods(http.MethodGet)
	a.HandleFunc("/habit-logs/", func(w http.ResponseWriter, req *http.Request) {
		var in api.LogInput
		json.NewDecoder(req.Body).Decode(&in)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		f.created = append(f.created, in)
		l := api.HabitLog{ID: 100 + f.nextID, Habit: in.Habit, Date: in.Date, Status: in.Status, Notes: in.Notes}
		f.logs = append(f.logs, l)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, l)
	}).Methods(http.MethodPost)
	return r
}

func validToken() string {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
	}).SignedString([]byte("k"))
	return tok
}

type testEnv struct {
	deps   Deps
	store  *store.Store
	server *fakeServer
	now    *time.Time
}

func newTestEnv(t *testing.T, loggedIn bool) *testEnv {
	t.Helper()
	gokeyring.MockInit()

	f := &fakeServer{
		habits: []api.Habit{
			{ID: 1, Name: "Read", IsActive: true, CreatedAt: "2024-03-01T08:00:00Z", CurrentStreak: 3},
			{ID: 2, Name: "Walk", IsActive: true, CreatedAt: "2024-03-12T08:00:00Z"},
		},
		logs: []api.HabitLog{
			{ID: 10, Habit: 1, Date: "2024-03-14", Status: "completed", Notes: "chapter 4"},
		},
	}
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)

	st, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	client := api.New(api.Config{BaseURL: srv.URL + "/api"})
	sess := session.New(client, st)
	if loggedIn {
		st.SaveCredentials(store.Credentials{Username: "ana", Access: validToken(), Refresh: validToken()})
		if err := sess.Restore(); err != nil {
			t.Fatal(err)
		}
	}

	now := fixedNow
	env := &testEnv{store: st, server: f, now: &now}
	env.deps = Deps{Client: client, Session: sess, Store: st, Now: func() time.Time { return *env.now }}
	return env
}

func (e *testEnv) monthData() monthDataMsg {
	habits, _ := api.ConvertHabits(e.server.habits)
	logs, _ := api.ConvertLogs(e.server.logs)
	return monthDataMsg{month: calendar.Month{Year: 2024, Month: time.March}, habits: habits, logs: logs, syncedAt: fixedNow}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedCalendar(t *testing.T, env *testEnv) calendarModel {
	t.Helper()
	c := newCalendarModel(newBackend(env.deps))
	c.setSize(120, 40)
	c, _ = c.update(env.monthData())
	if !c.loaded {
		t.Fatal("calendar should be loaded")
	}
	return c
}

func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

// ============================================================
// Calendar model
// ============================================================

func TestCalendarStartsOnToday(t *testing.T) {
	env := newTestEnv(t, true)
	c := newCalendarModel(newBackend(env.deps))
	if c.month != (calendar.Month{Year: 2024, Month: time.March}) {
		t.Fatalf("month = %v", c.month)
	}
	if c.col != 14 {
		t.Fatalf("cursor should start on today, got col %d", c.col)
	}
}

func TestCalendarMonthData(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)

	if len(c.grid.Habits) != 2 || c.grid.Len() != 62 {
		t.Fatalf("unexpected grid: %d habits, %d cells", len(c.grid.Habits), c.grid.Len())
	}
	cell, ok := c.grid.Cell(1, 14)
	if !ok || cell.Status != calendar.DisplayCompleted {
		t.Fatalf("expected completed on the 14th, got %+v", cell)
	}

	out := c.view()
	for _, want := range []string{"March 2024", "Read", "Walk"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestCalendarIgnoresStaleMonth(t *testing.T) {
	env := newTestEnv(t, true)
	c := newCalendarModel(newBackend(env.deps))
	msg := env.monthData()
	msg.month = msg.month.Prev()
	c, _ = c.update(msg)
	if c.loaded {
		t.Fatal("data for another month must be ignored")
	}
}

func TestCalendarEnterFutureDay(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)
	c.col = 19

	c, cmd := c.update(keyMsg("enter"))
	msg, ok := runCmd(t, cmd).(statusMsg)
	if !ok || msg.text != msgFutureDay || !msg.isError {
		t.Fatalf("expected future-day status, got %+v", msg)
	}
	if c.formActive {
		t.Fatal("form must not open on a future day")
	}
}

func TestCalendarEnterPastDay(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)
	c.col = 13 // the 14th has a completed log

	c, cmd := c.update(keyMsg("enter"))
	msg, _ := runCmd(t, cmd).(statusMsg)
	if msg.text != msgPastDay {
		t.Fatalf("expected past-day status, got %q", msg.text)
	}
	if c.formActive {
		t.Fatal("form must not open on a past day")
	}
}

func TestCalendarEnterBeforeCreation(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)
	c.row = 1 // Walk, created on the 12th
	c.col = 2

	_, cmd := c.update(keyMsg("enter"))
	msg, _ := runCmd(t, cmd).(statusMsg)
	if msg.text != msgNoHabit {
		t.Fatalf("expected before-creation status, got %q", msg.text)
	}
}

func TestCalendarEnterTodayOpensForm(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)

	c, _ = c.update(keyMsg("enter"))
	if !c.formActive || c.form == nil {
		t.Fatal("log form should open on today")
	}
	if c.editing.Date != calendar.MustParseDate("2024-03-15") || c.editing.HabitID != 1 {
		t.Fatalf("editing wrong cell: %+v", c.editing)
	}
	if *c.formStatus != calendar.LogCompleted {
		t.Fatalf("new log should default to completed, got %v", *c.formStatus)
	}

	c, _ = c.update(keyMsg("esc"))
	if c.formActive {
		t.Fatal("esc should close the form")
	}
}

func TestCalendarOfflineBlocksLogging(t *testing.T) {
	env := newTestEnv(t, true)
	c := newCalendarModel(newBackend(env.deps))
	msg := env.monthData()
	msg.offline = true
	c, _ = c.update(msg)

	c, cmd := c.update(keyMsg("enter"))
	st, _ := runCmd(t, cmd).(statusMsg)
	if !strings.Contains(st.text, "offline") || c.formActive {
		t.Fatalf("expected offline refusal, got %+v", st)
	}
}

func TestCalendarCursorBounds(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)
	c.col = 30
	c, _ = c.update(keyMsg("right"))
	if c.col != 30 {
		t.Fatalf("cursor moved past month end: %d", c.col)
	}
	c.col = 0
	c, _ = c.update(keyMsg("left"))
	if c.col != 0 {
		t.Fatalf("cursor moved before day 1: %d", c.col)
	}
	c, _ = c.update(keyMsg("k"))
	if c.row != 0 {
		t.Fatal("cursor moved above first habit")
	}
	c, _ = c.update(keyMsg("j"))
	c, _ = c.update(keyMsg("j"))
	if c.row != 1 {
		t.Fatalf("cursor moved past last habit: %d", c.row)
	}
}

func TestCalendarMonthNavigation(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)
	c.col = 30

	c, cmd := c.update(keyMsg("]"))
	if c.month != (calendar.Month{Year: 2024, Month: time.April}) {
		t.Fatalf("month = %v", c.month)
	}
	if c.loaded || cmd == nil {
		t.Fatal("changing month should reload")
	}
	if c.col != 29 {
		t.Fatalf("cursor should clamp to April 30, got col %d", c.col)
	}

	c, _ = c.update(keyMsg("t"))
	if c.month.Month != time.March || c.col != 14 {
		t.Fatalf("today key should return to March 15, got %v col %d", c.month, c.col)
	}
}

func TestCalendarDayRollover(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)
	if cell, _ := c.grid.Cell(1, 16); cell.Editable {
		t.Fatal("tomorrow should not be editable yet")
	}

	*env.now = fixedNow.Add(24 * time.Hour)
	c, _ = c.update(tickMsg(*env.now))

	if c.grid.Today != calendar.MustParseDate("2024-03-16") {
		t.Fatalf("today = %v", c.grid.Today)
	}
	if cell, _ := c.grid.Cell(1, 16); !cell.Editable {
		t.Fatal("the new day should be editable")
	}
	if cell, _ := c.grid.Cell(1, 15); cell.Editable {
		t.Fatal("yesterday should be read-only")
	}
}

func TestCalendarLoadOnlineCachesSnapshot(t *testing.T) {
	env := newTestEnv(t, true)
	c := newCalendarModel(newBackend(env.deps))

	msg, ok := runCmd(t, c.load()).(monthDataMsg)
	if !ok {
		t.Fatalf("expected monthDataMsg, got %T", msg)
	}
	if msg.err != nil || msg.offline || len(msg.habits) != 2 || len(msg.logs) != 1 {
		t.Fatalf("unexpected load result: %+v", msg)
	}

	snap, err := env.store.LoadSnapshot(c.month)
	if err != nil {
		t.Fatalf("snapshot not cached: %v", err)
	}
	if len(snap.Habits) != 2 || len(snap.Logs) != 1 {
		t.Fatalf("cached %d habits, %d logs", len(snap.Habits), len(snap.Logs))
	}
	if v, _ := env.store.GetSetting("last_month"); v != "2024-03" {
		t.Fatalf("last_month = %q", v)
	}
}

func TestCalendarLoadFallsBackToSnapshot(t *testing.T) {
	env := newTestEnv(t, true)
	c := newCalendarModel(newBackend(env.deps))
	runCmd(t, c.load())

	env.server.mu.Lock()
	env.server.fail = true
	env.server.mu.Unlock()

	msg, _ := runCmd(t, c.load()).(monthDataMsg)
	if msg.err != nil || !msg.offline {
		t.Fatalf("expected offline snapshot, got %+v", msg)
	}
	if len(msg.habits) != 2 {
		t.Fatalf("snapshot habits = %d", len(msg.habits))
	}
}

func TestCalendarLoadFailsWithoutSnapshot(t *testing.T) {
	env := newTestEnv(t, true)
	env.server.fail = true
	c := newCalendarModel(newBackend(env.deps))

	msg, _ := runCmd(t, c.load()).(monthDataMsg)
	if msg.err == nil {
		t.Fatal("expected error without network or cache")
	}
	c, cmd := c.update(msg)
	if c.loading || c.loaded {
		t.Fatal("failed load should leave the calendar empty and idle")
	}
	if _, ok := runCmd(t, cmd).(errMsg); !ok {
		t.Fatal("failed load should report an error")
	}
}

func TestCalendarSaveLogCreates(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)
	cell, _ := c.grid.Cell(1, 15)

	msg, ok := runCmd(t, c.saveLog(cell, calendar.LogPartial, "half")).(logSavedMsg)
	if !ok {
		t.Fatalf("expected logSavedMsg, got %T", msg)
	}
	if msg.habit != "Read" || msg.date != cell.Date {
		t.Fatalf("unexpected saved msg: %+v", msg)
	}
	env.server.mu.Lock()
	defer env.server.mu.Unlock()
	if len(env.server.created) != 1 {
		t.Fatalf("expected one created log, got %d", len(env.server.created))
	}
	got := env.server.created[0]
	if got.Habit != 1 || got.Date != "2024-03-15" || got.Status != "partial" || got.Notes != "half" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestCalendarSaveLogAfterMidnight(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)
	cell, _ := c.grid.Cell(1, 15)

	*env.now = fixedNow.Add(24 * time.Hour)
	msg, _ := runCmd(t, c.saveLog(cell, calendar.LogCompleted, "")).(statusMsg)
	if msg.text != msgPastDay {
		t.Fatalf("expected past-day refusal, got %+v", msg)
	}
	if len(env.server.created) != 0 {
		t.Fatal("no log should be sent")
	}
}

func TestWithNotes(t *testing.T) {
	day := func(s string) time.Time { return calendar.MustParseDate(s).Time() }
	logs := []calendar.HabitLog{
		{ID: 1, Date: day("2024-03-01"), Notes: "first"},
		{ID: 2, Date: day("2024-03-05"), Notes: "  "},
		{ID: 3, Date: day("2024-03-03"), Notes: "third"},
	}
	got := withNotes(logs)
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 1 {
		t.Fatalf("unexpected notes: %+v", got)
	}
	if logs[0].ID != 1 {
		t.Fatal("input reordered")
	}
}

func TestCalendarNotesView(t *testing.T) {
	env := newTestEnv(t, true)
	c := loadedCalendar(t, env)
	c, _ = c.update(habitNotesMsg{name: "Read", logs: []calendar.HabitLog{
		{ID: 10, Date: calendar.MustParseDate("2024-03-14").Time(), Status: calendar.LogCompleted, Notes: "chapter 4"},
	}})
	if !c.detail || !strings.Contains(c.view(), "chapter 4") {
		t.Fatal("notes view should list the note")
	}
	c, _ = c.update(keyMsg("esc"))
	if c.detail {
		t.Fatal("esc should close notes")
	}
}

func TestStatusCellCoversEveryStatus(t *testing.T) {
	all := []calendar.DisplayStatus{
		calendar.DisplayFuture, calendar.DisplayBeforeCreation, calendar.DisplayNotDone,
		calendar.DisplayPartial, calendar.DisplayCompleted,
	}
	seen := map[string]bool{}
	for _, s := range all {
		glyph, _ := statusCell(s)
		if glyph == "?" {
			t.Fatalf("status %v has no glyph", s)
		}
		if seen[glyph] {
			t.Fatalf("glyph %q reused", glyph)
		}
		seen[glyph] = true
		if displayLabel(s) == s.String() {
			t.Fatalf("status %v has no label", s)
		}
	}
}

func TestLegendListsEveryStatus(t *testing.T) {
	legend := renderLegend()
	for _, s := range []calendar.DisplayStatus{
		calendar.DisplayCompleted, calendar.DisplayPartial, calendar.DisplayNotDone,
		calendar.DisplayFuture, calendar.DisplayBeforeCreation,
	} {
		if !strings.Contains(legend, displayLabel(s)) {
			t.Fatalf("legend missing %q", displayLabel(s))
		}
	}
}

func TestParseWeekStart(t *testing.T) {
	if parseWeekStart("sunday") != time.Sunday || parseWeekStart("monday") != time.Monday || parseWeekStart("") != time.Monday {
		t.Fatal("unexpected week start parsing")
	}
}

// ============================================================
// Habits model
// ============================================================

func TestHabitsData(t *testing.T) {
	env := newTestEnv(t, true)
	h := newHabitsModel(newBackend(env.deps))
	h.setSize(120, 40)
	h.cursor = 5

	habits, _ := api.ConvertHabits(env.server.habits)
	h, _ = h.update(habitsDataMsg{habits: habits})
	if h.cursor != 1 {
		t.Fatalf("cursor should clamp, got %d", h.cursor)
	}
	if !strings.Contains(h.view(), "Walk") {
		t.Fatal("view should list habits")
	}
}

func TestHabitsEmptyView(t *testing.T) {
	env := newTestEnv(t, true)
	h := newHabitsModel(newBackend(env.deps))
	h.setSize(120, 40)
	if !strings.Contains(h.view(), "No habits yet") {
		t.Fatal("empty state missing")
	}
}

func TestHabitsForms(t *testing.T) {
	env := newTestEnv(t, true)
	h := newHabitsModel(newBackend(env.deps))
	habits, _ := api.ConvertHabits(env.server.habits)
	h, _ = h.update(habitsDataMsg{habits: habits})

	h, _ = h.update(keyMsg("n"))
	if !h.formActive || h.formType != formNewHabit || *h.formName != "" {
		t.Fatal("n should open an empty new-habit form")
	}
	h, _ = h.update(keyMsg("esc"))

	h, _ = h.update(keyMsg("e"))
	if h.formType != formEditHabit || *h.formName != "Read" || h.editingID != 1 {
		t.Fatalf("edit form not prefilled: %q", *h.formName)
	}
	h, _ = h.update(keyMsg("esc"))

	h, _ = h.update(keyMsg("d"))
	if h.formType != formDeleteHabit || *h.formConfirm {
		t.Fatal("delete should ask for confirmation, defaulting to no")
	}
}

func TestHabitsStatsPanel(t *testing.T) {
	env := newTestEnv(t, true)
	h := newHabitsModel(newBackend(env.deps))
	h.setSize(120, 40)
	habits, _ := api.ConvertHabits(env.server.habits)
	h, _ = h.update(habitsDataMsg{habits: habits})
	h, _ = h.update(habitStatsMsg{id: 1, stats: &api.HabitStatistics{HabitName: "Read", TotalLogs: 9, CompletionRate: 66.7}})

	if !strings.Contains(h.view(), "67%") {
		t.Fatal("stats panel should show the completion rate")
	}
	h.cursor = 1
	if strings.Contains(h.view(), "Total logs") {
		t.Fatal("stats for another habit should be hidden")
	}
}

func TestHabitsToggleUpdatesCache(t *testing.T) {
	env := newTestEnv(t, true)
	c := newCalendarModel(newBackend(env.deps))
	runCmd(t, c.load())

	h := newHabitsModel(newBackend(env.deps))
	habits, _ := api.ConvertHabits(env.server.habits)
	h, _ = h.update(habitsDataMsg{habits: habits})

	if _, ok := runCmd(t, h.toggleActive(habits[0])).(dataChangedMsg); !ok {
		t.Fatal("expected dataChangedMsg")
	}
	snap, err := env.store.LoadSnapshot(c.month)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Habits) != 1 || snap.Habits[0].ID != 2 {
		t.Fatalf("paused habit should leave the offline calendar, got %+v", snap.Habits)
	}
}

func TestRequireName(t *testing.T) {
	if requireName("  ") == nil || requireName("Read") != nil {
		t.Fatal("requireName misbehaves")
	}
}

// ============================================================
// Statistics model
// ============================================================

func TestStatisticsData(t *testing.T) {
	env := newTestEnv(t, true)
	s := newStatisticsModel(newBackend(env.deps))
	s.setSize(120, 40)

	logs, _ := api.ConvertLogs(env.server.logs)
	counts, _ := calendar.MonthlyCounts(logs, s.month)
	s, _ = s.update(statisticsDataMsg{
		month:     s.month,
		counts:    counts,
		summary:   calendar.Summary{Completed: 1, NotDone: 2},
		dashboard: &api.Dashboard{TotalHabits: 2, ActiveHabits: 2, BestStreaks: []api.Streak{{HabitName: "Read", CurrentStreak: 3}}},
	})
	out := s.view()
	for _, want := range []string{"Statistics", "March 2024", "Best streaks", "33%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestStatisticsWithoutDashboard(t *testing.T) {
	env := newTestEnv(t, true)
	s := newStatisticsModel(newBackend(env.deps))
	s.setSize(120, 40)
	s, _ = s.update(statisticsDataMsg{month: s.month})
	if !strings.Contains(s.view(), "Dashboard unavailable") {
		t.Fatal("missing dashboard should be noted")
	}
}

func TestStatisticsModePersists(t *testing.T) {
	env := newTestEnv(t, true)
	s := newStatisticsModel(newBackend(env.deps))
	if s.mode != chartStacked {
		t.Fatal("default mode should be stacked")
	}
	s, _ = s.update(keyMsg("m"))
	if s.mode != chartCompleted {
		t.Fatal("m should toggle the chart mode")
	}
	if v, _ := env.store.GetSetting("chart_mode"); v != "completed" {
		t.Fatalf("chart_mode = %q", v)
	}
	if again := newStatisticsModel(newBackend(env.deps)); again.mode != chartCompleted {
		t.Fatal("saved mode should be restored")
	}
}

func TestStatisticsMonthNavigation(t *testing.T) {
	env := newTestEnv(t, true)
	s := newStatisticsModel(newBackend(env.deps))
	s, cmd := s.update(keyMsg("left"))
	if s.month.Month != time.February || cmd == nil {
		t.Fatalf("month = %v", s.month)
	}
	s, _ = s.update(statisticsDataMsg{month: s.month.Next()})
	if s.loaded {
		t.Fatal("stale statistics must be ignored")
	}
}

// ============================================================
// Profile model
// ============================================================

func TestProfileView(t *testing.T) {
	env := newTestEnv(t, true)
	p := newProfileModel(newBackend(env.deps))
	p.setSize(120, 40)

	p, _ = p.update(profileDataMsg{profile: &api.Profile{Username: "ana", Email: "ana@example.com"}})
	settings, _ := env.store.GetAllSettings()
	p, _ = p.update(settingsDataMsg{settings: settings})

	out := p.view()
	for _, want := range []string{"ana@example.com", "week_start", "monday"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestProfileLogoutKey(t *testing.T) {
	env := newTestEnv(t, true)
	p := newProfileModel(newBackend(env.deps))
	_, cmd := p.update(keyMsg("L"))
	if _, ok := runCmd(t, cmd).(logoutRequestMsg); !ok {
		t.Fatal("L should request logout")
	}
}

func TestProfileForms(t *testing.T) {
	env := newTestEnv(t, true)
	p := newProfileModel(newBackend(env.deps))
	p, _ = p.update(profileDataMsg{profile: &api.Profile{Username: "ana", FirstName: "Ana"}})

	p, _ = p.update(keyMsg("e"))
	if p.formType != formProfile || *p.firstName != "Ana" {
		t.Fatal("profile form should be prefilled")
	}
	p, _ = p.update(keyMsg("esc"))
	p, _ = p.update(keyMsg("p"))
	if p.formType != formPassword || !p.formActive {
		t.Fatal("p should open the password form")
	}
}

func TestSavePreferences(t *testing.T) {
	env := newTestEnv(t, true)
	p := newProfileModel(newBackend(env.deps))
	*p.weekStart = "sunday"
	*p.chartMode = "completed"
	if _, ok := runCmd(t, p.savePreferences()).(settingsChangedMsg); !ok {
		t.Fatal("expected settingsChangedMsg")
	}
	if v, _ := env.store.GetSetting("week_start"); v != "sunday" {
		t.Fatalf("week_start = %q", v)
	}
}

func TestValidEmail(t *testing.T) {
	if validEmail("") != nil || validEmail("a@b.co") != nil || validEmail("nope") == nil {
		t.Fatal("validEmail misbehaves")
	}
}

// ============================================================
// Login model
// ============================================================

func TestLoginSubmit(t *testing.T) {
	env := newTestEnv(t, false)
	l := newLoginModel(newBackend(env.deps), "")
	*l.username = " ana "
	*l.password = "secret"

	msg, ok := runCmd(t, l.submit()).(loginDoneMsg)
	if !ok {
		t.Fatalf("expected loginDoneMsg, got %T", msg)
	}
	if msg.profile.Username != "ana" || !env.deps.Session.LoggedIn() {
		t.Fatal("login should establish a session")
	}
}

func TestLoginFailedResetsPassword(t *testing.T) {
	env := newTestEnv(t, false)
	l := newLoginModel(newBackend(env.deps), "ana")
	*l.password = "wrong"
	l.busy = true

	l, _ = l.update(loginFailedMsg{err: &api.Error{Status: http.StatusUnauthorized}})
	if l.busy || *l.password != "" || *l.username != "ana" {
		t.Fatal("failed login should keep the username and clear the password")
	}
	if l.err != "Invalid username or password" {
		t.Fatalf("err = %q", l.err)
	}
}

func TestLoginError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&api.Error{Status: 401}, "Invalid username or password"},
		{&api.Error{Status: 400, Detail: "username: required"}, "username: required"},
		{errors.New("dial tcp: refused"), "dial tcp: refused"},
	}
	for _, tt := range tests {
		if got := loginError(tt.err); got != tt.want {
			t.Errorf("loginError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// ============================================================
// App model
// ============================================================

func TestNewAppLoggedOut(t *testing.T) {
	env := newTestEnv(t, false)
	app := NewApp(env.deps)
	if app.loggedIn {
		t.Fatal("app should start on the login screen")
	}
	app.width, app.height = 120, 40
	app.login.setSize(120, 40)
	if !strings.Contains(app.View(), "Sign in") {
		t.Fatal("login screen not shown")
	}
}

func TestNewApp(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)

	if !app.loggedIn {
		t.Fatal("restored session should skip login")
	}
	if app.activeView != viewCalendar {
		t.Fatal("default view should be calendar")
	}
	if app.showHelp || app.exportPicking {
		t.Fatal("overlays should be hidden by default")
	}
	if app.isFormActive() {
		t.Fatal("no forms should be active initially")
	}
}

func TestAppViewStates(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)
	app.width = 120
	app.height = 40

	for v := range viewNames {
		app.activeView = viewState(v)
		if app.View() == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)
	app.width = 120
	app.height = 40

	header := app.renderHeader()
	for _, name := range append(viewNames, "ana") {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing %q", name)
		}
	}
}

func TestAppLoadingState(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)
	if out := app.View(); out != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", out)
	}
}

func TestAppStatusMessage(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)
	app.width = 120
	app.height = 40

	m, _ := app.Update(statusMsg{text: "past days are read-only", isError: true})
	app = m.(App)
	if !strings.Contains(app.renderFooter(), "past days are read-only") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppRoutesDataToOwner(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)
	app.activeView = viewStatistics

	m, _ := app.Update(env.monthData())
	app = m.(App)
	if !app.calendar.loaded {
		t.Fatal("month data should reach the calendar while another view is active")
	}
}

func TestAppTabSwitching(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)

	m, cmd := app.Update(keyMsg("2"))
	app = m.(App)
	if app.activeView != viewHabits || cmd == nil {
		t.Fatal("2 should switch to habits and load them")
	}
	m, _ = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = m.(App)
	if app.activeView != viewStatistics {
		t.Fatalf("tab should advance the view, got %d", app.activeView)
	}
}

func TestAppLoggedOut(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)
	m, _ := app.Update(env.monthData())
	app = m.(App)

	m, _ = app.Update(loggedOutMsg{reason: "session expired, log in again"})
	app = m.(App)
	if app.loggedIn || app.calendar.loaded {
		t.Fatal("logout should reset to the login screen")
	}
	if app.login.err != "session expired, log in again" {
		t.Fatalf("login screen should explain why, got %q", app.login.err)
	}
}

func TestAppLogoutRequest(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)
	m, _ := app.Update(logoutRequestMsg{})
	app = m.(App)
	if app.loggedIn || env.deps.Session.LoggedIn() {
		t.Fatal("logout should drop the session")
	}
	if _, err := env.store.LoadCredentials(); !errors.Is(err, store.ErrNoSession) {
		t.Fatal("stored credentials should be cleared")
	}
}

func TestAppExportNothingLoaded(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)
	msg, _ := runCmd(t, app.doExport(0)).(statusMsg)
	if !msg.isError {
		t.Fatal("export without data should fail")
	}
}

func TestAppExportWritesFile(t *testing.T) {
	env := newTestEnv(t, true)
	t.Setenv("HOME", t.TempDir())
	app := NewApp(env.deps)
	m, _ := app.Update(env.monthData())
	app = m.(App)

	for format, ext := range []string{".csv", ".json"} {
		msg, ok := runCmd(t, app.doExport(format)).(exportDoneMsg)
		if !ok {
			t.Fatalf("format %d: expected exportDoneMsg", format)
		}
		if !strings.HasSuffix(msg.path, "habitr-2024-03"+ext) {
			t.Fatalf("unexpected path %q", msg.path)
		}
		if _, err := os.Stat(msg.path); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAppExportPicker(t *testing.T) {
	env := newTestEnv(t, true)
	app := NewApp(env.deps)
	m, _ := app.Update(keyMsg("x"))
	app = m.(App)
	if !app.exportPicking {
		t.Fatal("x should open the export picker")
	}
	m, _ = app.Update(keyMsg("j"))
	app = m.(App)
	if app.exportCursor != 1 {
		t.Fatalf("cursor = %d", app.exportCursor)
	}
	m, _ = app.Update(keyMsg("esc"))
	app = m.(App)
	if app.exportPicking {
		t.Fatal("esc should close the picker")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"Read", 10, "Read"},
		{"Meditation", 5, "Medi…"},
		{"Çay içmek", 4, "Çay…"},
		{"ab", 1, "a"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestFormatSynced(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
	}
	for _, tt := range tests {
		if got := formatSynced(fixedNow.Add(-tt.ago), fixedNow); got != tt.want {
			t.Errorf("formatSynced(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if formatSynced(time.Time{}, fixedNow) != "never" {
		t.Fatal("zero time should read never")
	}
}

func TestViewNames(t *testing.T) {
	if len(viewNames) != int(viewProfile)+1 {
		t.Fatalf("expected %d view names, got %d", int(viewProfile)+1, len(viewNames))
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test, just verify they don't panic)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"cellCursor", func() string { return cellCursorStyle.Render("test") }},
		{"today", func() string { return todayStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"subtitle", func() string { return subtitleStyle.Render("test") }},
		{"success", func() string { return successStyle.Render("test") }},
		{"warning", func() string { return warningStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
	}

	for _, s := range styles {
		if s.fn() == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}
