package deadlines

import (
	"strings"
	"testing"
	"time"

	"github.com/jobsense/jobsense/internal/catalog"
)

var testNow = time.Date(2026, time.August, 17, 12, 0, 0, 0, time.UTC)

func newTestMonitor(cat *catalog.Catalog) *Monitor {
	m := NewMonitor(cat, nil)
	m.now = func() time.Time { return testNow }
	return m
}

func trackedCatalog() *catalog.Catalog {
	return &catalog.Catalog{Jobs: map[string]*catalog.Job{
		"https://jobs.example/critical": {
			URL: "https://jobs.example/critical", Title: "ML Engineer", Company: "DeepMind",
			Status: catalog.StatusLiked, Deadline: "19 August 2026",
		},
		"https://jobs.example/urgent": {
			URL: "https://jobs.example/urgent", Title: "Data Scientist", Company: "BenevolentAI",
			Status: catalog.StatusMaybe, Deadline: "22/08/2026",
		},
		"https://jobs.example/warning": {
			URL: "https://jobs.example/warning", Status: catalog.StatusNew,
			Deadline: "2026-08-24", Location: "London",
		},
		"https://jobs.example/expired": {
			URL: "https://jobs.example/expired", Title: "Platform Engineer", Company: "SellCo",
			Status: catalog.StatusLiked, Deadline: "10 August 2026",
		},
		"https://jobs.example/far": {
			URL: "https://jobs.example/far", Title: "Researcher", Company: "Oxford",
			Status: catalog.StatusLiked, Deadline: "1 October 2026",
		},
		"https://jobs.example/applied": {
			URL: "https://jobs.example/applied", Title: "Analyst", Company: "BigBank",
			Status: catalog.StatusApplied, Deadline: "19 August 2026",
		},
		"https://jobs.example/no-deadline": {
			URL: "https://jobs.example/no-deadline", Title: "Designer", Company: "Studio",
			Status: catalog.StatusLiked, Deadline: "Not specified",
		},
		"https://jobs.example/vague": {
			URL: "https://jobs.example/vague", Title: "Writer", Company: "Paper",
			Status: catalog.StatusMaybe, Deadline: "ASAP",
		},
	}}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(trackedCatalog())
	alerts := m.Check(7)

	wantURLs := []string{
		"https://jobs.example/critical",
		"https://jobs.example/urgent",
		"https://jobs.example/warning",
		"https://jobs.example/expired",
	}
	if len(alerts) != len(wantURLs) {
		t.Fatalf("alerts = %d, want %d: %+v", len(alerts), len(wantURLs), alerts)
	}
	for i, want := range wantURLs {
		if alerts[i].JobURL != want {
			t.Errorf("alert %d url = %s, want %s", i, alerts[i].JobURL, want)
		}
	}

	critical := alerts[0]
	if critical.Urgency != UrgencyCritical || critical.DaysRemaining != 1 {
		t.Errorf("critical alert = %+v", critical)
	}
	if critical.Action != "Only 1 day(s) left! Apply NOW!" {
		t.Errorf("critical action = %q", critical.Action)
	}
	if critical.Deadline != "19 August 2026" {
		t.Errorf("critical keeps original deadline text, got %q", critical.Deadline)
	}

	urgent := alerts[1]
	if urgent.Urgency != UrgencyUrgent || urgent.DaysRemaining != 4 {
		t.Errorf("urgent alert = %+v", urgent)
	}
	if urgent.Action != "Apply within 4 days" {
		t.Errorf("urgent action = %q", urgent.Action)
	}

	warning := alerts[2]
	if warning.Urgency != UrgencyWarning || warning.DaysRemaining != 6 {
		t.Errorf("warning alert = %+v", warning)
	}
	if warning.Action != "Deadline approaching in 6 days" {
		t.Errorf("warning action = %q", warning.Action)
	}
	if warning.Title != "Unknown" || warning.Company != "Unknown" {
		t.Errorf("missing fields should fall back to Unknown: %+v", warning)
	}
	if warning.Location != "London" {
		t.Errorf("location = %q, want London", warning.Location)
	}

	expired := alerts[3]
	if expired.Urgency != UrgencyExpired || expired.DaysRemaining != -8 {
		t.Errorf("expired alert = %+v", expired)
	}
	if expired.Action != "Deadline passed 8 days ago - check if still accepting" {
		t.Errorf("expired action = %q", expired.Action)
	}

	if got := m.Check(0); len(got) != len(wantURLs) {
		t.Errorf("default window alerts = %d, want %d", len(got), len(wantURLs))
	}
}

func TestUrgent(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(trackedCatalog())
	urgent := m.Urgent(0)

	if len(urgent) != 2 {
		t.Fatalf("urgent alerts = %d, want 2: %+v", len(urgent), urgent)
	}
	if urgent[0].Urgency != UrgencyCritical || urgent[1].Urgency != UrgencyUrgent {
		t.Errorf("urgencies = %s, %s", urgent[0].Urgency, urgent[1].Urgency)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(trackedCatalog())
	stats := m.Stats()

	want := Stats{
		TotalTracked:  6,
		WithDeadlines: 4,
		Critical:      1,
		Urgent:        1,
		Upcoming:      1,
		Expired:       1,
	}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}

func TestReport(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(&catalog.Catalog{Jobs: map[string]*catalog.Job{
		"https://jobs.example/1": {
			URL: "https://jobs.example/1", Title: "ML Engineer", Company: "DeepMind",
			Status: catalog.StatusLiked, Deadline: "19 August 2026",
		},
		"https://jobs.example/2": {
			URL: "https://jobs.example/2", Title: "Data Scientist", Company: "BenevolentAI",
			Status: catalog.StatusMaybe, Deadline: "23 August 2026",
		},
		"https://jobs.example/3": {
			URL: "https://jobs.example/3", Title: "Research Assistant",
			Status: catalog.StatusNew, Deadline: "25 August 2026",
		},
		"https://jobs.example/4": {
			URL: "https://jobs.example/4", Title: "Platform Engineer", Company: "SellCo",
			Status: catalog.StatusLiked, Deadline: "2026-08-10",
		},
	}})

	want := strings.Join([]string{
		"==================================================",
		"DEADLINE ALERTS",
		"==================================================",
		"",
		"!!! CRITICAL - 2 DAYS OR LESS !!!",
		"  [LIKED] ML Engineer",
		"           @ DeepMind",
		"           Deadline: 19 August 2026 (1 days)",
		"",
		"!! URGENT - 5 DAYS OR LESS !!",
		"  [MAYBE] Data Scientist",
		"           @ BenevolentAI",
		"           Deadline: 23 August 2026 (5 days)",
		"",
		"UPCOMING (within 7 days):",
		"  [NEW] Research Assistant",
		"           @ Unknown - 7 days left",
		"",
		"EXPIRED (check if still accepting):",
		"  [LIKED] Platform Engineer @ SellCo",
		"           Deadline was: 2026-08-10",
		"",
		"==================================================",
	}, "\n")

	if got := m.Report(7); got != want {
		t.Errorf("report mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestReportEmpty(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(&catalog.Catalog{Jobs: map[string]*catalog.Job{
		"https://jobs.example/a": {
			URL: "https://jobs.example/a", Status: catalog.StatusApplied, Deadline: "19 August 2026",
		},
	}})

	if got := m.Report(0); got != "No upcoming deadlines for your liked/maybe jobs." {
		t.Errorf("report = %q", got)
	}
}

func TestNilCatalog(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(nil)
	if got := m.Check(7); len(got) != 0 {
		t.Errorf("Check on nil catalog = %+v", got)
	}
	if stats := m.Stats(); *stats != (Stats{}) {
		t.Errorf("Stats on nil catalog = %+v", stats)
	}
}
