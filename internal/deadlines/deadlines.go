// Package deadlines watches application deadlines on jobs the user has
// liked, marked maybe or not reviewed yet, and raises alerts sorted by
// urgency. It is a pure computation over the catalog and persists
// nothing.
package deadlines

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/jobsense/jobsense/internal/catalog"
	"go.uber.org/zap"
)

const (
	defaultWarnDays   = 7
	defaultUrgentDays = 5
	statsWarnDays     = 14

	criticalDays = 2
	urgentDays   = 5
)

// Urgency classifies how soon a deadline needs attention.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyWarning  Urgency = "warning"
	UrgencyExpired  Urgency = "expired"
)

// rank orders alerts for display: actionable deadlines first, expired
// ones last.
func (u Urgency) rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyUrgent:
		return 1
	case UrgencyWarning:
		return 2
	case UrgencyExpired:
		return 3
	}
	return 99
}

// Alert is one deadline warning for a tracked job.
type Alert struct {
	Urgency       Urgency        `json:"urgency"`
	JobURL        string         `json:"job_url"`
	Title         string         `json:"job_title"`
	Company       string         `json:"company"`
	Deadline      string         `json:"deadline"`
	DaysRemaining int            `json:"days_remaining"`
	Status        catalog.Status `json:"status"`
	Action        string         `json:"action_needed"`
	Location      string         `json:"location"`
}

// Stats are the deadline counters for the reporting surface.
type Stats struct {
	TotalTracked  int `json:"total_tracked"`
	WithDeadlines int `json:"with_deadlines"`
	Critical      int `json:"critical"`
	Urgent        int `json:"urgent"`
	Upcoming      int `json:"upcoming"`
	Expired       int `json:"expired"`
}

// Deadline strings the job boards use when no date was given.
var placeholders = map[string]struct{}{
	"":              {},
	"Not specified": {},
	"Not Specified": {},
	"N/A":           {},
}

// Monitor checks catalog deadlines against the current date.
type Monitor struct {
	catalog *catalog.Catalog
	log     *zap.Logger
	now     func() time.Time
}

func NewMonitor(cat *catalog.Catalog, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{catalog: cat, log: log, now: time.Now}
}

// Check scans jobs the user has shown interest in and returns alerts
// sorted most urgent first. Deadlines further out than warnDays are
// ignored; a non-positive warnDays falls back to the default window.
func (m *Monitor) Check(warnDays int) []Alert {
	if warnDays <= 0 {
		warnDays = defaultWarnDays
	}

	now := m.now()
	alerts := []Alert{}

	for _, job := range m.tracked() {
		if _, skip := placeholders[job.Deadline]; skip {
			continue
		}

		deadline, ok := parseDeadline(job.Deadline, now)
		if !ok {
			m.log.Debug("unparseable deadline",
				zap.String("deadline", job.Deadline),
				zap.String("url", job.URL),
			)
			continue
		}

		days := int(math.Floor(deadline.Sub(now).Hours() / 24))

		var urgency Urgency
		var action string
		switch {
		case days < 0:
			urgency = UrgencyExpired
			action = fmt.Sprintf("Deadline passed %d days ago - check if still accepting", -days)
		case days <= criticalDays:
			urgency = UrgencyCritical
			action = fmt.Sprintf("Only %d day(s) left! Apply NOW!", days)
		case days <= urgentDays:
			urgency = UrgencyUrgent
			action = fmt.Sprintf("Apply within %d days", days)
		case days <= warnDays:
			urgency = UrgencyWarning
			action = fmt.Sprintf("Deadline approaching in %d days", days)
		default:
			continue
		}

		title := job.Title
		if title == "" {
			title = "Unknown"
		}
		company := job.Company
		if company == "" {
			company = "Unknown"
		}
		location := job.City
		if location == "" {
			location = job.Location
		}

		alerts = append(alerts, Alert{
			Urgency:       urgency,
			JobURL:        job.URL,
			Title:         title,
			Company:       company,
			Deadline:      job.Deadline,
			DaysRemaining: days,
			Status:        job.Status,
			Action:        action,
			Location:      location,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Urgency.rank() != alerts[j].Urgency.rank() {
			return alerts[i].Urgency.rank() < alerts[j].Urgency.rank()
		}
		return alerts[i].DaysRemaining < alerts[j].DaysRemaining
	})

	return alerts
}

// Urgent returns only the alerts inside the critical and urgent
// windows. A non-positive maxDays falls back to the urgent window.
func (m *Monitor) Urgent(maxDays int) []Alert {
	if maxDays <= 0 {
		maxDays = defaultUrgentDays
	}

	urgent := []Alert{}
	for _, alert := range m.Check(maxDays) {
		if alert.Urgency == UrgencyCritical || alert.Urgency == UrgencyUrgent {
			urgent = append(urgent, alert)
		}
	}
	return urgent
}

// Stats counts tracked jobs and alerts over a two week window.
func (m *Monitor) Stats() *Stats {
	alerts := m.Check(statsWarnDays)

	stats := &Stats{
		TotalTracked: m.catalog.CountByStatus(catalog.StatusLiked) +
			m.catalog.CountByStatus(catalog.StatusMaybe),
		WithDeadlines: len(alerts),
	}
	for _, alert := range alerts {
		switch alert.Urgency {
		case UrgencyCritical:
			stats.Critical++
		case UrgencyUrgent:
			stats.Urgent++
		case UrgencyWarning:
			stats.Upcoming++
		case UrgencyExpired:
			stats.Expired++
		}
	}
	return stats
}

const reportBar = "=================================================="

// Report renders the alerts grouped by urgency class.
func (m *Monitor) Report(warnDays int) string {
	if warnDays <= 0 {
		warnDays = defaultWarnDays
	}

	alerts := m.Check(warnDays)
	if len(alerts) == 0 {
		return "No upcoming deadlines for your liked/maybe jobs."
	}

	byUrgency := map[Urgency][]Alert{}
	for _, alert := range alerts {
		byUrgency[alert.Urgency] = append(byUrgency[alert.Urgency], alert)
	}

	lines := []string{reportBar, "DEADLINE ALERTS", reportBar}

	if critical := byUrgency[UrgencyCritical]; len(critical) > 0 {
		lines = append(lines, "\n!!! CRITICAL - 2 DAYS OR LESS !!!")
		for _, a := range critical {
			lines = append(lines, deadlineLines(a)...)
		}
	}
	if urgent := byUrgency[UrgencyUrgent]; len(urgent) > 0 {
		lines = append(lines, "\n!! URGENT - 5 DAYS OR LESS !!")
		for _, a := range urgent {
			lines = append(lines, deadlineLines(a)...)
		}
	}
	if warnings := byUrgency[UrgencyWarning]; len(warnings) > 0 {
		lines = append(lines, fmt.Sprintf("\nUPCOMING (within %d days):", warnDays))
		for _, a := range warnings {
			lines = append(lines,
				fmt.Sprintf("  [%s] %s", strings.ToUpper(string(a.Status)), a.Title),
				fmt.Sprintf("           @ %s - %d days left", a.Company, a.DaysRemaining),
			)
		}
	}
	if expired := byUrgency[UrgencyExpired]; len(expired) > 0 {
		lines = append(lines, "\nEXPIRED (check if still accepting):")
		for _, a := range expired {
			lines = append(lines,
				fmt.Sprintf("  [%s] %s @ %s", strings.ToUpper(string(a.Status)), a.Title, a.Company),
				"           Deadline was: "+a.Deadline,
			)
		}
	}

	lines = append(lines, "\n"+reportBar)

	return strings.Join(lines, "\n")
}

func deadlineLines(a Alert) []string {
	return []string{
		fmt.Sprintf("  [%s] %s", strings.ToUpper(string(a.Status)), a.Title),
		"           @ " + a.Company,
		fmt.Sprintf("           Deadline: %s (%d days)", a.Deadline, a.DaysRemaining),
	}
}

// tracked returns the jobs whose deadlines are watched, in a stable
// order.
func (m *Monitor) tracked() []*catalog.Job {
	tracked := []*catalog.Job{}
	for _, status := range []catalog.Status{catalog.StatusLiked, catalog.StatusMaybe, catalog.StatusNew} {
		tracked = append(tracked, m.catalog.ByStatus(status)...)
	}
	return tracked
}
