package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Status is the user's triage decision for a tracked job.
type Status string

const (
	StatusNew       Status = "new"
	StatusLiked     Status = "liked"
	StatusMaybe     Status = "maybe"
	StatusDisliked  Status = "disliked"
	StatusApplied   Status = "applied"
	StatusInterview Status = "interview"
	StatusOffer     Status = "offer"
	StatusRejected  Status = "rejected"
)

// Reviewed reports whether the status carries user feedback usable for learning.
func (s Status) Reviewed() bool {
	return s == StatusLiked || s == StatusMaybe || s == StatusDisliked
}

// Job is a single tracked posting as written by the external tracker. The
// tracker owns the record lifecycle; this package only ever reads it.
type Job struct {
	URL         string `json:"url,omitempty" mapstructure:"url"`
	Title       string `json:"title,omitempty" mapstructure:"title"`
	Company     string `json:"company,omitempty" mapstructure:"company"`
	Location    string `json:"location,omitempty" mapstructure:"location"`
	City        string `json:"city,omitempty" mapstructure:"city"`
	Type        string `json:"type,omitempty" mapstructure:"type"`
	JobType     string `json:"job_type,omitempty" mapstructure:"job_type"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	AISummary   string `json:"ai_summary,omitempty" mapstructure:"ai_summary"`
	Status      Status `json:"status,omitempty" mapstructure:"status"`
	Deadline    string `json:"deadline,omitempty" mapstructure:"deadline"`
	SourceQuery string `json:"source_query,omitempty" mapstructure:"source_query"`
	DateFound   string `json:"date_found,omitempty" mapstructure:"date_found"`
	LastUpdated string `json:"last_updated,omitempty" mapstructure:"last_updated"`
}

// Catalog is the job catalog keyed by posting URL.
type Catalog struct {
	Jobs map[string]*Job
}

// Load reads the catalog file maintained by the external tracker. A missing
// file is not an error: learning simply has nothing to work with yet.
func Load(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{Jobs: map[string]*Job{}}, nil
		}
		return nil, fmt.Errorf("open job catalog: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat job catalog: %w", err)
	}

	if stat.Size() == 0 {
		return &Catalog{Jobs: map[string]*Job{}}, nil
	}

	records := make(map[string]map[string]any)
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		return nil, fmt.Errorf("parse job catalog %s: %w", path, err)
	}

	// The tracker's records carry fields this tool never reads, so each
	// entry goes through a tolerant decode instead of a rigid unmarshal.
	jobs := make(map[string]*Job, len(records))
	for url, fields := range records {
		if fields == nil {
			continue
		}
		job := &Job{}
		if err := mapstructure.Decode(fields, job); err != nil {
			return nil, fmt.Errorf("decode job %s: %w", url, err)
		}
		if job.URL == "" {
			job.URL = url
		}
		jobs[url] = job
	}

	return &Catalog{Jobs: jobs}, nil
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Jobs)
}

// ByStatus returns all jobs with the given status, ordered by URL so that
// downstream aggregation is deterministic.
func (c *Catalog) ByStatus(status Status) []*Job {
	if c == nil {
		return nil
	}

	jobs := make([]*Job, 0)
	for _, job := range c.Jobs {
		if job.Status == status {
			jobs = append(jobs, job)
		}
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].URL < jobs[j].URL })

	return jobs
}

// CountByStatus returns the number of jobs with the given status.
func (c *Catalog) CountByStatus(status Status) int {
	if c == nil {
		return 0
	}

	count := 0
	for _, job := range c.Jobs {
		if job.Status == status {
			count++
		}
	}
	return count
}
