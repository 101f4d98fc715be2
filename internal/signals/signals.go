// Package signals extracts preference patterns from user feedback on
// tracked jobs. Every aggregate is ordered (count descending, then name)
// so that persisted documents and reports are stable between runs.
package signals

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jobsense/jobsense/internal/catalog"
	"github.com/jobsense/jobsense/internal/util"
)

const (
	defaultTopCompanies    = 15
	defaultTopTitleWords   = 30
	defaultTopTechnologies = 15
	defaultTopLocations    = 10
	defaultTopJobTypes     = 5

	defaultMinKeywordCount = 2
	defaultKeywordRatio    = 2.0
	defaultMinCompanyCount = 2
)

var titleWordRe = regexp.MustCompile(`\b[a-z]{3,}\b`)

func defaultTechKeywords() []string {
	return []string{
		"pytorch", "tensorflow", "python", "ml", "ai", "machine learning",
		"deep learning", "healthcare", "medical", "clinical", "biomedical",
		"data science", "computer vision", "nlp", "research", "graduate",
		"scheme", "programme", "junior", "entry", "intern",
	}
}

func defaultStopWords() []string {
	return []string{"the", "and", "for", "with", "this", "that", "are", "from", "will", "have", "has"}
}

func defaultPlaceholderCompanies() []string {
	return []string{"unknown", "linkedin job", "indeed listing", "glassdoor listing"}
}

// Count is a single aggregated value with its occurrence count.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Signals holds the aggregates extracted from one feedback class.
type Signals struct {
	Companies     []Count `json:"companies"`
	TitleKeywords []Count `json:"title_keywords"`
	Technologies  []Count `json:"technologies"`
	Locations     []Count `json:"locations"`
	JobTypes      []Count `json:"job_types"`
}

// KeywordSignal is a title keyword that strongly separates liked from
// disliked jobs.
type KeywordSignal struct {
	Name     string  `json:"name"`
	Liked    int     `json:"liked_count"`
	Disliked int     `json:"disliked_count"`
	Ratio    float64 `json:"ratio"`
}

// CompanySignal is a company the user has consistently liked or disliked.
type CompanySignal struct {
	Name     string `json:"name"`
	Liked    int    `json:"liked_count"`
	Disliked int    `json:"disliked_count"`
}

// Differential holds the signals that distinguish liked jobs from
// disliked ones.
type Differential struct {
	StrongPositives   []KeywordSignal `json:"strong_positives"`
	StrongNegatives   []KeywordSignal `json:"strong_negatives"`
	LikedCompanies    []CompanySignal `json:"liked_companies"`
	DislikedCompanies []CompanySignal `json:"disliked_companies"`
}

// Stats counts the feedback the extraction was based on.
type Stats struct {
	Liked         int `json:"liked_count"`
	Disliked      int `json:"disliked_count"`
	Maybe         int `json:"maybe_count"`
	TotalReviewed int `json:"total_reviewed"`
}

// Bundle is the complete extraction result for one catalog snapshot.
type Bundle struct {
	Positive     Signals      `json:"positive_signals"`
	Negative     Signals      `json:"negative_signals"`
	Uncertain    Signals      `json:"uncertain_signals"`
	Differential Differential `json:"differential_signals"`
	Stats        Stats        `json:"stats"`
}

// Options control aggregation caps and the thresholds of the
// differential rules. Zero fields fall back to defaults.
type Options struct {
	TopCompanies    int
	TopTitleWords   int
	TopTechnologies int
	TopLocations    int
	TopJobTypes     int

	// MinKeywordCount is the minimum number of occurrences a title
	// keyword needs on one side before it can qualify as differential.
	MinKeywordCount int
	// KeywordRatio is the multiplier the dominant side must exceed:
	// a keyword qualifies when count > other*KeywordRatio.
	KeywordRatio float64
	// MinCompanyCount is the minimum number of likes (or dislikes) a
	// company needs before it counts as a differential signal.
	MinCompanyCount int

	TechKeywords         []string
	StopWords            []string
	PlaceholderCompanies []string
}

// Extractor turns catalog feedback into preference signals.
type Extractor struct {
	opts         Options
	stopWords    map[string]struct{}
	placeholders map[string]struct{}
}

func NewExtractor(opts Options) *Extractor {
	if opts.TopCompanies == 0 {
		opts.TopCompanies = defaultTopCompanies
	}
	if opts.TopTitleWords == 0 {
		opts.TopTitleWords = defaultTopTitleWords
	}
	if opts.TopTechnologies == 0 {
		opts.TopTechnologies = defaultTopTechnologies
	}
	if opts.TopLocations == 0 {
		opts.TopLocations = defaultTopLocations
	}
	if opts.TopJobTypes == 0 {
		opts.TopJobTypes = defaultTopJobTypes
	}
	if opts.MinKeywordCount == 0 {
		opts.MinKeywordCount = defaultMinKeywordCount
	}
	if opts.KeywordRatio == 0 {
		opts.KeywordRatio = defaultKeywordRatio
	}
	if opts.MinCompanyCount == 0 {
		opts.MinCompanyCount = defaultMinCompanyCount
	}
	if opts.TechKeywords == nil {
		opts.TechKeywords = defaultTechKeywords()
	}
	if opts.StopWords == nil {
		opts.StopWords = defaultStopWords()
	}
	if opts.PlaceholderCompanies == nil {
		opts.PlaceholderCompanies = defaultPlaceholderCompanies()
	}

	e := &Extractor{
		opts:         opts,
		stopWords:    make(map[string]struct{}, len(opts.StopWords)),
		placeholders: make(map[string]struct{}, len(opts.PlaceholderCompanies)),
	}
	for _, w := range opts.StopWords {
		e.stopWords[w] = struct{}{}
	}
	for _, c := range opts.PlaceholderCompanies {
		e.placeholders[c] = struct{}{}
	}

	return e
}

// Extract analyzes all reviewed jobs in the catalog and returns the
// discovered signals.
func (e *Extractor) Extract(c *catalog.Catalog) *Bundle {
	liked := c.ByStatus(catalog.StatusLiked)
	disliked := c.ByStatus(catalog.StatusDisliked)
	maybe := c.ByStatus(catalog.StatusMaybe)

	return &Bundle{
		Positive:     e.aggregate(liked),
		Negative:     e.aggregate(disliked),
		Uncertain:    e.aggregate(maybe),
		Differential: e.differentiate(liked, disliked),
		Stats: Stats{
			Liked:         len(liked),
			Disliked:      len(disliked),
			Maybe:         len(maybe),
			TotalReviewed: len(liked) + len(disliked) + len(maybe),
		},
	}
}

func (e *Extractor) aggregate(jobs []*catalog.Job) Signals {
	companies := map[string]int{}
	titleWords := map[string]int{}
	technologies := map[string]int{}
	locations := map[string]int{}
	jobTypes := map[string]int{}

	for _, job := range jobs {
		company := strings.TrimSpace(strings.ToLower(job.Company))
		if _, placeholder := e.placeholders[company]; company != "" && !placeholder {
			companies[company]++
		}

		for _, word := range titleWordRe.FindAllString(strings.ToLower(job.Title), -1) {
			if _, stop := e.stopWords[word]; !stop {
				titleWords[word]++
			}
		}

		desc := strings.ToLower(job.Description + " " + job.AISummary)
		for _, tech := range e.opts.TechKeywords {
			if strings.Contains(desc, tech) {
				technologies[tech]++
			}
		}

		location := job.City
		if location == "" {
			location = job.Location
		}
		if location = strings.ToLower(location); location != "" {
			locations[location]++
		}

		jobType := job.Type
		if jobType == "" {
			jobType = job.JobType
		}
		if jobType = strings.ToLower(jobType); jobType != "" {
			jobTypes[jobType]++
		}
	}

	return Signals{
		Companies:     topCounts(companies, e.opts.TopCompanies),
		TitleKeywords: topCounts(titleWords, e.opts.TopTitleWords),
		Technologies:  topCounts(technologies, e.opts.TopTechnologies),
		Locations:     topCounts(locations, e.opts.TopLocations),
		JobTypes:      topCounts(jobTypes, e.opts.TopJobTypes),
	}
}

// differentiate compares the truncated aggregates of both sides, so a
// keyword buried below the per-side cap never becomes a differential.
func (e *Extractor) differentiate(liked, disliked []*catalog.Job) Differential {
	likedSignals := e.aggregate(liked)
	dislikedSignals := e.aggregate(disliked)

	likedWords := countIndex(likedSignals.TitleKeywords)
	dislikedWords := countIndex(dislikedSignals.TitleKeywords)
	likedCompanies := countIndex(likedSignals.Companies)
	dislikedCompanies := countIndex(dislikedSignals.Companies)

	d := Differential{
		StrongPositives:   []KeywordSignal{},
		StrongNegatives:   []KeywordSignal{},
		LikedCompanies:    []CompanySignal{},
		DislikedCompanies: []CompanySignal{},
	}

	for _, kw := range likedSignals.TitleKeywords {
		other := dislikedWords[kw.Name]
		if kw.Count >= e.opts.MinKeywordCount && float64(kw.Count) > float64(other)*e.opts.KeywordRatio {
			d.StrongPositives = append(d.StrongPositives, KeywordSignal{
				Name:     kw.Name,
				Liked:    kw.Count,
				Disliked: other,
				Ratio:    util.Round2(float64(kw.Count) / float64(max(other, 1))),
			})
		}
	}

	for _, kw := range dislikedSignals.TitleKeywords {
		other := likedWords[kw.Name]
		if kw.Count >= e.opts.MinKeywordCount && float64(kw.Count) > float64(other)*e.opts.KeywordRatio {
			d.StrongNegatives = append(d.StrongNegatives, KeywordSignal{
				Name:     kw.Name,
				Liked:    other,
				Disliked: kw.Count,
				Ratio:    util.Round2(float64(kw.Count) / float64(max(other, 1))),
			})
		}
	}

	for _, company := range likedSignals.Companies {
		other := dislikedCompanies[company.Name]
		if company.Count >= e.opts.MinCompanyCount && company.Count > other {
			d.LikedCompanies = append(d.LikedCompanies, CompanySignal{
				Name:     company.Name,
				Liked:    company.Count,
				Disliked: other,
			})
		}
	}

	for _, company := range dislikedSignals.Companies {
		other := likedCompanies[company.Name]
		if company.Count >= e.opts.MinCompanyCount && company.Count > other {
			d.DislikedCompanies = append(d.DislikedCompanies, CompanySignal{
				Name:     company.Name,
				Liked:    other,
				Disliked: company.Count,
			})
		}
	}

	return d
}

// topCounts orders a counter by count descending with ties broken by
// name, truncated to n entries.
func topCounts(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for name, count := range counts {
		out = append(out, Count{Name: name, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}

func countIndex(counts []Count) map[string]int {
	idx := make(map[string]int, len(counts))
	for _, c := range counts {
		idx[c.Name] = c.Count
	}
	return idx
}
