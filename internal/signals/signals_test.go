package signals

import (
	"fmt"
	"testing"

	"github.com/jobsense/jobsense/internal/catalog"
)

func buildCatalog(jobs ...*catalog.Job) *catalog.Catalog {
	c := &catalog.Catalog{Jobs: map[string]*catalog.Job{}}
	for i, job := range jobs {
		url := job.URL
		if url == "" {
			url = fmt.Sprintf("https://example.com/%d", i)
			job.URL = url
		}
		c.Jobs[url] = job
	}
	return c
}

func TestExtractAggregates(t *testing.T) {
	t.Parallel()

	cat := buildCatalog(
		&catalog.Job{
			Title:       "Machine Learning Engineer",
			Company:     "  DeepMind ",
			City:        "London",
			Location:    "London, UK",
			Type:        "Full-time",
			Description: "Work with PyTorch and deep learning models",
			Status:      catalog.StatusLiked,
		},
		&catalog.Job{
			Title:       "ML Engineer for the team",
			Company:     "deepmind",
			Location:    "Cambridge",
			JobType:     "Graduate",
			AISummary:   "Machine learning research role",
			Status:      catalog.StatusLiked,
		},
		&catalog.Job{
			Title:   "Engineer",
			Company: "Unknown",
			Status:  catalog.StatusLiked,
		},
		&catalog.Job{
			Title:   "Sales Manager",
			Company: "SellCo",
			Status:  catalog.StatusDisliked,
		},
	)

	bundle := NewExtractor(Options{}).Extract(cat)

	if bundle.Stats.Liked != 3 || bundle.Stats.Disliked != 1 || bundle.Stats.Maybe != 0 {
		t.Fatalf("unexpected stats: %+v", bundle.Stats)
	}
	if bundle.Stats.TotalReviewed != 4 {
		t.Fatalf("expected 4 reviewed, got %d", bundle.Stats.TotalReviewed)
	}

	pos := bundle.Positive

	// Placeholder company is excluded, the real one is lowercased and merged.
	if len(pos.Companies) != 1 || pos.Companies[0] != (Count{Name: "deepmind", Count: 2}) {
		t.Fatalf("unexpected companies: %+v", pos.Companies)
	}

	// "for"/"the" are stop words, "ml" is below the length floor.
	byName := countIndex(pos.TitleKeywords)
	if byName["engineer"] != 3 {
		t.Fatalf("expected engineer counted 3 times, got %d", byName["engineer"])
	}
	if byName["machine"] != 1 || byName["learning"] != 1 {
		t.Fatalf("unexpected title keyword counts: %+v", pos.TitleKeywords)
	}
	for _, banned := range []string{"for", "the", "ml"} {
		if _, ok := byName[banned]; ok {
			t.Fatalf("expected %q to be filtered out", banned)
		}
	}
	if pos.TitleKeywords[0].Name != "engineer" {
		t.Fatalf("expected most frequent keyword first, got %+v", pos.TitleKeywords[0])
	}

	// Technologies match on substrings of description plus summary.
	tech := countIndex(pos.Technologies)
	if tech["pytorch"] != 1 || tech["deep learning"] != 1 {
		t.Fatalf("unexpected technologies: %+v", pos.Technologies)
	}
	if tech["machine learning"] != 1 || tech["research"] != 1 {
		t.Fatalf("expected summary text to be scanned: %+v", pos.Technologies)
	}

	// City wins over location; type wins over job_type.
	locs := countIndex(pos.Locations)
	if locs["london"] != 1 || locs["cambridge"] != 1 {
		t.Fatalf("unexpected locations: %+v", pos.Locations)
	}
	types := countIndex(pos.JobTypes)
	if types["full-time"] != 1 || types["graduate"] != 1 {
		t.Fatalf("unexpected job types: %+v", pos.JobTypes)
	}
}

func TestExtractOrdering(t *testing.T) {
	t.Parallel()

	jobs := []*catalog.Job{
		{Title: "x", Company: "Beta", Status: catalog.StatusLiked},
		{Title: "x", Company: "Alpha", Status: catalog.StatusLiked},
		{Title: "x", Company: "Gamma", Status: catalog.StatusLiked},
		{Title: "x", Company: "Gamma", Status: catalog.StatusLiked},
	}

	bundle := NewExtractor(Options{}).Extract(buildCatalog(jobs...))

	companies := bundle.Positive.Companies
	if len(companies) != 3 {
		t.Fatalf("expected 3 companies, got %d", len(companies))
	}
	if companies[0].Name != "gamma" {
		t.Fatalf("expected highest count first, got %+v", companies)
	}
	// Ties are broken alphabetically.
	if companies[1].Name != "alpha" || companies[2].Name != "beta" {
		t.Fatalf("expected alphabetical tie-break, got %+v", companies)
	}
}

func TestExtractTruncatesToTopN(t *testing.T) {
	t.Parallel()

	var jobs []*catalog.Job
	for i := 0; i < 8; i++ {
		jobs = append(jobs, &catalog.Job{
			Title:   "x",
			Company: fmt.Sprintf("company%d", i),
			Status:  catalog.StatusLiked,
		})
	}

	bundle := NewExtractor(Options{TopCompanies: 5}).Extract(buildCatalog(jobs...))

	if len(bundle.Positive.Companies) != 5 {
		t.Fatalf("expected companies truncated to 5, got %d", len(bundle.Positive.Companies))
	}
}

func TestDifferentialKeywords(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		likedJobs    int
		dislikedJobs int
		want         bool
		wantRatio    float64
	}{
		{name: "four against one qualifies", likedJobs: 4, dislikedJobs: 1, want: true, wantRatio: 4},
		{name: "three against two misses the ratio", likedJobs: 3, dislikedJobs: 2, want: false},
		{name: "five against two qualifies", likedJobs: 5, dislikedJobs: 2, want: true, wantRatio: 2.5},
		{name: "single occurrence is below the floor", likedJobs: 1, dislikedJobs: 0, want: false},
		{name: "two against zero qualifies", likedJobs: 2, dislikedJobs: 0, want: true, wantRatio: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var jobs []*catalog.Job
			for i := 0; i < tc.likedJobs; i++ {
				jobs = append(jobs, &catalog.Job{Title: "research scientist", Status: catalog.StatusLiked})
			}
			for i := 0; i < tc.dislikedJobs; i++ {
				jobs = append(jobs, &catalog.Job{Title: "research assistant", Status: catalog.StatusDisliked})
			}

			bundle := NewExtractor(Options{}).Extract(buildCatalog(jobs...))

			found := false
			for _, kw := range bundle.Differential.StrongPositives {
				if kw.Name == "research" {
					found = true
					if kw.Liked != tc.likedJobs || kw.Disliked != tc.dislikedJobs {
						t.Fatalf("unexpected counts: %+v", kw)
					}
					if kw.Ratio != tc.wantRatio {
						t.Fatalf("expected ratio %v, got %v", tc.wantRatio, kw.Ratio)
					}
				}
			}
			if found != tc.want {
				t.Fatalf("expected qualified=%v, got %v (%+v)", tc.want, found, bundle.Differential.StrongPositives)
			}
		})
	}
}

func TestDifferentialCompanies(t *testing.T) {
	t.Parallel()

	cat := buildCatalog(
		&catalog.Job{Title: "a", Company: "DeepMind", Status: catalog.StatusLiked},
		&catalog.Job{Title: "b", Company: "DeepMind", Status: catalog.StatusLiked},
		&catalog.Job{Title: "c", Company: "Evenly", Status: catalog.StatusLiked},
		&catalog.Job{Title: "d", Company: "Evenly", Status: catalog.StatusLiked},
		&catalog.Job{Title: "e", Company: "Evenly", Status: catalog.StatusDisliked},
		&catalog.Job{Title: "f", Company: "Evenly", Status: catalog.StatusDisliked},
		&catalog.Job{Title: "g", Company: "SellCo", Status: catalog.StatusDisliked},
		&catalog.Job{Title: "h", Company: "SellCo", Status: catalog.StatusDisliked},
		&catalog.Job{Title: "i", Company: "OnceCo", Status: catalog.StatusDisliked},
	)

	d := NewExtractor(Options{}).Extract(cat).Differential

	if len(d.LikedCompanies) != 1 || d.LikedCompanies[0].Name != "deepmind" {
		t.Fatalf("expected only deepmind liked, got %+v", d.LikedCompanies)
	}
	if d.LikedCompanies[0].Liked != 2 || d.LikedCompanies[0].Disliked != 0 {
		t.Fatalf("unexpected liked company counts: %+v", d.LikedCompanies[0])
	}

	// Evenly split companies and one-off dislikes stay out.
	if len(d.DislikedCompanies) != 1 || d.DislikedCompanies[0].Name != "sellco" {
		t.Fatalf("expected only sellco disliked, got %+v", d.DislikedCompanies)
	}
}

func TestAccuracy(t *testing.T) {
	t.Parallel()

	t.Run("no feedback", func(t *testing.T) {
		t.Parallel()

		m := NewExtractor(Options{}).Accuracy(buildCatalog())
		if m.TotalReviewed != 0 || m.Precision != 0 {
			t.Fatalf("expected zeroed metrics, got %+v", m)
		}
		if m.Message != "No feedback data yet" {
			t.Fatalf("unexpected message: %q", m.Message)
		}
	})

	t.Run("well calibrated", func(t *testing.T) {
		t.Parallel()

		var jobs []*catalog.Job
		for i := 0; i < 6; i++ {
			jobs = append(jobs, &catalog.Job{Status: catalog.StatusLiked})
		}
		for i := 0; i < 2; i++ {
			jobs = append(jobs, &catalog.Job{Status: catalog.StatusMaybe})
		}
		for i := 0; i < 2; i++ {
			jobs = append(jobs, &catalog.Job{Status: catalog.StatusDisliked})
		}

		m := NewExtractor(Options{}).Accuracy(buildCatalog(jobs...))
		if m.TotalReviewed != 10 {
			t.Fatalf("expected 10 reviewed, got %d", m.TotalReviewed)
		}
		if m.Precision != 0.6 || m.TruePositiveRate != 0.6 {
			t.Fatalf("unexpected precision: %+v", m)
		}
		if m.FalsePositiveRate != 0.2 || m.UncertainRate != 0.2 {
			t.Fatalf("unexpected rates: %+v", m)
		}
		if m.Message != "Excellent! Filtering is well-calibrated to your preferences" {
			t.Fatalf("unexpected message: %q", m.Message)
		}
	})

	t.Run("below review floor", func(t *testing.T) {
		t.Parallel()

		jobs := []*catalog.Job{
			{Status: catalog.StatusLiked},
			{Status: catalog.StatusDisliked},
		}

		m := NewExtractor(Options{}).Accuracy(buildCatalog(jobs...))
		if m.Message != "Not enough data yet (need 10+ reviews)" {
			t.Fatalf("unexpected message: %q", m.Message)
		}
	})
}

func TestAccuracyMessageBands(t *testing.T) {
	t.Parallel()

	cases := []struct {
		precision float64
		want      string
	}{
		{0.7, "Excellent! Filtering is well-calibrated to your preferences"},
		{0.6, "Excellent! Filtering is well-calibrated to your preferences"},
		{0.5, "Good calibration, with room for improvement"},
		{0.3, "Moderate accuracy - learning from your feedback to improve"},
		{0.1, "Low accuracy - significant learning needed"},
	}

	for _, tc := range cases {
		if got := accuracyMessage(tc.precision, 20); got != tc.want {
			t.Fatalf("precision %v: expected %q, got %q", tc.precision, tc.want, got)
		}
	}
}
