//go:build ignore

// Package main generates a synthetic notes corpus for benchmarking.
// Usage: go run scripts/generate-test-corpus.go -notes 1000 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	numNotes  = flag.Int("notes", 1000, "Number of notes to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	people = []string{
		"Alice Smith", "Bob Jones", "Carol White", "Dan Brown", "Eve Davis",
		"Frank Miller", "Grace Lee", "Henry Wilson", "Ivy Moore", "Jack Taylor",
	}
	tags = []string{
		"planning", "roadmap", "hiring", "incident", "postgres", "launch",
		"mobile", "budget", "design", "one-on-one", "retro", "security",
	}
	subjects = []string{
		"Weekly sync", "Roadmap review", "Hiring debrief", "Incident review",
		"Launch readiness", "Budget check-in", "Design critique", "Retro",
		"Security review", "Customer call",
	}
	sentences = []string{
		"We agreed to revisit the estimate once the design is final.",
		"The replication lag alert fired twice during the week.",
		"Two candidates moved to the onsite stage.",
		"Beta testers reported crashes on older devices.",
		"Marketing needs the release date by Friday.",
		"The budget for contractors is frozen until next quarter.",
		"Action item: document the failover runbook.",
		"Customer feedback favours the simpler onboarding flow.",
		"We will split the migration into three smaller steps.",
		"Follow up with legal about the data retention policy.",
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	var total int64
	for i := 0; i < *numNotes; i++ {
		day := start.AddDate(0, 0, i/3)
		subject := subjects[rng.Intn(len(subjects))]
		name := fmt.Sprintf("%s-%s-%04d.md", day.Format("2006-01-02"), slug(subject), i)
		path := filepath.Join(*outputDir, day.Format("2006-01"), name)

		content := note(rng, subject, day)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "create dir: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
		total += int64(len(content))
	}

	fmt.Printf("Generated %d notes (%.1f KB) in %s\n", *numNotes, float64(total)/1024, *outputDir)
}

func note(rng *rand.Rand, subject string, day time.Time) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", subject)
	fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(pick(rng, tags, 1+rng.Intn(3)), ", "))
	fmt.Fprintf(&b, "attendees: [%s]\n", strings.Join(pick(rng, people, 2+rng.Intn(4)), ", "))
	fmt.Fprintf(&b, "created: %s\n", day.Format(time.RFC3339))
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", subject)
	for _, s := range pick(rng, sentences, 3+rng.Intn(5)) {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return b.String()
}

// pick returns n distinct elements of from in random order.
func pick(rng *rand.Rand, from []string, n int) []string {
	idx := rng.Perm(len(from))
	n = min(n, len(from))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = from[idx[i]]
	}
	return out
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}
