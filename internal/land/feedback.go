package land

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/alanmeadows/land/internal/provider"
)

// FeedbackRules configures the Review-Feedback Reconciler.
type FeedbackRules struct {
	Enabled bool
	// Reviewers is the allow-list of automated reviewer logins.
	Reviewers []string
	// BlockingKeywords mark a comment critical when present as a whole word.
	BlockingKeywords []string
}

// Reconciler collects automated-reviewer feedback on a PR.
type Reconciler struct {
	backend  provider.PRBackend
	rules    FeedbackRules
	keywords []*regexp.Regexp
}

// NewReconciler creates a reconciler for rules.
func NewReconciler(backend provider.PRBackend, rules FeedbackRules) *Reconciler {
	r := &Reconciler{backend: backend, rules: rules}
	for _, kw := range rules.BlockingKeywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		r.keywords = append(r.keywords, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return r
}

// Analyze lists current comments from allow-listed reviewers and classifies
// each one. Nothing is cached: every call reflects the PR as it is now.
// Critical items sort first.
func (r *Reconciler) Analyze(ctx context.Context, ref *provider.PRInfo) ([]FeedbackItem, error) {
	comments, err := r.backend.GetComments(ctx, ref)
	if err != nil {
		return nil, &ExternalError{Op: "list review comments", Err: err}
	}

	var items []FeedbackItem
	for _, c := range comments {
		if !r.isReviewer(c.Author) {
			continue
		}
		items = append(items, FeedbackItem{
			Author:   c.Author,
			Kind:     c.Kind,
			FilePath: c.FilePath,
			Line:     c.Line,
			Body:     c.Body,
			Severity: r.Classify(c.Body),
			URL:      c.URL,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Severity == SeverityCritical && items[j].Severity != SeverityCritical
	})
	return items, nil
}

// Classify applies the lexical rule: any blocking keyword makes a comment critical.
func (r *Reconciler) Classify(body string) Severity {
	for _, re := range r.keywords {
		if re.MatchString(body) {
			return SeverityCritical
		}
	}
	return SeveritySuggestion
}

// isReviewer matches author against the allow-list. The "[bot]" suffix is
// optional on either side.
func (r *Reconciler) isReviewer(author string) bool {
	a := strings.TrimSuffix(strings.ToLower(author), "[bot]")
	for _, rv := range r.rules.Reviewers {
		if a == strings.TrimSuffix(strings.ToLower(strings.TrimSpace(rv)), "[bot]") {
			return true
		}
	}
	return false
}

// CountCritical returns how many items are critical.
func CountCritical(items []FeedbackItem) int {
	n := 0
	for _, it := range items {
		if it.Severity == SeverityCritical {
			n++
		}
	}
	return n
}
