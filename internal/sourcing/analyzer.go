// Package sourcing produces AI supply-chain intelligence for rare drugs and
// runs the help-desk assistant chat.
package sourcing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/easygopharm/internal/models"
	"github.com/wolfman30/easygopharm/internal/observability/metrics"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

const (
	// DegradedAnalysis is returned whenever the grounded provider cannot answer.
	DegradedAnalysis = "System Error: Unable to perform real-time sourcing intelligence. The AI agent is currently unavailable. Please verify API configuration."
	// EmptyAnalysis is returned when the provider answers with no text.
	EmptyAnalysis = "Analysis could not be generated."

	defaultSourceTitle = "Official Source"
)

// GroundedResponse is the raw answer of a search-grounded model call.
type GroundedResponse struct {
	Text    string
	Sources []models.GroundingSource
}

// GroundedModel runs one prompt with web-search grounding enabled.
type GroundedModel interface {
	Generate(ctx context.Context, prompt string) (GroundedResponse, error)
}

// Analysis is the sourcing report returned to the admin console.
type Analysis struct {
	Text    string                   `json:"text"`
	Sources []models.GroundingSource `json:"sources"`
}

// Archiver persists finished reports. Failures never reach the caller.
type Archiver interface {
	Enabled() bool
	ArchiveReport(ctx context.Context, report Report) error
}

// Analyzer builds the logistics report for a drug.
type Analyzer struct {
	model   GroundedModel
	archive Archiver
	metrics *metrics.AIMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewAnalyzer wires an analyzer. A nil model makes every call degrade.
func NewAnalyzer(model GroundedModel, archive Archiver, m *metrics.AIMetrics, logger *logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Analyzer{
		model:   model,
		archive: archive,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Analyze never fails: provider problems collapse into DegradedAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, drugName, notes string) Analysis {
	if a == nil || a.model == nil {
		if a != nil {
			a.metrics.ObserveAnalysis("unconfigured")
		}
		return Analysis{Text: DegradedAnalysis, Sources: []models.GroundingSource{}}
	}

	resp, err := a.model.Generate(ctx, BuildAnalysisPrompt(drugName, notes))
	if err != nil {
		a.logger.Warn("sourcing analysis failed", "drug", drugName, "error", err)
		a.metrics.ObserveAnalysis("error")
		return Analysis{Text: DegradedAnalysis, Sources: []models.GroundingSource{}}
	}

	text := strings.TrimSpace(resp.Text)
	outcome := "ok"
	if text == "" {
		text = EmptyAnalysis
		outcome = "empty"
	}
	a.metrics.ObserveAnalysis(outcome)

	result := Analysis{Text: text, Sources: DedupeSources(resp.Sources)}
	a.archiveReport(ctx, drugName, notes, result)
	return result
}

func (a *Analyzer) archiveReport(ctx context.Context, drugName, notes string, analysis Analysis) {
	if a.archive == nil || !a.archive.Enabled() {
		return
	}
	report := Report{
		ID:          uuid.NewString(),
		DrugName:    drugName,
		Notes:       notes,
		Text:        analysis.Text,
		Sources:     analysis.Sources,
		GeneratedAt: a.now().UTC(),
	}
	if err := a.archive.ArchiveReport(ctx, report); err != nil {
		a.logger.Warn("failed to archive sourcing report", "report_id", report.ID, "error", err)
	}
}

// BuildAnalysisPrompt renders the fixed report template for one drug.
func BuildAnalysisPrompt(drugName, notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = "None provided"
	}
	var b strings.Builder
	b.WriteString("Act as the senior pharmaceutical logistics officer for EasygoPharm.\n")
	fmt.Fprintf(&b, "Drug: %s\n", strings.TrimSpace(drugName))
	fmt.Fprintf(&b, "Requester context: %s\n\n", notes)
	b.WriteString("Write a concise supply-chain intelligence report with these sections:\n")
	b.WriteString("1. Regulatory status, including any FDA or EMA orphan drug designation.\n")
	b.WriteString("2. Global manufacturing hotspots and any known shortages.\n")
	b.WriteString("3. Cold-chain and other specialized logistics requirements.\n")
	b.WriteString("4. Import and export complexity.\n\n")
	b.WriteString("Use Google Search to include the most recent supply chain news for this drug.")
	return b.String()
}

// DedupeSources drops empty URIs and collapses duplicates. Each URI keeps the
// position where it first appeared and the title from its last occurrence.
func DedupeSources(in []models.GroundingSource) []models.GroundingSource {
	out := make([]models.GroundingSource, 0, len(in))
	index := make(map[string]int, len(in))
	for _, src := range in {
		uri := strings.TrimSpace(src.URI)
		if uri == "" {
			continue
		}
		title := strings.TrimSpace(src.Title)
		if title == "" {
			title = defaultSourceTitle
		}
		if i, ok := index[uri]; ok {
			out[i].Title = title
			continue
		}
		index[uri] = len(out)
		out = append(out, models.GroundingSource{Title: title, URI: uri})
	}
	return out
}
