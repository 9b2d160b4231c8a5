package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rfp-radar/internal/cascade"
	"github.com/sells-group/rfp-radar/internal/model"
	"github.com/sells-group/rfp-radar/internal/resilience"
	"github.com/sells-group/rfp-radar/pkg/brightdata"
	"github.com/sells-group/rfp-radar/pkg/perplexity"
)

// Candidate is one organization to evaluate for an open opportunity.
type Candidate struct {
	Organization    string               `json:"organization"`
	Website         string               `json:"website,omitempty"`
	Category        model.SignalCategory `json:"category"`
	PriorConfidence float64              `json:"prior_confidence"`
}

// ResultStatus is the terminal disposition of one candidate.
type ResultStatus string

const (
	// ResultAccepted means an opportunity was found, either self-attested by
	// the primary source or validated by the cascade.
	ResultAccepted ResultStatus = "accepted"
	// ResultNone means nothing was found to evaluate. Not an error.
	ResultNone ResultStatus = "none"
	// ResultRejected means a fallback hit was evaluated by the cascade and
	// definitively rejected.
	ResultRejected ResultStatus = "rejected"
)

// Result is the pipeline's per-candidate output. Outcome is set only on the
// fallback path; primary-source hits are accepted without cascade validation.
type Result struct {
	Candidate   Candidate             `json:"candidate"`
	Status      ResultStatus          `json:"status"`
	Source      string                `json:"source"`
	PrimaryMode PrimaryStatus         `json:"primary_mode,omitempty"`
	Attempts    []Attempt             `json:"attempts"`
	Signal      *model.Signal         `json:"signal,omitempty"`
	Outcome     *model.CascadeOutcome `json:"outcome,omitempty"`
	Reason      string                `json:"reason,omitempty"`
}

// Accepted reports whether the candidate yielded an opportunity.
func (r Result) Accepted() bool {
	return r.Status == ResultAccepted
}

// PrimaryPromptBuilder produces the discovery prompt sent to the primary
// source for a candidate.
type PrimaryPromptBuilder func(c Candidate) string

// DefaultPrimaryPrompt asks for a strict status verdict with the candidate's
// identifying details inlined.
func DefaultPrimaryPrompt(c Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search for an active RFP, solicitation, or vendor-selection process at %q", c.Organization)
	if c.Website != "" {
		fmt.Fprintf(&b, " (website: %s)", c.Website)
	}
	b.WriteString(".\n\n")
	b.WriteString("Respond with JSON only:\n")
	b.WriteString(`{"status": "FOUND_DIRECT" | "FOUND_INDIRECT" | "NONE", "details": "<one sentence>"}` + "\n\n")
	b.WriteString("FOUND_DIRECT: you located the solicitation document or posting itself.\n")
	b.WriteString("FOUND_INDIRECT: credible secondary reporting of an active process.\n")
	b.WriteString("NONE: no evidence of an active process.")
	return b.String()
}

// Pipeline runs the two-source discovery flow: primary attestation first,
// tiered web search as fallback, cascade validation on fallback hits only.
type Pipeline struct {
	primary    perplexity.Client
	search     brightdata.Client
	cascade    *cascade.Cascade
	tiers      []QueryTier
	prompt     PrimaryPromptBuilder
	retry      resilience.Policy
	breaker    *resilience.Breaker
	maxResults int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithQueryTiers replaces the default fallback search ladder.
func WithQueryTiers(tiers []QueryTier) Option {
	return func(p *Pipeline) { p.tiers = tiers }
}

// WithPrimaryPrompt replaces the default primary-source prompt builder.
func WithPrimaryPrompt(b PrimaryPromptBuilder) Option {
	return func(p *Pipeline) { p.prompt = b }
}

// WithRetryPolicy replaces the per-search-attempt retry policy.
func WithRetryPolicy(policy resilience.Policy) Option {
	return func(p *Pipeline) { p.retry = policy }
}

// WithRetryAttempts overrides how many times each search call is attempted
// while keeping the transient-only failure classification. Non-positive
// values keep the default.
func WithRetryAttempts(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.retry.MaxAttempts = n
		}
	}
}

// WithBreaker installs a circuit breaker around the search client.
func WithBreaker(b *resilience.Breaker) Option {
	return func(p *Pipeline) { p.breaker = b }
}

// WithMaxResults bounds how many results each search tier requests.
// Non-positive values keep the default.
func WithMaxResults(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxResults = n
		}
	}
}

// New constructs a Pipeline. All three collaborators are required.
func New(primary perplexity.Client, search brightdata.Client, casc *cascade.Cascade, opts ...Option) (*Pipeline, error) {
	if primary == nil {
		return nil, eris.New("discovery: primary client is required")
	}
	if search == nil {
		return nil, eris.New("discovery: search client is required")
	}
	if casc == nil {
		return nil, eris.New("discovery: cascade is required")
	}

	p := &Pipeline{
		primary:    primary,
		search:     search,
		cascade:    casc,
		tiers:      DefaultQueryTiers(),
		prompt:     DefaultPrimaryPrompt,
		retry:      searchRetryPolicy(),
		breaker:    resilience.NewBreaker(resilience.BreakerConfig{}),
		maxResults: 5,
	}
	for _, o := range opts {
		o(p)
	}
	if len(p.tiers) == 0 {
		return nil, eris.New("discovery: fallback query tier list is empty")
	}
	return p, nil
}

// searchRetryPolicy retries transient search failures only, with the
// standard exponential backoff.
func searchRetryPolicy() resilience.Policy {
	p := resilience.DefaultPolicy()
	p.ShouldRetry = func(err error) bool {
		var se *brightdata.SearchError
		if errors.As(err, &se) && se.StatusCode != 0 {
			return resilience.IsTransientHTTPStatus(se.StatusCode)
		}
		return resilience.IsTransient(err)
	}
	p.OnRetry = resilience.RetryLogger("brightdata", "search")
	return p
}

// Discover evaluates one candidate. External failures are absorbed: the
// worst case is a ResultNone, never an error return to the caller.
func (p *Pipeline) Discover(ctx context.Context, c Candidate) Result {
	res := Result{Candidate: c, Status: ResultNone}

	status, details, err := p.askPrimary(ctx, c)
	if err != nil {
		// Primary failure is treated like NONE so the candidate still gets
		// a fallback pass.
		zap.L().Warn("discovery: primary source failed, falling back to search",
			zap.String("organization", c.Organization),
			zap.Error(err),
		)
		res.Attempts = append(res.Attempts, Attempt{SourceTier: "primary", Status: StatusError, Err: err.Error()})
	} else if status != PrimaryNone {
		res.Status = ResultAccepted
		res.Source = "primary"
		res.PrimaryMode = status
		res.Reason = details
		res.Attempts = append(res.Attempts, Attempt{SourceTier: "primary", Status: StatusFound})
		return res
	} else {
		res.Attempts = append(res.Attempts, Attempt{SourceTier: "primary", Status: StatusNone})
	}

	hit, tierName, attempts := p.searchFallback(ctx, c)
	res.Attempts = append(res.Attempts, attempts...)
	if len(hit) == 0 {
		return res
	}

	sig := p.signalFromResults(c, tierName, hit)
	res.Signal = &sig

	outcome := p.cascade.Validate(ctx, sig)
	res.Outcome = &outcome
	res.Source = tierName
	if outcome.Validated() {
		res.Status = ResultAccepted
		res.Reason = outcome.Rationale
	} else {
		// No backtracking into later fallback tiers once the cascade has
		// ruled on a hit.
		res.Status = ResultRejected
		res.Reason = outcome.Reason
	}
	return res
}

// DiscoverBatch evaluates candidates with bounded concurrency, preserving
// input order in the result slice.
func (p *Pipeline) DiscoverBatch(ctx context.Context, candidates []Candidate, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = 5
	}

	results := make([]Result, len(candidates))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, c := range candidates {
		g.Go(func() error {
			results[i] = p.discoverIsolated(gCtx, c)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Pipeline) discoverIsolated(ctx context.Context, c Candidate) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("discovery: candidate processing panicked",
				zap.String("organization", c.Organization),
				zap.Any("panic", r),
			)
			res = Result{
				Candidate: c,
				Status:    ResultNone,
				Reason:    fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return p.Discover(ctx, c)
}

func (p *Pipeline) askPrimary(ctx context.Context, c Candidate) (PrimaryStatus, string, error) {
	resp, err := p.primary.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "user", Content: p.prompt(c)},
		},
	})
	if err != nil {
		return PrimaryNone, "", eris.Wrap(err, "discovery: primary completion")
	}

	status, details := parsePrimary(resp.Text())
	return status, details, nil
}

// searchFallback walks the query tiers in order, returning the first tier's
// results. A tier's transport error is logged and treated as no results for
// that tier; the walk continues.
func (p *Pipeline) searchFallback(ctx context.Context, c Candidate) ([]brightdata.Result, string, []Attempt) {
	attempts := make([]Attempt, 0, len(p.tiers))

	for _, tier := range p.tiers {
		query := tier.Build(c.Organization)

		results, err := resilience.Guard(ctx, p.breaker, func(ctx context.Context) ([]brightdata.Result, error) {
			return resilience.RetryVal(ctx, p.retry, func(ctx context.Context) ([]brightdata.Result, error) {
				return p.search.Search(ctx, query, p.maxResults)
			})
		})
		if err != nil {
			zap.L().Warn("discovery: fallback search tier failed",
				zap.String("organization", c.Organization),
				zap.String("tier", tier.Name),
				zap.Error(err),
			)
			attempts = append(attempts, Attempt{SourceTier: tier.Name, Status: StatusError, Err: err.Error()})
			continue
		}
		if len(results) == 0 {
			attempts = append(attempts, Attempt{SourceTier: tier.Name, Status: StatusNone})
			continue
		}

		attempts = append(attempts, Attempt{SourceTier: tier.Name, Status: StatusFound, Results: results})
		return results, tier.Name, attempts
	}

	return nil, "", attempts
}

// signalFromResults builds the cascade input from a fallback hit. Result rank
// maps to evidence credibility: search relevance is the only ordering signal
// available at this stage.
func (p *Pipeline) signalFromResults(c Candidate, tierName string, results []brightdata.Result) model.Signal {
	category := c.Category
	if category == "" {
		category = model.CategoryRFPPosting
	}
	prior := c.PriorConfidence
	if prior <= 0 {
		prior = 0.5
	}

	sig := model.NewSignal(c.Organization, category, prior)
	sig.Metadata = map[string]string{"discovery_source": tierName}

	now := time.Now().UTC()
	for i, r := range results {
		if i >= 3 {
			break
		}
		sig.Evidence = append(sig.Evidence, model.Evidence{
			Source:      "web_search",
			URL:         r.URL,
			Content:     strings.TrimSpace(r.Title + " " + r.Snippet),
			Credibility: 0.6 - 0.1*float64(i),
			CollectedAt: now,
		})
	}
	return sig
}
