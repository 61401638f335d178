package literature

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Rath300/research-collab/pkg/tracing"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Config selects and configures the sources a Searcher uses. CORE is only
// enabled when CoreAPIKey is set.
type Config struct {
	Client                ClientConfig
	ContactEmail          string
	CoreAPIKey            string
	SemanticScholarAPIKey string
}

// Results is a merged search. Failures maps a source name to the reason it
// contributed nothing.
type Results struct {
	Query    string            `json:"query"`
	Papers   []Paper           `json:"papers"`
	Failures map[string]string `json:"failures,omitempty"`
}

type Searcher struct {
	sources []Source
	logger  ectologger.Logger
}

// New builds a Searcher over every source cfg enables.
func New(cfg Config, logger ectologger.Logger) *Searcher {
	client := NewClient(cfg.Client, logger)

	sources := []Source{
		&CrossRef{Client: client, Mailto: cfg.ContactEmail},
		&SemanticScholar{Client: client, APIKey: cfg.SemanticScholarAPIKey},
		&PubMed{Client: client},
		&Arxiv{Client: client},
	}
	if cfg.CoreAPIKey != "" {
		sources = append(sources, &Core{Client: client, APIKey: cfg.CoreAPIKey})
	}
	return NewSearcher(logger, sources...)
}

func NewSearcher(logger ectologger.Logger, sources ...Source) *Searcher {
	return &Searcher{sources: sources, logger: logger}
}

// Sources names the configured sources in priority order.
func (s *Searcher) Sources() []string {
	return ectolinq.Map(s.sources, func(src Source) string { return src.Name() })
}

// Search queries the named sources, or all of them when names is empty, in
// parallel. A failing source is reported in Failures and does not fail the
// search. Papers found by several sources are merged, earlier sources
// winning, and the result is capped at limit.
func (s *Searcher) Search(ctx context.Context, query string, names []string, limit int) (*Results, error) {
	ctx, span := tracing.StartSpan(ctx, "literature.Search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "a search query is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	selected, err := s.selectSources(names)
	if err != nil {
		return nil, err
	}

	found := make([][]Paper, len(selected))
	errs := make([]error, len(selected))

	var wg sync.WaitGroup
	for i, src := range selected {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found[i], errs[i] = src.Search(ctx, query, limit)
		}()
	}
	wg.Wait()

	results := &Results{Query: query, Failures: map[string]string{}}
	var all []Paper
	for i, src := range selected {
		if errs[i] != nil {
			results.Failures[src.Name()] = errs[i].Error()
			s.logger.WithContext(ctx).WithError(errs[i]).WithField("source", src.Name()).Warn("literature source failed")
			continue
		}
		all = append(all, found[i]...)
	}

	results.Papers = ectolinq.Take(Merge(all), limit)
	if len(results.Failures) == 0 {
		results.Failures = nil
	}
	return results, nil
}

func (s *Searcher) selectSources(names []string) ([]Source, error) {
	if len(names) == 0 {
		return s.sources, nil
	}

	selected := ectolinq.Filter(s.sources, func(src Source) bool {
		return ectolinq.Contains(names, src.Name())
	})
	if unknown := ectolinq.Except(ectolinq.Distinct(names), s.Sources()); len(unknown) > 0 {
		return nil, httperror.NewHTTPErrorf(http.StatusBadRequest, "unknown literature sources: %s (available: %s)",
			strings.Join(unknown, ", "), strings.Join(s.Sources(), ", "))
	}
	return selected, nil
}

// Merge collapses papers that share a DOI, or a title when the DOI is
// unknown, keeping the first occurrence and filling its gaps from the
// others. Order of first occurrence is preserved.
func Merge(papers []Paper) []Paper {
	merged := make([]Paper, 0, len(papers))
	index := make(map[string]int, len(papers))

	for _, p := range papers {
		if strings.TrimSpace(p.Title) == "" && p.DOI == "" {
			continue
		}
		k := p.key()
		if i, ok := index[k]; ok {
			if merged[i].Source != p.Source && !ectolinq.Contains(merged[i].AlsoIn, p.Source) {
				merged[i].absorb(p)
			}
			continue
		}
		// a DOI-less copy may already be stored under its title
		if p.DOI != "" {
			if i, ok := index["title:"+normalizeTitle(p.Title)]; ok && merged[i].DOI == "" {
				merged[i].absorb(p)
				index[k] = i
				continue
			}
		}
		index[k] = len(merged)
		if p.DOI != "" {
			index["title:"+normalizeTitle(p.Title)] = len(merged)
		}
		merged = append(merged, p)
	}
	return merged
}
