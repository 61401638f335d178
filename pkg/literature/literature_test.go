package literature_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rath300/research-collab/pkg/literature"
)

func nopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
}

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

const arxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <published>2024-01-02T10:00:00Z</published>
    <title>Graph Neural
      Networks for Protein Folding</title>
    <summary>  We fold proteins.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <arxiv:doi>10.1000/GNN.2024</arxiv:doi>
  </entry>
</feed>`

func TestArxivParsesAtom(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/query", r.URL.Path)
		assert.Equal(t, "all:protein folding", r.URL.Query().Get("search_query"))
		assert.Equal(t, "5", r.URL.Query().Get("max_results"))
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(arxivFeed))
	})

	src := &literature.Arxiv{Client: literature.NewClient(literature.ClientConfig{}, nopLogger()), BaseURL: srv.URL}
	papers, err := src.Search(context.Background(), "protein folding", 5)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	assert.Equal(t, "arxiv", p.Source)
	assert.Equal(t, "Graph Neural Networks for Protein Folding", p.Title)
	assert.Equal(t, "We fold proteins.", p.Abstract)
	assert.Equal(t, "10.1000/gnn.2024", p.DOI)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, p.Authors)
	assert.Equal(t, 2024, p.Year)
	require.NotNil(t, p.PublishedAt)
}

func TestCrossRefParsesWorks(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)
		assert.Equal(t, "team@example.org", r.URL.Query().Get("mailto"))
		_, _ = w.Write([]byte(`{"message":{"items":[
			{"DOI":"10.1000/GNN.2024","title":["Graph neural networks for protein folding"],
			 "abstract":"<jats:p>We fold <jats:italic>proteins</jats:italic>.</jats:p>",
			 "author":[{"given":"Ada","family":"Lovelace"},{"name":"Folding Consortium"}],
			 "container-title":["Journal of Folding"],"issued":{"date-parts":[[2024,1]]},
			 "is-referenced-by-count":12,"URL":"https://doi.org/10.1000/gnn.2024"},
			{"DOI":"10.1000/untitled","title":[]}
		]}}`))
	})

	src := &literature.CrossRef{Client: literature.NewClient(literature.ClientConfig{}, nopLogger()), BaseURL: srv.URL, Mailto: "team@example.org"}
	papers, err := src.Search(context.Background(), "protein", 5)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	p := papers[0]
	assert.Equal(t, "We fold proteins .", p.Abstract)
	assert.Equal(t, []string{"Ada Lovelace", "Folding Consortium"}, p.Authors)
	assert.Equal(t, "Journal of Folding", p.Venue)
	assert.Equal(t, 2024, p.Year)
	require.NotNil(t, p.Citations)
	assert.Equal(t, 12, *p.Citations)
}

func TestPubMedSearchesThenSummarises(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/entrez/eutils/esearch.fcgi":
			assert.Equal(t, "crispr", r.URL.Query().Get("term"))
			_, _ = w.Write([]byte(`{"esearchresult":{"idlist":["111","222"]}}`))
		case "/entrez/eutils/esummary.fcgi":
			assert.Equal(t, "111,222", r.URL.Query().Get("id"))
			_, _ = w.Write([]byte(`{"result":{"uids":["111","222"],
				"111":{"title":"CRISPR in practice.","pubdate":"2021 Mar 4","fulljournalname":"Gene Editing",
				       "authors":[{"name":"Doudna J"}],"articleids":[{"idtype":"pubmed","value":"111"},{"idtype":"doi","value":"10.1/CRISPR"}]}}}`))
		default:
			http.NotFound(w, r)
		}
	})

	src := &literature.PubMed{Client: literature.NewClient(literature.ClientConfig{}, nopLogger()), BaseURL: srv.URL}
	papers, err := src.Search(context.Background(), "crispr", 5)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	assert.Equal(t, "CRISPR in practice.", papers[0].Title)
	assert.Equal(t, 2021, papers[0].Year)
	assert.Equal(t, "10.1/crispr", papers[0].DOI)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/111/", papers[0].URL)
}

func TestCoreAndSemanticScholarSendKeys(t *testing.T) {
	core := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer core-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"results":[{"title":"Open Access Folding","doi":"10.2/oa","yearPublished":2020,"authors":[{"name":"Grace Hopper"}]}]}`))
	})
	s2 := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "s2-key", r.Header.Get("x-api-key"))
		assert.Contains(t, r.URL.Query().Get("fields"), "externalIds")
		_, _ = w.Write([]byte(`{"data":[{"title":"Folding at Scale","year":2022,"citationCount":3,"externalIds":{"DOI":"10.3/S2"},"authors":[{"name":"Katherine Johnson"}]}]}`))
	})

	client := literature.NewClient(literature.ClientConfig{}, nopLogger())

	papers, err := (&literature.Core{Client: client, BaseURL: core.URL, APIKey: "core-key"}).Search(context.Background(), "folding", 3)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "10.2/oa", papers[0].DOI)

	papers, err = (&literature.SemanticScholar{Client: client, BaseURL: s2.URL, APIKey: "s2-key"}).Search(context.Background(), "folding", 3)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "10.3/s2", papers[0].DOI)
	assert.Equal(t, 3, *papers[0].Citations)
}

func TestClientReportsHTTPStatus(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	src := &literature.CrossRef{Client: literature.NewClient(literature.ClientConfig{}, nopLogger()), BaseURL: srv.URL}
	_, err := src.Search(context.Background(), "anything", 1)

	var statusErr *literature.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestClientRateLimitsEachSource(t *testing.T) {
	var calls atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"message":{"items":[]}}`))
	})

	client := literature.NewClient(literature.ClientConfig{RatePerSecond: 5}, nopLogger())
	src := &literature.CrossRef{Client: client, BaseURL: srv.URL}

	start := time.Now()
	for range 3 {
		_, err := src.Search(context.Background(), "q", 1)
		require.NoError(t, err)
	}

	// a burst of one at 5/s spaces the second and third calls by 200ms each
	assert.GreaterOrEqual(t, time.Since(start), 350*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

type stubSource struct {
	name   string
	papers []literature.Paper
	err    error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Search(context.Context, string, int) ([]literature.Paper, error) {
	return s.papers, s.err
}

func TestSearchMergesAndIsolatesFailures(t *testing.T) {
	citations := 7
	searcher := literature.NewSearcher(nopLogger(),
		stubSource{name: "crossref", papers: []literature.Paper{
			{Source: "crossref", Title: "Folding Proteins", DOI: "10.1/fold", Venue: "Nature"},
			{Source: "crossref", Title: "Another Paper", DOI: "10.1/other"},
		}},
		stubSource{name: "arxiv", papers: []literature.Paper{
			{Source: "arxiv", Title: "Folding proteins!", Abstract: "preprint abstract"},
			{Source: "arxiv", Title: "Preprint Only"},
		}},
		stubSource{name: "semantic_scholar", papers: []literature.Paper{
			{Source: "semantic_scholar", Title: "Folding Proteins", DOI: "https://doi.org/10.1/FOLD", Citations: &citations},
		}},
		stubSource{name: "pubmed", err: errors.New("boom")},
	)

	results, err := searcher.Search(context.Background(), "  folding ", nil, 10)
	require.NoError(t, err)

	assert.Equal(t, "folding", results.Query)
	assert.Equal(t, map[string]string{"pubmed": "boom"}, results.Failures)
	require.Len(t, results.Papers, 3)

	folded := results.Papers[0]
	assert.Equal(t, "crossref", folded.Source)
	assert.Equal(t, "preprint abstract", folded.Abstract)
	assert.Equal(t, "Nature", folded.Venue)
	require.NotNil(t, folded.Citations)
	assert.Equal(t, 7, *folded.Citations)
	assert.ElementsMatch(t, []string{"arxiv", "semantic_scholar"}, folded.AlsoIn)

	assert.Equal(t, "Another Paper", results.Papers[1].Title)
	assert.Equal(t, "Preprint Only", results.Papers[2].Title)
}

func TestSearchSelectsSourcesAndLimits(t *testing.T) {
	searcher := literature.NewSearcher(nopLogger(),
		stubSource{name: "crossref", papers: []literature.Paper{{Source: "crossref", Title: "A"}, {Source: "crossref", Title: "B"}}},
		stubSource{name: "arxiv", papers: []literature.Paper{{Source: "arxiv", Title: "C"}}},
	)

	results, err := searcher.Search(context.Background(), "q", []string{"arxiv"}, 10)
	require.NoError(t, err)
	require.Len(t, results.Papers, 1)
	assert.Equal(t, "C", results.Papers[0].Title)
	assert.Nil(t, results.Failures)

	results, err = searcher.Search(context.Background(), "q", nil, 2)
	require.NoError(t, err)
	assert.Len(t, results.Papers, 2)

	_, err = searcher.Search(context.Background(), "q", []string{"scopus"}, 2)
	assert.True(t, httperror.IsBadRequest(err))

	_, err = searcher.Search(context.Background(), "   ", nil, 2)
	assert.True(t, httperror.IsBadRequest(err))
}

func TestNewEnablesCoreOnlyWithKey(t *testing.T) {
	without := literature.New(literature.Config{}, nopLogger())
	assert.Equal(t, []string{"crossref", "semantic_scholar", "pubmed", "arxiv"}, without.Sources())

	with := literature.New(literature.Config{CoreAPIKey: "k"}, nopLogger())
	assert.Contains(t, with.Sources(), "core")
}
