package literature

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	SourceArxiv           = "arxiv"
	SourceCrossRef        = "crossref"
	SourcePubMed          = "pubmed"
	SourceCore            = "core"
	SourceSemanticScholar = "semantic_scholar"
)

// Source is one external index.
type Source interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]Paper, error)
}

var markup = regexp.MustCompile(`<[^>]+>`)

func stripMarkup(s string) string {
	return cleanText(markup.ReplaceAllString(s, " "))
}

// Arxiv queries the arXiv Atom API.
type Arxiv struct {
	Client  *Client
	BaseURL string
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type arxivEntry struct {
	ID        string `xml:"http://www.w3.org/2005/Atom id"`
	Title     string `xml:"http://www.w3.org/2005/Atom title"`
	Summary   string `xml:"http://www.w3.org/2005/Atom summary"`
	Published string `xml:"http://www.w3.org/2005/Atom published"`
	Authors   []struct {
		Name string `xml:"http://www.w3.org/2005/Atom name"`
	} `xml:"http://www.w3.org/2005/Atom author"`
	DOI     string `xml:"http://arxiv.org/schemas/atom doi"`
	Journal string `xml:"http://arxiv.org/schemas/atom journal_ref"`
}

func (a *Arxiv) Name() string { return SourceArxiv }

func (a *Arxiv) Search(ctx context.Context, query string, limit int) ([]Paper, error) {
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(limit))

	var feed arxivFeed
	if err := a.Client.GetXML(ctx, SourceArxiv, baseOr(a.BaseURL, "https://export.arxiv.org")+"/api/query?"+params.Encode(), nil, &feed); err != nil {
		return nil, err
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p := Paper{
			Source:   SourceArxiv,
			Title:    cleanText(e.Title),
			Abstract: cleanText(e.Summary),
			DOI:      NormalizeDOI(e.DOI),
			URL:      strings.TrimSpace(e.ID),
			Venue:    cleanText(e.Journal),
		}
		for _, author := range e.Authors {
			p.Authors = append(p.Authors, cleanText(author.Name))
		}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
			p.PublishedAt = &t
			p.Year = t.Year()
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// CrossRef queries the CrossRef works API. Mailto puts requests in the
// polite pool.
type CrossRef struct {
	Client  *Client
	BaseURL string
	Mailto  string
}

type crossRefResponse struct {
	Message struct {
		Items []struct {
			DOI            string   `json:"DOI"`
			Title          []string `json:"title"`
			Abstract       string   `json:"abstract"`
			URL            string   `json:"URL"`
			ContainerTitle []string `json:"container-title"`
			Author         []struct {
				Given  string `json:"given"`
				Family string `json:"family"`
				Name   string `json:"name"`
			} `json:"author"`
			Issued struct {
				DateParts [][]int `json:"date-parts"`
			} `json:"issued"`
			ReferencedBy *int `json:"is-referenced-by-count"`
		} `json:"items"`
	} `json:"message"`
}

func (c *CrossRef) Name() string { return SourceCrossRef }

func (c *CrossRef) Search(ctx context.Context, query string, limit int) ([]Paper, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("rows", strconv.Itoa(limit))
	if c.Mailto != "" {
		params.Set("mailto", c.Mailto)
	}

	var resp crossRefResponse
	if err := c.Client.GetJSON(ctx, SourceCrossRef, baseOr(c.BaseURL, "https://api.crossref.org")+"/works?"+params.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	papers := make([]Paper, 0, len(resp.Message.Items))
	for _, item := range resp.Message.Items {
		p := Paper{
			Source:    SourceCrossRef,
			Title:     cleanText(first(item.Title)),
			Abstract:  stripMarkup(item.Abstract),
			DOI:       NormalizeDOI(item.DOI),
			URL:       item.URL,
			Venue:     cleanText(first(item.ContainerTitle)),
			Citations: item.ReferencedBy,
		}
		for _, a := range item.Author {
			name := cleanText(a.Given + " " + a.Family)
			if name == "" {
				name = cleanText(a.Name)
			}
			if name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		if len(item.Issued.DateParts) > 0 && len(item.Issued.DateParts[0]) > 0 {
			p.Year = item.Issued.DateParts[0][0]
		}
		if p.Title == "" {
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// PubMed runs an esearch for ids followed by an esummary for their details.
type PubMed struct {
	Client  *Client
	BaseURL string
}

type pubMedSearch struct {
	Result struct {
		IDs []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubMedSummary struct {
	Title           string `json:"title"`
	PubDate         string `json:"pubdate"`
	FullJournalName string `json:"fulljournalname"`
	Authors         []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

func (p *PubMed) Name() string { return SourcePubMed }

func (p *PubMed) Search(ctx context.Context, query string, limit int) ([]Paper, error) {
	base := baseOr(p.BaseURL, "https://eutils.ncbi.nlm.nih.gov") + "/entrez/eutils"

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(limit))
	params.Set("retmode", "json")

	var search pubMedSearch
	if err := p.Client.GetJSON(ctx, SourcePubMed, base+"/esearch.fcgi?"+params.Encode(), nil, &search); err != nil {
		return nil, err
	}
	if len(search.Result.IDs) == 0 {
		return []Paper{}, nil
	}

	params = url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(search.Result.IDs, ","))
	params.Set("retmode", "json")

	var summaries struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := p.Client.GetJSON(ctx, SourcePubMed, base+"/esummary.fcgi?"+params.Encode(), nil, &summaries); err != nil {
		return nil, err
	}

	papers := make([]Paper, 0, len(search.Result.IDs))
	for _, id := range search.Result.IDs {
		raw, ok := summaries.Result[id]
		if !ok {
			continue
		}
		var s pubMedSummary
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		paper := Paper{
			Source: SourcePubMed,
			Title:  cleanText(s.Title),
			Venue:  cleanText(s.FullJournalName),
			URL:    "https://pubmed.ncbi.nlm.nih.gov/" + id + "/",
			Year:   leadingYear(s.PubDate),
		}
		for _, a := range s.Authors {
			paper.Authors = append(paper.Authors, cleanText(a.Name))
		}
		for _, aid := range s.ArticleIDs {
			if aid.IDType == "doi" {
				paper.DOI = NormalizeDOI(aid.Value)
			}
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// Core queries the CORE v3 API, which needs an API key.
type Core struct {
	Client  *Client
	BaseURL string
	APIKey  string
}

type coreResponse struct {
	Results []struct {
		Title         string `json:"title"`
		Abstract      string `json:"abstract"`
		DOI           string `json:"doi"`
		YearPublished int    `json:"yearPublished"`
		DownloadURL   string `json:"downloadUrl"`
		Publisher     string `json:"publisher"`
		Authors       []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"results"`
}

func (c *Core) Name() string { return SourceCore }

func (c *Core) Search(ctx context.Context, query string, limit int) ([]Paper, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var resp coreResponse
	headers := map[string]string{"Authorization": "Bearer " + c.APIKey}
	if err := c.Client.GetJSON(ctx, SourceCore, baseOr(c.BaseURL, "https://api.core.ac.uk")+"/v3/search/works?"+params.Encode(), headers, &resp); err != nil {
		return nil, err
	}

	papers := make([]Paper, 0, len(resp.Results))
	for _, r := range resp.Results {
		p := Paper{
			Source:   SourceCore,
			Title:    cleanText(r.Title),
			Abstract: cleanText(r.Abstract),
			DOI:      NormalizeDOI(r.DOI),
			URL:      r.DownloadURL,
			Venue:    cleanText(r.Publisher),
			Year:     r.YearPublished,
		}
		for _, a := range r.Authors {
			p.Authors = append(p.Authors, cleanText(a.Name))
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// SemanticScholar queries the Semantic Scholar graph API. The key is optional.
type SemanticScholar struct {
	Client  *Client
	BaseURL string
	APIKey  string
}

type semanticScholarResponse struct {
	Data []struct {
		Title         string `json:"title"`
		Abstract      string `json:"abstract"`
		URL           string `json:"url"`
		Venue         string `json:"venue"`
		Year          int    `json:"year"`
		CitationCount *int   `json:"citationCount"`
		ExternalIDs   struct {
			DOI string `json:"DOI"`
		} `json:"externalIds"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"data"`
}

func (s *SemanticScholar) Name() string { return SourceSemanticScholar }

func (s *SemanticScholar) Search(ctx context.Context, query string, limit int) ([]Paper, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", "title,abstract,authors,year,externalIds,url,venue,citationCount")

	var headers map[string]string
	if s.APIKey != "" {
		headers = map[string]string{"x-api-key": s.APIKey}
	}

	var resp semanticScholarResponse
	if err := s.Client.GetJSON(ctx, SourceSemanticScholar, baseOr(s.BaseURL, "https://api.semanticscholar.org")+"/graph/v1/paper/search?"+params.Encode(), headers, &resp); err != nil {
		return nil, err
	}

	papers := make([]Paper, 0, len(resp.Data))
	for _, d := range resp.Data {
		p := Paper{
			Source:    SourceSemanticScholar,
			Title:     cleanText(d.Title),
			Abstract:  cleanText(d.Abstract),
			DOI:       NormalizeDOI(d.ExternalIDs.DOI),
			URL:       d.URL,
			Venue:     cleanText(d.Venue),
			Year:      d.Year,
			Citations: d.CitationCount,
		}
		for _, a := range d.Authors {
			p.Authors = append(p.Authors, cleanText(a.Name))
		}
		papers = append(papers, p)
	}
	return papers, nil
}

func baseOr(base, fallback string) string {
	if base == "" {
		return fallback
	}
	return strings.TrimSuffix(base, "/")
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// leadingYear reads the year from dates such as "2023 Jan 5".
func leadingYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return y
}
