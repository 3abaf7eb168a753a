package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/models"
)

const defaultCodaBaseURL = "https://coda.io/apis/v1"

// CodaSource fetches the SOP corpus from a Coda table. Every FetchAll walks
// the table's pages from the start; nothing is cached between requests.
type CodaSource struct {
	baseURL string
	docID   string
	tableID string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// CodaOption configures a CodaSource.
type CodaOption func(*CodaSource)

// WithCodaBaseURL overrides the API base URL (tests).
func WithCodaBaseURL(u string) CodaOption {
	return func(s *CodaSource) { s.baseURL = u }
}

// WithCodaHTTPClient overrides the HTTP client.
func WithCodaHTTPClient(c *http.Client) CodaOption {
	return func(s *CodaSource) { s.client = c }
}

// WithCodaLogger sets a logger.
func WithCodaLogger(l *zap.Logger) CodaOption {
	return func(s *CodaSource) { s.logger = l }
}

// NewCodaSource creates a source for one Coda table.
func NewCodaSource(docID, tableID, token string, opts ...CodaOption) *CodaSource {
	s := &CodaSource{
		baseURL: defaultCodaBaseURL,
		docID:   docID,
		tableID: tableID,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// codaRowsPage is one page of the rows listing.
type codaRowsPage struct {
	Items []struct {
		Values map[string]any `json:"values"`
	} `json:"items"`
	NextPageLink string `json:"nextPageLink"`
}

// FetchAll implements Source, following nextPageLink pagination.
func (s *CodaSource) FetchAll(ctx context.Context) ([]*models.SOPDocument, error) {
	url := fmt.Sprintf("%s/docs/%s/tables/%s/rows?useColumnNames=true", s.baseURL, s.docID, s.tableID)

	var docs []*models.SOPDocument
	for url != "" {
		page, err := s.fetchPage(ctx, url)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			docs = append(docs, rowToDocument(item.Values))
		}
		url = page.NextPageLink
	}

	s.logger.Info("corpus fetched", zap.Int("documents", len(docs)))
	return docs, nil
}

func (s *CodaSource) fetchPage(ctx context.Context, url string) (*codaRowsPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build corpus request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch corpus page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch corpus page: status %d", resp.StatusCode)
	}

	var page codaRowsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode corpus page: %w", err)
	}
	return &page, nil
}

// rowToDocument maps a Coda row's named columns onto an SOP document.
func rowToDocument(values map[string]any) *models.SOPDocument {
	title := stringValue(values["Title"])
	if title == "" {
		title = "Untitled SOP"
	}
	return &models.SOPDocument{
		Title:  title,
		Body:   stringValue(values["Content"]),
		Link:   stringValue(values["SOP Traceable Link"]),
		Status: stringValue(values["Status"]),
		Author: stringValue(values["Author"]),
		Tags:   models.NormalizeTags(tagValues(values["Tags Bot Result"])...),
	}
}

// stringValue converts a column value to a string; non-strings stringify.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

// tagValues flattens a tag column that may hold a delimited string or a list.
func tagValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, stringValue(item))
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", t)}
	}
}
