package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppetrov/opinia/internal/model"
)

// HTMLExportStore reads feedback records from an HTML export file.
// Helpdesk tools commonly export ticket queues as a standalone HTML page,
// either as a table (id, source, message, optional timestamp columns) or as
// item blocks annotated with data-feedback-id attributes.
type HTMLExportStore struct {
	path string
}

// NewHTMLExportStore creates an HTML-export-backed store
func NewHTMLExportStore(path string) *HTMLExportStore {
	return &HTMLExportStore{path: path}
}

// Kind identifies the backend
func (s *HTMLExportStore) Kind() string {
	return "html"
}

// Query parses the export and returns every recognizable record
func (s *HTMLExportStore) Query(ctx context.Context) ([]model.FeedbackRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading HTML export %s: %w", s.path, err)
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML export %s: %w", s.path, err)
	}

	return parseExport(doc), nil
}

// parseExport walks the document collecting records from table rows and
// data-feedback-id blocks. Rows that do not carry a numeric id (header rows,
// layout tables) are skipped rather than treated as errors.
func parseExport(doc *html.Node) []model.FeedbackRecord {
	records := []model.FeedbackRecord{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "tr":
				if r, ok := recordFromRow(n); ok {
					records = append(records, r)
				}
				return

			case attrVal(n, "data-feedback-id") != "":
				if r, ok := recordFromItem(n); ok {
					records = append(records, r)
				}
				return

			case n.Data == "script" || n.Data == "style" || n.Data == "noscript" || n.Data == "iframe":
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return records
}

// recordFromRow reads a table row as (id, source, message[, timestamp])
func recordFromRow(tr *html.Node) (model.FeedbackRecord, bool) {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, strings.TrimSpace(nodeText(c)))
		}
	}

	if len(cells) < 3 {
		return model.FeedbackRecord{}, false
	}

	id, err := strconv.Atoi(cells[0])
	if err != nil {
		return model.FeedbackRecord{}, false
	}

	r := model.FeedbackRecord{
		ID:      id,
		Source:  cells[1],
		Message: cells[2],
	}
	if len(cells) > 3 {
		r.Timestamp = parseTimestamp(cells[3])
	}

	return r, true
}

// recordFromItem reads a block element carrying data-feedback-id
func recordFromItem(n *html.Node) (model.FeedbackRecord, bool) {
	id, err := strconv.Atoi(attrVal(n, "data-feedback-id"))
	if err != nil {
		return model.FeedbackRecord{}, false
	}

	r := model.FeedbackRecord{
		ID:      id,
		Source:  attrVal(n, "data-source"),
		Message: strings.TrimSpace(nodeText(n)),
	}
	if ts := attrVal(n, "data-timestamp"); ts != "" {
		r.Timestamp = parseTimestamp(ts)
	}

	return r, true
}

// attrVal returns the value of the named attribute, or ""
func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// nodeText extracts the visible text beneath a node, skipping scripts/styles
func nodeText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}
