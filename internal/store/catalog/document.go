package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/tote-app/tote/internal/domain"
)

// rawFields holds the JSON keys of a row (or the document root) that this
// version of the engine does not model. They ride along untouched so an
// older engine never strips what a newer one wrote.
type rawFields map[string]json.RawMessage

// document is the wire form of catalog.json.
type document struct {
	Categories []json.RawMessage `json:"categories"`
	Bookmarks  []json.RawMessage `json:"bookmarks"`
}

// decodeRow unmarshals raw into typed and returns the keys typed did not
// consume.
func decodeRow(raw json.RawMessage, typed any) (rawFields, error) {
	if err := json.Unmarshal(raw, typed); err != nil {
		return nil, err
	}

	var all rawFields
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}

	known, err := json.Marshal(typed)
	if err != nil {
		return nil, err
	}
	var knownKeys map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownKeys); err != nil {
		return nil, err
	}

	for k := range knownKeys {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// encodeRow marshals typed and overlays it onto any preserved unknown
// fields.
func encodeRow(typed any, extra rawFields) (json.RawMessage, error) {
	b, err := json.Marshal(typed)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return b, nil
	}

	merged := make(map[string]json.RawMessage, len(extra)+8)
	for k, v := range extra {
		merged[k] = v
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(b, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// decodeDocument parses catalog.json into typed rows plus preserved
// unknown fields at every level.
func decodeDocument(data []byte) (
	categories []domain.Category,
	bookmarks []domain.Bookmark,
	catExtra map[string]rawFields,
	bmExtra map[string]rawFields,
	docExtra rawFields,
	err error,
) {
	var doc document
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("parse catalog: %w", err)
	}

	docExtra, err = decodeRow(data, &doc)
	if err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("parse catalog: %w", err)
	}

	catExtra = make(map[string]rawFields)
	for _, raw := range doc.Categories {
		var c domain.Category
		extra, derr := decodeRow(raw, &c)
		if derr != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("parse category: %w", derr)
		}
		if extra != nil {
			catExtra[c.ID] = extra
		}
		categories = append(categories, c)
	}

	bmExtra = make(map[string]rawFields)
	for _, raw := range doc.Bookmarks {
		var b domain.Bookmark
		extra, derr := decodeRow(raw, &b)
		if derr != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("parse bookmark: %w", derr)
		}
		if b.Tags == nil {
			// Migration: rows written before tags existed.
			b.Tags = []string{}
		}
		if extra != nil {
			bmExtra[b.ID] = extra
		}
		bookmarks = append(bookmarks, b)
	}

	return categories, bookmarks, catExtra, bmExtra, docExtra, nil
}

// encodeDocument builds the catalog.json bytes.
func encodeDocument(
	categories []domain.Category,
	bookmarks []domain.Bookmark,
	catExtra map[string]rawFields,
	bmExtra map[string]rawFields,
	docExtra rawFields,
) ([]byte, error) {
	doc := document{
		Categories: make([]json.RawMessage, 0, len(categories)),
		Bookmarks:  make([]json.RawMessage, 0, len(bookmarks)),
	}

	for _, c := range categories {
		raw, err := encodeRow(c, catExtra[c.ID])
		if err != nil {
			return nil, fmt.Errorf("encode category %s: %w", c.ID, err)
		}
		doc.Categories = append(doc.Categories, raw)
	}
	for _, b := range bookmarks {
		raw, err := encodeRow(b, bmExtra[b.ID])
		if err != nil {
			return nil, fmt.Errorf("encode bookmark %s: %w", b.ID, err)
		}
		doc.Bookmarks = append(doc.Bookmarks, raw)
	}

	return encodeRow(doc, docExtra)
}
