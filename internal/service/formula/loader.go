package formula

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"h1nted/internal/domain/services"
)

// Loader fetches formula documents from object storage
type Loader struct {
	store  services.ObjectStore
	logger *slog.Logger
}

func NewLoader(store services.ObjectStore, logger *slog.Logger) *Loader {
	return &Loader{store: store, logger: logger}
}

// Load downloads bucket/key. Workbooks (.xlsx) are parsed; any other
// object is used as plain text.
func (l *Loader) Load(ctx context.Context, bucket, key string) (*Document, error) {
	data, err := l.store.Download(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("load formula: %w", err)
	}

	if strings.EqualFold(path.Ext(key), ".xlsx") {
		doc, err := ParseSpreadsheet(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse formula %s: %w", key, err)
		}
		l.logger.Debug("formula workbook parsed",
			"key", key,
			"text_bytes", len(doc.Text),
			"images", len(doc.Images),
		)
		return doc, nil
	}

	return &Document{Text: strings.TrimSpace(string(data))}, nil
}
