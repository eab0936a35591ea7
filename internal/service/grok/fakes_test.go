package grok

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"h1nted/internal/domain"
	"h1nted/internal/domain/models"
	"h1nted/internal/domain/repositories"
	"h1nted/internal/service/formula"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustPrompts() *Prompts {
	p, err := LoadPrompts()
	if err != nil {
		panic(err)
	}
	return p
}

type fakeHistory struct {
	mu        sync.Mutex
	rows      []models.ChatMessage
	inserted  []models.ChatMessage
	insertErr error
	listErr   error
	since     time.Time
}

func (f *fakeHistory) Insert(ctx context.Context, msg *models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if repositories.GetTx(ctx) == nil && ctx.Value(fakeTxKey{}) == nil {
		return errors.New("insert outside transaction")
	}
	f.inserted = append(f.inserted, *msg)
	return nil
}

func (f *fakeHistory) ListRecent(ctx context.Context, userID, profileID string, since time.Time) ([]models.ChatMessage, error) {
	f.since = since
	return f.rows, f.listErr
}

func (f *fakeHistory) Inserted() []models.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ChatMessage(nil), f.inserted...)
}

type fakeReports struct {
	mu        sync.Mutex
	byID      map[string]models.SavedReport
	saved     []models.SavedReport
	insertErr error
}

func newFakeReports(reports ...models.SavedReport) *fakeReports {
	f := &fakeReports{byID: make(map[string]models.SavedReport)}
	for _, r := range reports {
		f.byID[r.ID] = r
	}
	return f
}

func (f *fakeReports) Insert(ctx context.Context, report *models.SavedReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.saved = append(f.saved, *report)
	return nil
}

func (f *fakeReports) GetByIDs(ctx context.Context, userID string, ids []string) ([]models.SavedReport, error) {
	var out []models.SavedReport
	for _, id := range ids {
		if r, ok := f.byID[id]; ok && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReports) List(ctx context.Context, userID, folder string) ([]models.SavedReport, error) {
	return nil, nil
}

func (f *fakeReports) Delete(ctx context.Context, userID, id string) error {
	return domain.ErrNotFound
}

func (f *fakeReports) Saved() []models.SavedReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.SavedReport(nil), f.saved...)
}

type fakeTxKey struct{}

// fakeTx marks the context so inserts can assert they ran inside ExecTx
type fakeTx struct{}

func (fakeTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(context.WithValue(ctx, fakeTxKey{}, true))
}

type usageCall struct {
	token, mode, profileID string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []usageCall
}

func (f *fakeNotifier) Notify(authToken, mode, profileID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, usageCall{authToken, mode, profileID})
}

func (f *fakeNotifier) Calls() []usageCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]usageCall(nil), f.calls...)
}

type fakeFormulas struct {
	docs map[string]*formula.Document
}

func (f *fakeFormulas) Load(ctx context.Context, bucket, key string) (*formula.Document, error) {
	if doc, ok := f.docs[bucket+"/"+key]; ok {
		return doc, nil
	}
	return nil, domain.ErrNotFound
}
