package database

import (
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T) *DBService {
	t.Helper()
	svc, err := NewDBService(":memory:")
	if err != nil {
		t.Fatalf("NewDBService(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

// TestNewDBService verifies that the schema applies to a fresh database.
func TestNewDBService(t *testing.T) {
	svc := newTestService(t)
	if svc.Path() != ":memory:" {
		t.Errorf("expected path :memory:, got %s", svc.Path())
	}
}

// TestPutAndGetDocument verifies the cache round trip and upsert.
func TestPutAndGetDocument(t *testing.T) {
	svc := newTestService(t)

	doc := &Document{
		Source:    "https://example.com/root.json",
		Body:      []byte(`[{"label":"A"}]`),
		NodeCount: 1,
	}
	if err := svc.PutDocument(doc); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}
	if doc.FetchedAt == 0 {
		t.Error("expected FetchedAt to be stamped")
	}

	got, err := svc.GetDocument(doc.Source)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if string(got.Body) != string(doc.Body) || got.NodeCount != 1 {
		t.Errorf("unexpected document: %+v", got)
	}

	// Replacing keeps a single row with the new body.
	doc.Body = []byte(`[{"label":"A"},{"label":"B"}]`)
	doc.NodeCount = 2
	doc.FetchedAt = 0
	if err := svc.PutDocument(doc); err != nil {
		t.Fatalf("PutDocument (replace) failed: %v", err)
	}
	docs, err := svc.ListDocuments(10)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 || docs[0].NodeCount != 2 {
		t.Errorf("expected one replaced document, got %+v", docs)
	}
}

// TestGetDocumentMissing verifies the sentinel error.
func TestGetDocumentMissing(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetDocument("nowhere.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestListDocumentsOrder verifies newest-first ordering.
func TestListDocumentsOrder(t *testing.T) {
	svc := newTestService(t)

	now := time.Now().UnixNano()
	for i, src := range []string{"old.json", "mid.json", "new.json"} {
		if err := svc.PutDocument(&Document{Source: src, Body: []byte("[]"), FetchedAt: now + int64(i)}); err != nil {
			t.Fatalf("PutDocument(%s) failed: %v", src, err)
		}
	}

	docs, err := svc.ListDocuments(2)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].Source != "new.json" || docs[1].Source != "mid.json" {
		t.Errorf("unexpected order: %s, %s", docs[0].Source, docs[1].Source)
	}
}

// TestDeleteAndPurge verifies cache eviction commands.
func TestDeleteAndPurge(t *testing.T) {
	svc := newTestService(t)

	for _, src := range []string{"a.json", "b.json", "c.json"} {
		if err := svc.PutDocument(&Document{Source: src, Body: []byte("[]")}); err != nil {
			t.Fatalf("PutDocument(%s) failed: %v", src, err)
		}
	}

	if err := svc.DeleteDocument("a.json"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if _, err := svc.GetDocument("a.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected a.json gone, got %v", err)
	}

	n, err := svc.PurgeDocuments()
	if err != nil {
		t.Fatalf("PurgeDocuments failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 purged, got %d", n)
	}
}

// TestFetchHistoryAndStats verifies the fetch log and aggregates.
func TestFetchHistoryAndStats(t *testing.T) {
	svc := newTestService(t)

	msg := "status 500"
	now := time.Now().UnixNano()
	events := []*FetchEvent{
		{Source: "a.json", Timestamp: now, DurationMs: 12, Status: FetchOK},
		{Source: "b.json", Timestamp: now + 1, DurationMs: 40, Status: FetchError, ErrorMessage: &msg},
		{Source: "a.json", Timestamp: now + 2, Status: FetchCached},
	}
	for _, ev := range events {
		if err := svc.RecordFetch(ev); err != nil {
			t.Fatalf("RecordFetch failed: %v", err)
		}
		if ev.EventID == 0 {
			t.Error("expected EventID to be assigned")
		}
	}

	hist, err := svc.FetchHistory("a.json", 10)
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if len(hist) != 2 || hist[0].Status != FetchCached {
		t.Errorf("unexpected history for a.json: %+v", hist)
	}

	all, err := svc.FetchHistory("", 10)
	if err != nil {
		t.Fatalf("FetchHistory(all) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 events, got %d", len(all))
	}
	if all[1].ErrorMessage == nil || *all[1].ErrorMessage != msg {
		t.Errorf("expected error message on b.json event, got %+v", all[1])
	}

	if err := svc.PutDocument(&Document{Source: "a.json", Body: []byte("[]")}); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}
	stats, err := svc.GetCacheStats()
	if err != nil {
		t.Fatalf("GetCacheStats failed: %v", err)
	}
	if stats.Documents != 1 || stats.TotalBytes != 2 {
		t.Errorf("unexpected document stats: %+v", stats)
	}
	if stats.Fetches != 3 || stats.Failures != 1 {
		t.Errorf("unexpected fetch stats: %+v", stats)
	}
	if stats.LastFetch == nil || *stats.LastFetch != now+2 {
		t.Errorf("unexpected last fetch: %v", stats.LastFetch)
	}
}

// TestCacheStatsEmpty verifies aggregates on an empty database.
func TestCacheStatsEmpty(t *testing.T) {
	svc := newTestService(t)

	stats, err := svc.GetCacheStats()
	if err != nil {
		t.Fatalf("GetCacheStats failed: %v", err)
	}
	if stats.Documents != 0 || stats.Fetches != 0 || stats.LastFetch != nil {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}
