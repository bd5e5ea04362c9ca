package reports_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roomline/chatgate/internal/identity"
	"github.com/roomline/chatgate/internal/kv"
	"github.com/roomline/chatgate/internal/reports"
	"github.com/roomline/chatgate/internal/reputation"
	"github.com/roomline/chatgate/internal/shadowban"
	"github.com/roomline/chatgate/internal/store"
)

func newTestPipeline(t *testing.T, policy reports.Policy) (*reports.Pipeline, *store.Store, *shadowban.Manager, *kv.FakeStore) {
	t.Helper()
	fakeStore := kv.NewFakeStore()
	fakeBus := kv.NewFakeBus()
	st := store.New(fakeStore, fakeBus, time.Hour)
	sb := shadowban.New(fakeStore)
	rep := reputation.New(fakeStore, 7*24*time.Hour)
	return reports.New(fakeStore, st, sb, rep, policy), st, sb, fakeStore
}

func seedMessage(t *testing.T, st *store.Store, browserID string) store.ChatMessage {
	t.Helper()
	msg := store.ChatMessage{ID: "msg-1", BrowserID: browserID, Message: "hello", MessageType: store.Offered, Timestamp: 1}
	if err := st.Persist(context.Background(), msg); err != nil {
		t.Fatalf("failed to seed message: %v", err)
	}
	return msg
}

func TestReport_MessageNotFound(t *testing.T) {
	p, _, _, _ := newTestPipeline(t, reports.Policy{ShadowbanThreshold: 3, DeleteThreshold: 5})
	_, err := p.Report(context.Background(), "missing", "someone", identity.Context{IPAddress: "1.1.1.1", Fingerprint: "reporter"})
	if !errors.Is(err, reports.ErrMessageNotFound) {
		t.Fatalf("want ErrMessageNotFound, got %v", err)
	}
}

func TestReport_Tampered(t *testing.T) {
	p, st, _, _ := newTestPipeline(t, reports.Policy{ShadowbanThreshold: 3, DeleteThreshold: 5})
	seedMessage(t, st, "actual-author")

	_, err := p.Report(context.Background(), "msg-1", "someone-else", identity.Context{IPAddress: "1.1.1.1", Fingerprint: "reporter"})
	if !errors.Is(err, reports.ErrTampered) {
		t.Fatalf("want ErrTampered, got %v", err)
	}
}

func TestReport_SelfReport(t *testing.T) {
	p, st, _, _ := newTestPipeline(t, reports.Policy{ShadowbanThreshold: 3, DeleteThreshold: 5})
	seedMessage(t, st, "author-1")

	_, err := p.Report(context.Background(), "msg-1", "author-1", identity.Context{IPAddress: "1.1.1.1", Fingerprint: "author-1"})
	if !errors.Is(err, reports.ErrSelfReport) {
		t.Fatalf("want ErrSelfReport, got %v", err)
	}
}

func TestReport_EscalatesBelowThreshold(t *testing.T) {
	p, st, sb, _ := newTestPipeline(t, reports.Policy{ShadowbanThreshold: 3, DeleteThreshold: 5})
	seedMessage(t, st, "author-1")

	result, err := p.Report(context.Background(), "msg-1", "author-1", identity.Context{IPAddress: "1.1.1.1", Fingerprint: "reporter-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Deleted || result.Shadowbanned {
		t.Fatalf("a single report must not cross either threshold, got %+v", result)
	}
	if result.ReportsOnIP != 1 {
		t.Fatalf("expected fingerprint report counter of 1, got %+v", result)
	}

	banned, err := sb.IsShadowbanned(context.Background(), reports.ReportedKeyPrefix+"author-1")
	if err != nil {
		t.Fatalf("shadowban check failed: %v", err)
	}
	if banned {
		t.Fatal("reported fingerprint should not be shadowbanned yet")
	}
}

func TestReport_ShadowbansAtThreshold(t *testing.T) {
	p, st, sb, _ := newTestPipeline(t, reports.Policy{ShadowbanThreshold: 2, DeleteThreshold: 10})
	seedMessage(t, st, "author-1")
	ctx := context.Background()

	if _, err := p.Report(ctx, "msg-1", "author-1", identity.Context{IPAddress: "1.1.1.1", Fingerprint: "reporter-1"}); err != nil {
		t.Fatalf("first report failed: %v", err)
	}
	result, err := p.Report(ctx, "msg-1", "author-1", identity.Context{IPAddress: "2.2.2.2", Fingerprint: "reporter-2"})
	if err != nil {
		t.Fatalf("second report failed: %v", err)
	}
	if !result.Shadowbanned {
		t.Fatalf("expected shadowban at threshold, got %+v", result)
	}

	banned, err := sb.IsShadowbanned(ctx, reports.ReportedKeyPrefix+"author-1")
	if err != nil {
		t.Fatalf("shadowban check failed: %v", err)
	}
	if !banned {
		t.Fatal("expected reported fingerprint to be shadowbanned")
	}
}

func TestReport_DeletesAtThreshold(t *testing.T) {
	p, st, _, _ := newTestPipeline(t, reports.Policy{ShadowbanThreshold: 10, DeleteThreshold: 2})
	seedMessage(t, st, "author-1")
	ctx := context.Background()

	if _, err := p.Report(ctx, "msg-1", "author-1", identity.Context{IPAddress: "1.1.1.1", Fingerprint: "reporter-1"}); err != nil {
		t.Fatalf("first report failed: %v", err)
	}
	result, err := p.Report(ctx, "msg-1", "author-1", identity.Context{IPAddress: "2.2.2.2", Fingerprint: "reporter-2"})
	if err != nil {
		t.Fatalf("second report failed: %v", err)
	}
	if !result.Deleted {
		t.Fatalf("expected deletion at threshold, got %+v", result)
	}

	if _, ok, err := st.MessageByID(ctx, "msg-1"); err != nil || ok {
		t.Fatalf("expected message to be gone, ok=%v err=%v", ok, err)
	}
}
