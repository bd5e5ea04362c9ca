package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/roomline/chatgate/internal/burst"
	"github.com/roomline/chatgate/internal/contentfilter"
	"github.com/roomline/chatgate/internal/identity"
	"github.com/roomline/chatgate/internal/kv"
	"github.com/roomline/chatgate/internal/moderation"
	"github.com/roomline/chatgate/internal/pipeline"
	"github.com/roomline/chatgate/internal/ratelimit"
	"github.com/roomline/chatgate/internal/reports"
	"github.com/roomline/chatgate/internal/reputation"
	"github.com/roomline/chatgate/internal/sanitize"
	"github.com/roomline/chatgate/internal/shadowban"
	"github.com/roomline/chatgate/internal/stats"
	"github.com/roomline/chatgate/internal/store"
)

// testRig bundles the pipeline under test with the underlying fakes/doubles
// so assertions can reach past the pipeline's public surface.
type testRig struct {
	pipeline  *pipeline.Pipeline
	kv        *kv.FakeStore
	bus       *kv.FakeBus
	shadowban *shadowban.Manager
}

func newTestPipeline(t *testing.T) testRig {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	fakeStore := kv.NewFakeStore()
	fakeBus := kv.NewFakeBus()

	messageStore := store.New(fakeStore, fakeBus, time.Hour)
	sbMgr := shadowban.New(fakeStore)
	repMgr := reputation.New(fakeStore, 7*24*time.Hour)
	reportsPipeline := reports.New(fakeStore, messageStore, sbMgr, repMgr, reports.Policy{
		ShadowbanThreshold: 3,
		DeleteThreshold:    5,
	})

	deps := pipeline.Deps{
		Blocks:        ratelimit.NewBlockStore(fakeStore),
		Governor:      ratelimit.NewGovernor(1000, 1000),
		BurstProfiler: burst.New(fakeStore, burst.Profile{Window: time.Second, Threshold: 5, KeyTTL: time.Minute}),
		Limiter:       ratelimit.New(kv.NewRedisStore(rdb)),
		Shadowban:     sbMgr,
		Reputation:    repMgr,
		ContentFilter: contentfilter.New(),
		Moderation:    moderation.NewService(nil, 0.1, 2),
		Sanitizer:     sanitize.NewHTML(),
		Store:         messageStore,
		Stats:         stats.New(fakeStore),
		Reports:       reportsPipeline,
	}

	p := pipeline.New(deps, pipeline.Quotas{
		Post:   ratelimit.Quota{Window: time.Minute, Max: 1},
		Reveal: ratelimit.Quota{Window: time.Hour, Max: 5},
		Burst:  ratelimit.Quota{Window: 2 * time.Second, Max: 20},
	}, pipeline.Policy{
		MaxMessageLength:   280,
		FanoutBlockIP:      30 * time.Minute,
		BurstWindowBlockIP: 30 * time.Minute,
		ViolationTTL:       24 * time.Hour,
		ViolationThreshold: 3,
		AutoBanDuration:    24 * time.Hour,
	})

	return testRig{pipeline: p, kv: fakeStore, bus: fakeBus, shadowban: sbMgr}
}

func baseRequest() pipeline.PostRequest {
	return pipeline.PostRequest{
		Identity: identity.Context{
			IPAddress:    "203.0.113.1",
			Fingerprint:  "fp-1",
			CompositeKey: "composite-1",
		},
		Endpoint:    "/messages",
		BrowserID:   "browser-1",
		Message:     "Looking for a 2BHK near downtown",
		MessageType: store.Requested,
	}
}

func TestPostMessage_Accepted(t *testing.T) {
	rig := newTestPipeline(t)

	msg, outcome, err := rig.pipeline.PostMessage(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.IsError() {
		t.Fatalf("unexpected rejection: %+v", outcome)
	}
	if msg.ID == "" {
		t.Fatal("expected a generated message id")
	}
	if len(rig.bus.Published()) != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", len(rig.bus.Published()))
	}
}

func TestPostMessage_Honeypot(t *testing.T) {
	rig := newTestPipeline(t)

	req := baseRequest()
	req.Website = "https://spam.example"

	_, outcome, err := rig.pipeline.PostMessage(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != 403 {
		t.Fatalf("want 403, got %+v", outcome)
	}

	banned, err := rig.shadowban.IsShadowbanned(context.Background(), req.Identity.CompositeKey)
	if err != nil {
		t.Fatalf("shadowban check failed: %v", err)
	}
	if !banned {
		t.Fatal("expected honeypot trip to shadowban the composite key")
	}
	if len(rig.bus.Published()) != 0 {
		t.Fatal("honeypot trip must never broadcast")
	}
}

func TestPostMessage_PostQuotaExceeded(t *testing.T) {
	rig := newTestPipeline(t)
	ctx := context.Background()

	first := baseRequest()
	if _, outcome, err := rig.pipeline.PostMessage(ctx, first); err != nil || outcome.IsError() {
		t.Fatalf("first post should succeed, got outcome=%+v err=%v", outcome, err)
	}

	second := baseRequest()
	second.Message = "a second, different message"
	_, outcome, err := rig.pipeline.PostMessage(ctx, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != 429 || outcome.ErrorCode != "rate_limit_exceeded" {
		t.Fatalf("want rate_limit_exceeded 429, got %+v", outcome)
	}
}

func TestPostMessage_Shadowbanned_FakeSuccess(t *testing.T) {
	rig := newTestPipeline(t)
	ctx := context.Background()

	req := baseRequest()
	if err := rig.shadowban.Shadowban(ctx, req.Identity.CompositeKey, "test", 0); err != nil {
		t.Fatalf("failed to seed shadowban: %v", err)
	}

	msg, outcome, err := rig.pipeline.PostMessage(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.IsError() {
		t.Fatalf("shadowbanned caller must see success, got %+v", outcome)
	}
	if msg.ID == "" {
		t.Fatal("expected a synthesized message")
	}
	if len(rig.bus.Published()) != 0 {
		t.Fatal("shadowbanned post must never broadcast")
	}
	if ok, _ := rig.kv.Exists(ctx, "message:"+msg.ID); ok {
		t.Fatal("shadowbanned post must never persist")
	}
}

func TestPostMessage_ReportedFingerprintAlsoShadowbans(t *testing.T) {
	rig := newTestPipeline(t)
	ctx := context.Background()

	req := baseRequest()
	req.BrowserID = "reported-author"
	if err := rig.shadowban.Shadowban(ctx, reports.ReportedKeyPrefix+"reported-author", "reported by peers", 0); err != nil {
		t.Fatalf("failed to seed reported-fingerprint shadowban: %v", err)
	}

	msg, outcome, err := rig.pipeline.PostMessage(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.IsError() {
		t.Fatalf("a reported-fingerprint ban must fall back to fake success, got %+v", outcome)
	}
	if len(rig.bus.Published()) != 0 {
		t.Fatal("a reported-fingerprint ban must never broadcast")
	}
	if ok, _ := rig.kv.Exists(ctx, "message:"+msg.ID); ok {
		t.Fatal("a reported-fingerprint ban must never persist")
	}
}

func TestPostMessage_InvalidMessageType_RejectedByHandlerNotPipeline(t *testing.T) {
	// The pipeline itself does not validate MessageType; that is the HTTP
	// handler's job before PostRequest is ever built. This test documents
	// that the pipeline will happily store whatever MessageType it is given.
	rig := newTestPipeline(t)
	req := baseRequest()
	req.MessageType = store.MessageType("bogus")

	msg, outcome, err := rig.pipeline.PostMessage(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.IsError() {
		t.Fatalf("unexpected rejection: %+v", outcome)
	}
	if msg.MessageType != "bogus" {
		t.Fatalf("expected pipeline to pass MessageType through unchanged, got %q", msg.MessageType)
	}
}
