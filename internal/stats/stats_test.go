package stats_test

import (
	"context"
	"testing"

	"github.com/roomline/chatgate/internal/kv"
	"github.com/roomline/chatgate/internal/stats"
)

func TestTrackVisitor_DedupesByIP(t *testing.T) {
	tr := stats.New(kv.NewFakeStore())
	ctx := context.Background()

	if err := tr.TrackVisitor(ctx, "1.2.3.4", "fp-a", "Austin"); err != nil {
		t.Fatalf("track 1: %v", err)
	}
	if err := tr.TrackVisitor(ctx, "1.2.3.4", "fp-a", "Austin"); err != nil {
		t.Fatalf("track 2: %v", err)
	}
	if err := tr.TrackVisitor(ctx, "5.6.7.8", "fp-b", "Austin"); err != nil {
		t.Fatalf("track 3: %v", err)
	}

	daily, err := tr.Daily(ctx)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if daily.UniqueVisitors != 2 {
		t.Fatalf("want 2 unique visitors, got %d", daily.UniqueVisitors)
	}
}

func TestDailyStats_CountsMessages(t *testing.T) {
	tr := stats.New(kv.NewFakeStore())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := tr.IncrementMessageCount(ctx); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	daily, err := tr.Daily(ctx)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if daily.MessageCount != 3 {
		t.Fatalf("want message_count 3, got %d", daily.MessageCount)
	}
}

func TestCities_SortedDescendingByViews(t *testing.T) {
	tr := stats.New(kv.NewFakeStore())
	ctx := context.Background()

	track := func(ip, fp, city string, times int) {
		for i := 0; i < times; i++ {
			if err := tr.TrackVisitor(ctx, ip, fp, city); err != nil {
				t.Fatalf("track visitor: %v", err)
			}
		}
	}
	track("1.1.1.1", "fp-1", "Austin", 1)
	track("1.1.1.1", "fp-1", "Austin", 1)
	track("2.2.2.2", "fp-2", "Dallas", 5)

	cities, err := tr.Cities(ctx)
	if err != nil {
		t.Fatalf("cities: %v", err)
	}
	if len(cities) != 2 {
		t.Fatalf("want 2 cities, got %d: %+v", len(cities), cities)
	}
	if cities[0].City != "Dallas" || cities[0].Views != 5 {
		t.Fatalf("expected Dallas first with 5 views, got %+v", cities[0])
	}
	if cities[1].City != "Austin" || cities[1].Views != 2 {
		t.Fatalf("expected Austin second with 2 views, got %+v", cities[1])
	}
}

func TestCities_IgnoresVisitorsWithoutCity(t *testing.T) {
	tr := stats.New(kv.NewFakeStore())
	ctx := context.Background()

	if err := tr.TrackVisitor(ctx, "1.1.1.1", "fp-1", ""); err != nil {
		t.Fatalf("track: %v", err)
	}

	cities, err := tr.Cities(ctx)
	if err != nil {
		t.Fatalf("cities: %v", err)
	}
	if len(cities) != 0 {
		t.Fatalf("want no city stats, got %+v", cities)
	}
}
