package moderation_test

import (
	"context"
	"testing"

	"github.com/roomline/chatgate/internal/moderation"
)

func newService() *moderation.Service {
	return moderation.NewService(nil, 0.1, 2)
}

func TestModerate_AllowsOnTopicMessage(t *testing.T) {
	s := newService()
	res := s.Moderate(context.Background(), "Looking for a furnished 2BHK apartment for rent near downtown, pets welcome")
	if !res.Allowed {
		t.Fatalf("expected on-topic rental message to be allowed, got %+v", res)
	}
}

func TestModerate_BlocksProfanity(t *testing.T) {
	s := newService()
	res := s.Moderate(context.Background(), "this apartment is absolute shit")
	if res.Allowed {
		t.Fatal("expected profanity to be blocked")
	}
	if res.Violation != moderation.ViolationProfanity {
		t.Fatalf("want ViolationProfanity, got %q", res.Violation)
	}
}

func TestModerate_BlocksOffTopic(t *testing.T) {
	s := newService()
	res := s.Moderate(context.Background(), "did you catch the game last night it was wild and crazy fun")
	if res.Allowed {
		t.Fatal("expected off-topic message to be blocked")
	}
	if res.Violation != moderation.ViolationOffTopic {
		t.Fatalf("want ViolationOffTopic, got %q", res.Violation)
	}
}

func TestModerate_BlocksScamDomain(t *testing.T) {
	s := newService()
	res := s.Moderate(context.Background(), "2BHK apartment for rent, message me at https://t.me/landlord123")
	if res.Allowed {
		t.Fatal("expected scam-domain link to be blocked")
	}
	if res.Violation != moderation.ViolationSpam {
		t.Fatalf("want ViolationSpam, got %q", res.Violation)
	}
}

func TestModerate_BlocksTooManyURLs(t *testing.T) {
	s := newService()
	res := s.Moderate(context.Background(), "room for rent see http://a.example http://b.example http://c.example")
	if res.Allowed {
		t.Fatal("expected message with too many urls to be blocked")
	}
	if res.Violation != moderation.ViolationSpam {
		t.Fatalf("want ViolationSpam, got %q", res.Violation)
	}
}

func TestNewClassifier_DisabledWithoutAPIKey(t *testing.T) {
	if c := moderation.NewClassifier("", 0); c != nil {
		t.Fatal("expected nil classifier when no API key is configured")
	}
}
