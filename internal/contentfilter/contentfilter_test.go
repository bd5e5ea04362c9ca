package contentfilter_test

import (
	"testing"

	"github.com/roomline/chatgate/internal/contentfilter"
)

func TestCheckMessage(t *testing.T) {
	f := contentfilter.New()

	cases := []struct {
		name    string
		message string
		allowed bool
		want    contentfilter.Violation
	}{
		{"clean", "Looking for a 2BHK near downtown, move-in next month", true, contentfilter.ViolationNone},
		{"telegram link", "hit me up at t.me/dealz", false, contentfilter.ViolationScamURL},
		{"shortened url", "check this out bit.ly/abc123", false, contentfilter.ViolationScamURL},
		{"embedded phone", "call me at 512-555-0134 anytime", false, contentfilter.ViolationEmbeddedPhone},
		{"spam phrase", "DM me now, limited offer, act fast", false, contentfilter.ViolationSpamPhrase},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := f.CheckMessage(tc.message)
			if res.Allowed != tc.allowed {
				t.Fatalf("%q: want allowed=%v, got %+v", tc.message, tc.allowed, res)
			}
			if !tc.allowed && res.Violation != tc.want {
				t.Fatalf("%q: want violation %q, got %q", tc.message, tc.want, res.Violation)
			}
		})
	}
}

func TestValidateLength(t *testing.T) {
	f := contentfilter.New()

	if res := f.ValidateLength("   ", 280); res.Allowed {
		t.Fatal("whitespace-only message should be rejected")
	}
	if res := f.ValidateLength("hello", 3); res.Allowed {
		t.Fatal("overlong message should be rejected")
	}
	if res := f.ValidateLength("hello", 280); !res.Allowed {
		t.Fatalf("well-formed message should be allowed, got %+v", res)
	}
}

func TestCheckHoneypot(t *testing.T) {
	f := contentfilter.New()

	if res := f.CheckHoneypot("filled-in"); res.Allowed {
		t.Fatal("non-empty honeypot field must be rejected")
	}
	if res := f.CheckHoneypot(""); !res.Allowed {
		t.Fatal("empty honeypot field must be allowed")
	}
}

func TestValidatePhone(t *testing.T) {
	f := contentfilter.New()

	cases := []struct {
		phone string
		want  bool
	}{
		{"", true},
		{"(512) 555-0134", true},
		{"+91 98765 43210", true},
		{"123", false},
		{"12345678901234567", false},
	}
	for _, tc := range cases {
		if got := f.ValidatePhone(tc.phone); got != tc.want {
			t.Fatalf("ValidatePhone(%q) = %v, want %v", tc.phone, got, tc.want)
		}
	}
}

func TestIsSuspiciousPattern(t *testing.T) {
	f := contentfilter.New()

	if !f.IsSuspiciousPattern("heyyyyyyy check this out") {
		t.Fatal("excessive character repetition should be flagged")
	}
	if !f.IsSuspiciousPattern("THIS IS A GREAT DEAL RIGHT NOW") {
		t.Fatal("excessive capitalization should be flagged")
	}
	if f.IsSuspiciousPattern("Looking for a quiet 1BR apartment downtown") {
		t.Fatal("ordinary message should not be flagged")
	}
}
