// Package contentfilter implements the cheap, regex-based pre-moderation
// checks from spec section 4.7: honeypot, scam URLs, embedded phone
// numbers, spam phrases, and crude spam heuristics. Grounded on
// _examples/original_source/server/src/security/content_filter.rs.
package contentfilter

import (
	"regexp"
	"strings"
	"unicode"
)

// Violation names why a message was blocked.
type Violation string

const (
	ViolationNone          Violation = ""
	ViolationScamURL       Violation = "scam_url"
	ViolationEmbeddedPhone Violation = "embedded_phone"
	ViolationSpamPhrase    Violation = "spam_phrase"
	ViolationHoneypot      Violation = "honeypot"
	ViolationInvalidLength Violation = "invalid_length"
)

// Result is the outcome of one content-filter check.
type Result struct {
	Allowed   bool
	Reason    string
	Violation Violation
}

func allowed() Result { return Result{Allowed: true} }

func blocked(reason string, v Violation) Result {
	return Result{Allowed: false, Reason: reason, Violation: v}
}

var (
	scamURLRegex = regexp.MustCompile(`(?i)(t\.me|telegram\.me|telegram\.org/bot|bit\.ly|tinyurl\.com|goo\.gl|rebrand\.ly|ow\.ly)`)

	phoneRegex = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}|\+?\d{10,15}|\d{3}[-.\s]\d{3}[-.\s]\d{4}`)

	spamPhrasesRegex = regexp.MustCompile(`(?i)(contact me on telegram|dm me|whatsapp only|text me at|call now|limited offer|act fast|click here|100% guaranteed|make money fast|free money|earn \$\d+|buy now|limited time)`)
)

type Filter struct{}

func New() *Filter { return &Filter{} }

// CheckMessage runs the scam-URL, embedded-phone, and spam-phrase checks in
// that order, same as check_message in the original.
func (f *Filter) CheckMessage(message string) Result {
	if scamURLRegex.MatchString(message) {
		return blocked("Message contains suspicious URL", ViolationScamURL)
	}
	if phoneRegex.MatchString(message) {
		return blocked("Phone numbers should be in the dedicated phone field, not in the message", ViolationEmbeddedPhone)
	}
	if spamPhrasesRegex.MatchString(message) {
		return blocked("Message contains spam or suspicious phrases", ViolationSpamPhrase)
	}
	return allowed()
}

// ValidateLength rejects bodies over maxLength bytes or whose trimmed form
// is empty, the InputValidate stage of the pipeline.
func (f *Filter) ValidateLength(message string, maxLength int) Result {
	if strings.TrimSpace(message) == "" {
		return blocked("Message cannot be empty", ViolationInvalidLength)
	}
	if len(message) > maxLength {
		return blocked("Message exceeds maximum length", ViolationInvalidLength)
	}
	return allowed()
}

// CheckHoneypot flags a submission as bot traffic if the hidden field was
// filled in.
func (f *Filter) CheckHoneypot(honeypotValue string) Result {
	if honeypotValue != "" {
		return blocked("Bot detected via honeypot", ViolationHoneypot)
	}
	return allowed()
}

// ValidatePhone reports whether phone is empty (not provided) or contains
// 10-15 digits once non-numeric characters are stripped.
func (f *Filter) ValidatePhone(phone string) bool {
	if phone == "" {
		return true
	}
	digits := 0
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 10 && digits <= 15
}

// IsSuspiciousPattern flags excessive character repetition or excessive
// capitalization, both spam indicators independent of specific wording.
func (f *Filter) IsSuspiciousPattern(message string) bool {
	lower := strings.ToLower(message)
	if hasExcessiveRepetition(lower) {
		return true
	}
	return hasExcessiveCaps(message)
}

func hasExcessiveRepetition(text string) bool {
	var prev rune
	repeat := 0
	for _, ch := range text {
		if ch == prev && isAlphaNumeric(ch) {
			repeat++
			if repeat > 5 {
				return true
			}
		} else {
			repeat = 1
			prev = ch
		}
	}
	return false
}

func isAlphaNumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func hasExcessiveCaps(text string) bool {
	if len(text) < 10 {
		return false
	}
	var caps, letters int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				caps++
			}
		}
	}
	if letters == 0 {
		return false
	}
	return float64(caps)/float64(letters) > 0.7
}
