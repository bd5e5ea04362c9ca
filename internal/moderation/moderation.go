// Package moderation implements the heavier content checks from spec
// section 4.8: profanity (including leet-speak and fuzzy matching),
// topical relevance, spam/scam-domain detection, and an optional external
// classifier call that always fails open. Grounded on
// _examples/original_source/server/src/security/moderation.rs.
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ViolationType names why a message was rejected.
type ViolationType string

const (
	ViolationNone        ViolationType = ""
	ViolationProfanity   ViolationType = "profanity"
	ViolationOffTopic    ViolationType = "off_topic"
	ViolationSpam        ViolationType = "spam"
	ViolationHate        ViolationType = "hate"
	ViolationHarassment  ViolationType = "harassment"
	ViolationSexual      ViolationType = "sexual"
	ViolationExternal    ViolationType = "external_classifier"
)

type Result struct {
	Allowed   bool
	Reason    string
	Violation ViolationType
}

func allowed() Result { return Result{Allowed: true} }

func blocked(reason string, v ViolationType) Result {
	return Result{Allowed: false, Reason: reason, Violation: v}
}

var (
	englishProfanityRegex = regexp.MustCompile(`(?i)\b(damn|hell|crap|ass|bitch|bastard|piss|fuck|shit|asshole|dick|cock|pussy|whore|slut|cunt)\b`)
	urlRegex              = regexp.MustCompile(`https?://[^\s]+|www\.[^\s]+`)
	hinglishRegexes       []*regexp.Regexp
)

func init() {
	for _, p := range hinglishPatterns {
		hinglishRegexes = append(hinglishRegexes, regexp.MustCompile(p))
	}
}

// Classifier is the subset of an external moderation API (e.g. OpenAI's
// moderation endpoint) this service needs.
type Classifier struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClassifier returns nil when apiKey is empty; Service.Moderate then
// skips the external check, matching the original's Option<String> gate on
// openai_api_key.
func NewClassifier(apiKey string, timeout time.Duration) *Classifier {
	if apiKey == "" {
		return nil
	}
	return &Classifier{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1/moderations",
		client:  &http.Client{Timeout: timeout},
	}
}

type classifierRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type classifierResponse struct {
	Results []struct {
		Categories struct {
			Hate       bool `json:"hate"`
			Harassment bool `json:"harassment"`
			Sexual     bool `json:"sexual"`
			Violence   bool `json:"violence"`
		} `json:"categories"`
	} `json:"results"`
}

// Check calls the external classifier and fails open: any transport error,
// non-2xx response, or malformed body is logged and treated as allowed,
// since a flaky third-party API must never block the admission pipeline.
func (c *Classifier) Check(ctx context.Context, content string) Result {
	body, err := json.Marshal(classifierRequest{Input: content, Model: "text-moderation-latest"})
	if err != nil {
		log.Warn().Err(err).Msg("moderation: failed to encode classifier request")
		return allowed()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Msg("moderation: failed to build classifier request")
		return allowed()
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("moderation: external classifier request failed")
		return allowed()
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		log.Warn().Int("status", resp.StatusCode).Msg("moderation: external classifier returned non-2xx")
		return allowed()
	}

	var parsed classifierResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Warn().Err(err).Msg("moderation: failed to parse classifier response")
		return allowed()
	}
	if len(parsed.Results) == 0 {
		return allowed()
	}
	cats := parsed.Results[0].Categories
	switch {
	case cats.Hate:
		return blocked("Content violates hate speech policy", ViolationHate)
	case cats.Harassment:
		return blocked("Content violates harassment policy", ViolationHarassment)
	case cats.Sexual:
		return blocked("Content violates sexual content policy", ViolationSexual)
	case cats.Violence:
		return blocked("Content violates violence policy", ViolationExternal)
	default:
		return allowed()
	}
}

// Service runs every content-moderation stage in order.
type Service struct {
	classifier        *Classifier
	keywordDensityMin float64
	maxURLs           int
}

func NewService(classifier *Classifier, keywordDensityMin float64, maxURLs int) *Service {
	return &Service{classifier: classifier, keywordDensityMin: keywordDensityMin, maxURLs: maxURLs}
}

// Moderate runs profanity, relevance, spam, then (if configured) the
// external classifier, short-circuiting on the first violation.
func (s *Service) Moderate(ctx context.Context, content string) Result {
	if r := s.checkProfanity(content); !r.Allowed {
		return r
	}
	if r := s.checkRentalRelevance(content); !r.Allowed {
		return r
	}
	if r := s.checkSpam(content); !r.Allowed {
		return r
	}
	if s.classifier != nil {
		if r := s.classifier.Check(ctx, content); !r.Allowed {
			return r
		}
	}
	return allowed()
}

func (s *Service) checkProfanity(content string) Result {
	if englishProfanityRegex.MatchString(content) {
		return blocked("Profanity or offensive language detected", ViolationProfanity)
	}

	normalized := strings.ToLower(normalizeForProfanityCheck(content))
	for _, word := range strings.Fields(normalized) {
		clean := trimPunctuation(word)
		if clean == "" {
			continue
		}
		if _, ok := profanityWords[clean]; ok {
			return blocked("Profanity or offensive language detected", ViolationProfanity)
		}
		if fuzzyProfanityCheck(clean) {
			return blocked("Offensive or vulgar language detected", ViolationProfanity)
		}
	}

	despaced := strings.ReplaceAll(strings.ToLower(content), " ", "")
	for word := range profanityWords {
		if len(word) > 2 && strings.Contains(despaced, word) {
			return blocked("Offensive or vulgar language detected", ViolationProfanity)
		}
	}

	for _, re := range hinglishRegexes {
		if re.MatchString(content) {
			return blocked("Offensive or vulgar language detected", ViolationProfanity)
		}
	}

	return allowed()
}

func normalizeForProfanityCheck(text string) string {
	normalized := text
	for _, sub := range leetSpeakMap {
		normalized = strings.ReplaceAll(normalized, sub.from, sub.to)
	}
	replacer := strings.NewReplacer(
		"*", "",
		"!", "",
		"$", "",
		"@", "a",
		"#", "",
		"~", "",
		"^", "",
	)
	return replacer.Replace(normalized)
}

func trimPunctuation(word string) string {
	return strings.TrimFunc(word, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
}

// fuzzyProfanityCheck mirrors the original's two-pronged heuristic: words
// with excessive character repetition that also contain a profane root, or
// words within Levenshtein distance 1 of a similarly-sized profane word
// whose core substring is present.
func fuzzyProfanityCheck(word string) bool {
	if len(word) < 3 {
		return false
	}
	if hasExcessiveRepeats(word) && containsProfaneRoot(word) {
		return true
	}
	if len(word) < 4 {
		return false
	}
	for profaneWord := range profanityWords {
		if len(profaneWord) <= 2 {
			continue
		}
		if abs(len(word)-len(profaneWord)) > 2 {
			continue
		}
		if levenshtein(word, profaneWord) <= 1 && isProfanityVariant(word, profaneWord) {
			return true
		}
	}
	return false
}

func hasExcessiveRepeats(word string) bool {
	runes := []rune(word)
	for i := 2; i < len(runes); i++ {
		if runes[i] == runes[i-1] && runes[i-1] == runes[i-2] {
			return true
		}
	}
	return false
}

func containsProfaneRoot(word string) bool {
	for _, root := range profaneRoots {
		if strings.Contains(word, root) {
			return true
		}
	}
	return false
}

func isProfanityVariant(word, profaneWord string) bool {
	if len(profaneWord) > 3 {
		coreLen := 4
		if len(profaneWord) < coreLen {
			coreLen = len(profaneWord)
		}
		return strings.Contains(word, profaneWord[:coreLen])
	}
	return true
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// checkRentalRelevance blocks messages whose rental-keyword density falls
// below the configured minimum, unless the message is short enough that
// sparse keywords are still plausibly legitimate.
func (s *Service) checkRentalRelevance(content string) Result {
	words := strings.Fields(strings.ToLower(content))
	if len(words) == 0 {
		return allowed()
	}
	matches := 0
	for _, word := range words {
		for _, kw := range rentalKeywords {
			if strings.Contains(word, kw) {
				matches++
				break
			}
		}
	}
	density := float64(matches) / float64(len(words))
	if density < s.keywordDensityMin && len(words) > 3 {
		return blocked("Message appears off-topic for rental platform", ViolationOffTopic)
	}
	return allowed()
}

// checkSpam blocks messages with too many URLs, or any URL pointing at a
// known scam/short-link domain.
func (s *Service) checkSpam(content string) Result {
	urls := urlRegex.FindAllString(content, -1)
	if len(urls) > s.maxURLs {
		return blocked("Message contains too many URLs", ViolationSpam)
	}
	for _, u := range urls {
		lowerURL := strings.ToLower(u)
		for _, domain := range scamDomains {
			if strings.Contains(lowerURL, domain) {
				return blocked("Message contains link to known scam domain: "+domain, ViolationSpam)
			}
		}
	}
	return allowed()
}
