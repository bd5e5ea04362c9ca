// Package pipeline wires every security component into the admission chain
// spec section 2 describes, leaves-first: Identity, IpBlock, BurstGovernor,
// BurstProfiler, BurstWindow, HoneypotCheck, ShadowbanCheck, InputValidate,
// ContentFilter, Moderation, PhoneFormat, SuspiciousPattern,
// ReputationCooldown, PostQuota, ReputationApply, Persist, Broadcast.
package pipeline

import "time"

// ErrorKind is spec section 7's error taxonomy, carried as a typed outcome
// instead of panics or sentinel strings.
type ErrorKind int

const (
	KindOK ErrorKind = iota
	KindClientError
	KindStoreError
)

// Outcome is what a pipeline stage returns when it does not simply pass
// through: an HTTP-shaped rejection or a store failure. ErrorCode becomes
// the JSON envelope's top-level "error" field; Message/Reason carry the
// rest of spec section 6's envelope shapes.
type Outcome struct {
	Kind              ErrorKind
	Status            int
	ErrorCode         string
	Message           string
	Reason            string
	RetryAfterSeconds int64
}

func (o Outcome) IsError() bool { return o.Kind != KindOK }

func clientError(status int, errorCode, message string) Outcome {
	return Outcome{Kind: KindClientError, Status: status, ErrorCode: errorCode, Message: message}
}

func rateLimited(retryAfter time.Duration) Outcome {
	secs := int64(retryAfter.Seconds())
	if secs < 0 {
		secs = 0
	}
	return Outcome{
		Kind:              KindClientError,
		Status:            429,
		ErrorCode:         "rate_limit_exceeded",
		Message:           "Rate limit exceeded, please slow down",
		RetryAfterSeconds: secs,
	}
}

func contentViolation(reason string, status int) Outcome {
	return Outcome{
		Kind:      KindClientError,
		Status:    status,
		ErrorCode: "Content policy violation",
		Reason:    reason,
	}
}

func storeError(message string) Outcome {
	return Outcome{Kind: KindStoreError, Status: 500, ErrorCode: "internal_error", Message: message}
}
