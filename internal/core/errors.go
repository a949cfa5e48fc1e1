package core

import "errors"

var (
	// ErrThreadNotFound is returned by ThreadStore lookups that match nothing
	ErrThreadNotFound = errors.New("thread not found")

	// ErrCapabilityUnavailable is returned when an NLP capability cannot run
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrInvalidLabel is returned when a classifier produces an unknown priority label
	ErrInvalidLabel = errors.New("invalid priority label")

	// ErrRateLimited is returned by LLM providers that throttled a request
	ErrRateLimited = errors.New("rate limited")
)
