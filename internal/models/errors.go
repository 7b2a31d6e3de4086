package models

import (
	"errors"
	"strings"
)

// ErrorKind classifies failures at external boundaries
type ErrorKind string

const (
	ErrorKindValidation  ErrorKind = "VALIDATION_ERROR"
	ErrorKindNetwork     ErrorKind = "NETWORK_ERROR"
	ErrorKindDatabase    ErrorKind = "DATABASE_ERROR"
	ErrorKindExternalAPI ErrorKind = "EXTERNAL_API_ERROR"
	ErrorKindTimeout     ErrorKind = "TIMEOUT_ERROR"
	ErrorKindUnknown     ErrorKind = "UNKNOWN"
)

// Severity grades an error for alerting purposes
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ErrNotFound is returned by stores when a row does not exist
var ErrNotFound = errors.New("not found")

// ErrQueueEmpty is returned by Receive when no message is visible
var ErrQueueEmpty = errors.New("no messages in queue")

// classification rules, checked in order; first match wins
var errorRules = []struct {
	kind       ErrorKind
	severity   Severity
	retryable  bool
	substrings []string
}{
	{ErrorKindValidation, SeverityInfo, false,
		[]string{"no such column", "syntax error", "datatype mismatch", "invalid input", "constraint failed", "validation"}},
	{ErrorKindTimeout, SeverityWarning, true,
		[]string{"timed out", "timeout", "deadline exceeded"}},
	{ErrorKindExternalAPI, SeverityWarning, true,
		[]string{"rate limit", "quota", "429", "503", "service unavailable", "resource exhausted"}},
	{ErrorKindNetwork, SeverityWarning, true,
		[]string{"connection refused", "connection reset", "no such host", "dns", "broken pipe", "network"}},
	{ErrorKindDatabase, SeverityCritical, true,
		[]string{"database is locked", "sqlite_busy", "deadlock", "connection pool", "database"}},
}

// ClassifyError maps an error to (kind, severity, retryable) using
// message-substring rules.
func ClassifyError(err error) (ErrorKind, Severity, bool) {
	if err == nil {
		return ErrorKindUnknown, SeverityWarning, false
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range errorRules {
		for _, sub := range rule.substrings {
			if strings.Contains(msg, sub) {
				return rule.kind, rule.severity, rule.retryable
			}
		}
	}
	return ErrorKindUnknown, SeverityWarning, false
}

// IsRetryable reports whether the error classifies as transient
func IsRetryable(err error) bool {
	_, _, retryable := ClassifyError(err)
	return retryable
}
