// Package handlers defines HTTP-layer error codes used across the admin API.
//
// Codes are lowercase snake_case and stable: operators and dashboards can
// branch on them programmatically, while the accompanying message stays
// human-readable. Generic codes mirror common HTTP status semantics;
// domain-specific codes cover bot operations that a status alone cannot
// convey.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeJobRunning   = "job_running"
	ErrCodeScanFailed   = "scan_failed"
	ErrCodeReloadFailed = "reload_failed"
	ErrCodeListFailed   = "list_failed"
)
