package models

import "errors"

// Sentinel errors returned by the store for domain-level not-found and
// conflict conditions. Transport-level failures are wrapped and returned
// as-is rather than mapped to one of these.
var (
	ErrWorkItemNotFound       = errors.New("work item not found")
	ErrDuplicateWorkItem      = errors.New("work item already exists")
	ErrAttachmentNotFound     = errors.New("attachment not found")
	ErrDuplicateAttachment    = errors.New("attachment already exists")
	ErrHashEntryNotFound      = errors.New("hash entry not found")
)
