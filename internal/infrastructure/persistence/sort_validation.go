package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// SyncRecordSortFields contains allowed sort fields for sync records
var SyncRecordSortFields = map[string]bool{
	"id":          true,
	"synced_at":   true,
	"entity_kind": true,
	"direction":   true,
	"status":      true,
	"local_id":    true,
	"remote_id":   true,
}

// QueueItemSortFields contains allowed sort fields for queue items
var QueueItemSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"form_type":    true,
	"status":       true,
	"attempts":     true,
	"processed_at": true,
}
