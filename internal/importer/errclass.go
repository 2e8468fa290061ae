package importer

// errclass.go maps technical persistence errors to messages fit for an
// import summary. Patterns are matched case-insensitively with
// strings.Contains, first match wins, so specific patterns come before
// general ones. Users quote the code to support staff; support checks
// the server logs for the original error.

import (
	"fmt"
	"strings"
)

type errorPattern struct {
	pattern string
	message string
	action  string
	code    string
}

var errorPatterns = []errorPattern{
	// Constraint violations.
	{"duplicate key", "A record with this identity already exists", "Review the file for rows already imported", "DB001"},
	{"unique constraint", "A duplicate value was found", "Review the file for duplicate identity values", "DB002"},
	{"violates unique", "A duplicate value was found", "Review the file for duplicate identity values", "DB002"},
	{"foreign key", "A referenced record does not exist", "Ensure drawings are registered before importing against them", "DB003"},

	// Connectivity.
	{"connection refused", "Unable to connect to the database", "Try again in a few moments", "DB004"},
	{"connection reset", "The database connection was interrupted", "Try again", "DB005"},
	{"deadlock", "The database was busy with conflicting operations", "Try again", "DB006"},

	// Cancellation and timeouts. "context deadline exceeded" must come
	// before the generic "timeout" pattern.
	{"context canceled", "The import was canceled", "Start a new import when ready", "IMP001"},
	{"context deadline exceeded", "The operation timed out", "Try a smaller file or try again later", "IMP002"},
	{"timeout", "The operation timed out", "Try a smaller file or try again later", "IMP002"},
	{"too many imports", "The system is busy processing other imports", "Wait a moment and try again", "IMP003"},
}

const fallbackMessage = "An unexpected error occurred while saving (Code: ERR000). Try again or contact support"

// UserMessage converts a technical persistence error into the message
// recorded on each affected row. Format: "Message (Code: XXX). Action".
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return fmt.Sprintf("%s (Code: %s). %s", ep.message, ep.code, ep.action)
		}
	}
	return fallbackMessage
}
