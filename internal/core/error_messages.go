// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When an ingestion fails, the HTTP layer returns the code next to the message so
// users can quote it to support staff.
//
// Error codes are grouped by category:
//
// # Timeouts (UPL005)
//
//	UPL005 - Request timeout: An upstream call exceeded its deadline
//	         Action: Try again; large files may need to be split
//	         Patterns: "deadline exceeded"
//
// # Authentication (AUTH001)
//
//	AUTH001 - Unauthenticated: No principal accompanied the upload
//	          Action: Provide a valid API key
//	          Patterns: "unauthenticated"
//
// # Storage Errors (STO001-STO003)
//
//	STO001 - Artifact write failed
//	STO002 - Manifest write failed; the artifact was rolled back
//	STO003 - Object already exists
//	         Patterns: "storage artifact", "storage manifest", "object already exists"
//
// # Database Errors (DB001-DB008)
//
//	DB001 - Duplicate key                  "duplicate key"
//	DB002 - Unique constraint              "unique constraint", "violates unique"
//	DB003 - Foreign key                    "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused             "connection refused"
//	DB005 - Connection reset               "connection reset"
//	DB006 - Timeout                        "timeout"
//	DB007 - Deadlock                       "deadlock"
//	DB008 - Rows rejected by the database  "persist "
//
// # Validation Errors (VAL001-VAL004)
//
//	VAL001 - Invalid date                  "invalid date"
//	VAL002 - Invalid number                "invalid number"
//	VAL003 - Required field empty          "required field"
//	VAL004 - Required column missing       "missing required column"
//
// # File Errors (FILE001-FILE005)
//
//	FILE001 - File too large               "file too large"
//	FILE003 - Encoding error               "encoding error"
//	FILE002 - Not a readable spreadsheet   "invalid csv"
//	FILE004 - No file                      "no file provided"
//	FILE005 - Empty file                   "empty file"
//	FILE006 - Not an entity-by-date grid   "not a transposed matrix"
//
// FILE003 is matched before FILE002 because encoding failures are reported
// as parse errors and carry both phrases.
//
// # Upload and Dataset Errors
//
//	UPL002 - System busy                   "too many concurrent uploads"
//	UPL003 - Same dataset being ingested   "already in progress"
//	UPL004 - Request cancelled             "context canceled"
//	DS001  - Unknown dataset               "unknown dataset"
//	DS002  - Dataset archives only         "no relational binding"
//	RATE001 - Rate limited                 "rate limit"
//
// # Request Errors (REQ001-REQ004)
//
//	REQ001 - No tenant on the request      "missing tenant"
//	REQ002 - Malformed JSON body           "invalid json"
//	REQ003 - Invalid ingest metadata       "invalid ingest request"
//	REQ004 - Tenant unusable as a path     "invalid tenant"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Support staff should check the
// application logs for the original technical error.
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns are defined
// before general ones.
package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Deadlines and authentication
	// These are checked first: they wrap errors that would match later rows.
	// =========================================================================
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again; large files may need to be split",
			Code:    "UPL005",
		},
	},
	{
		pattern: "unauthenticated",
		msg: UserMessage{
			Message: "You are not signed in",
			Action:  "Provide a valid API key and try again",
			Code:    "AUTH001",
		},
	},

	// =========================================================================
	// Storage Errors (STO001-STO003)
	// =========================================================================
	{
		pattern: "storage artifact",
		msg: UserMessage{
			Message: "The file could not be archived",
			Action:  "Please try again in a few moments",
			Code:    "STO001",
		},
	},
	{
		pattern: "storage manifest",
		msg: UserMessage{
			Message: "The upload record could not be written; the file was not archived",
			Action:  "Please try again in a few moments",
			Code:    "STO002",
		},
	},
	{
		pattern: "object already exists",
		msg: UserMessage{
			Message: "An archive with the same name already exists",
			Action:  "Please try again",
			Code:    "STO003",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB008)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check the file for repeated rows",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your file",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure parent records are uploaded first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure parent records are uploaded first",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try uploading a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL004)
	// Row-level conversion failures are reported by dataset transforms and
	// wrapped in a persist error, so they must precede the DB008 catch-all.
	// =========================================================================
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD or DD/MM/YYYY",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use plain numbers such as 1234.56 or 1.234,56",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure all required columns have values",
			Code:    "VAL003",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from the file",
			Action:  "Check that the export includes every required column",
			Code:    "VAL004",
		},
	},
	{
		pattern: "persist ",
		msg: UserMessage{
			Message: "The rows could not be saved",
			Action:  "Review the file for invalid values and try again",
			Code:    "DB008",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "encoding error",
		msg: UserMessage{
			Message: "File contains invalid characters",
			Action:  "Save the file as UTF-8 text",
			Code:    "FILE003",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a readable spreadsheet",
			Action:  "Export the file as CSV or XLSX and try again",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "not a transposed matrix",
		msg: UserMessage{
			Message: "The file is not a date grid",
			Action:  "Upload a file whose columns after the first are dates",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Upload and dataset errors
	// =========================================================================
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "already in progress",
		msg: UserMessage{
			Message: "Another upload of this document type is still running",
			Action:  "Wait for it to finish and try again",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "unknown dataset",
		msg: UserMessage{
			Message: "Unknown document type",
			Action:  "Choose one of the supported document types",
			Code:    "DS001",
		},
	},
	{
		pattern: "no relational binding",
		msg: UserMessage{
			Message: "This document type is archived only",
			Action:  "Upload the file without row data",
			Code:    "DS002",
		},
	},
	{
		pattern: "missing tenant",
		msg: UserMessage{
			Message: "The request does not name a tenant",
			Action:  "Send the X-Tenant-ID header",
			Code:    "REQ001",
		},
	},
	{
		pattern: "invalid json",
		msg: UserMessage{
			Message: "The request body is not valid JSON",
			Action:  "Check the request format and try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid ingest request",
		msg: UserMessage{
			Message: "The upload details are incomplete or too long",
			Action:  "Check the file name, tenant and source and try again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "invalid tenant",
		msg: UserMessage{
			Message: "The tenant id cannot be used as a storage prefix",
			Action:  "Use a tenant id without '/', '\\' or '..'",
			Code:    "REQ004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first pattern match, or the ERR000 fallback.
//
// Example:
//
//	err := &StructuralError{Dataset: "roster", Missing: []string{"national_id"}}
//	msg := MapError(err)
//	// msg.Code == "VAL004"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
