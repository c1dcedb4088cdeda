package schema

// messages.go maps errors to operator-facing messages with a support code.
//
// # Error Codes Reference
//
// Schema Errors (SCH001-SCH099):
//
//	SCH001 - Unknown model: The model name is not registered
//	         Action: Run "csvtools models" to list valid names
//	SCH002 - Header mismatch: The CSV header does not match the model columns
//	         Action: Compare the header with "csvtools models <name>"
//
// Row Errors (ROW001-ROW099):
//
//	ROW001 - Column count: A record has the wrong number of fields
//	ROW002 - Invalid number: A Type N column holds a non-numeric value
//	ROW003 - Invalid date: A date column does not match yyyy-MM-dd[ HH:mm:ss]
//	ROW004 - Required field: A Type N column is empty
//	ROW005 - Key extraction: A record is too short to reach its key columns
//
// File Errors (FILE001-FILE099):
//
//	FILE001 - File not found
//	FILE002 - Invalid CSV
//	FILE003 - Empty file
//	FILE004 - Permission denied
//
// Target Errors:
//
//	AWS001 - DynamoDB rejected or throttled the batch
//	AWS002 - AWS credentials could not be resolved
//	DB001  - Database unreachable
//	DB002  - Staging table problem
//
// Run Errors:
//
//	RUN001 - Cancelled
//	RUN002 - Timed out
//
// ERR000 is the fallback when nothing matches.
//
// Typed errors from this package are matched first with errors.As; anything
// else falls through to case-insensitive substring patterns, first match wins.

import (
	"errors"
	"strings"
)

// UserMessage provides operator-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgUnknownModel = UserMessage{
		Message: "The model name is not registered",
		Action:  `Run "csvtools models" to list valid names`,
		Code:    "SCH001",
	}
	msgHeaderMismatch = UserMessage{
		Message: "The CSV header does not match the model columns",
		Action:  `Compare the header with "csvtools models <name>"`,
		Code:    "SCH002",
	}
	msgColumnCount = UserMessage{
		Message: "A record has the wrong number of fields",
		Action:  "Check for unquoted commas or truncated lines",
		Code:    "ROW001",
	}
	msgInvalidNumber = UserMessage{
		Message: "A numeric column holds a non-numeric value",
		Action:  "Remove thousands separators, spaces and leading '+' signs",
		Code:    "ROW002",
	}
	msgInvalidDate = UserMessage{
		Message: "A date column has an unexpected format",
		Action:  "Use yyyy-MM-dd or yyyy-MM-dd HH:mm:ss",
		Code:    "ROW003",
	}
	msgRequiredField = UserMessage{
		Message: "A numeric column is empty",
		Action:  "Fill the value or drop the row",
		Code:    "ROW004",
	}
	msgKeyExtraction = UserMessage{
		Message: "A record is too short to reach its key columns",
		Action:  "Review the error log for truncated lines",
		Code:    "ROW005",
	}
)

var errorPatterns = []errorPattern{
	{"unknown model", msgUnknownModel},
	{"header mismatch", msgHeaderMismatch},
	{"missing required column", msgHeaderMismatch},
	{"column count mismatch", msgColumnCount},
	{"invalid number", msgInvalidNumber},
	{"invalid date", msgInvalidDate},
	{"required field", msgRequiredField},
	{"cannot extract key", msgKeyExtraction},

	{"no such file or directory", UserMessage{
		Message: "File not found",
		Action:  "Check the path and try again",
		Code:    "FILE001",
	}},
	{"parse error on line", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated with balanced quotes",
		Code:    "FILE002",
	}},
	{"empty file", UserMessage{
		Message: "The file is empty",
		Action:  "Provide a CSV file with a header line",
		Code:    "FILE003",
	}},
	{"permission denied", UserMessage{
		Message: "Permission denied",
		Action:  "Check file permissions on the input and output paths",
		Code:    "FILE004",
	}},

	{"provisionedthroughputexceeded", UserMessage{
		Message: "DynamoDB throttled the import",
		Action:  "Raise table capacity or retry with a smaller DYNAMO_BATCH_SIZE",
		Code:    "AWS001",
	}},
	{"resourcenotfoundexception", UserMessage{
		Message: "The DynamoDB table does not exist",
		Action:  "Check the table name and DYNAMO_REGION",
		Code:    "AWS001",
	}},
	{"failed to retrieve credentials", UserMessage{
		Message: "AWS credentials could not be resolved",
		Action:  "Set AWS_PROFILE or AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY",
		Code:    "AWS002",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Check DATABASE_URL and that the server is running",
		Code:    "DB001",
	}},
	{"database_url", UserMessage{
		Message: "Database connection is not configured",
		Action:  "Set DATABASE_URL",
		Code:    "DB001",
	}},
	{"staging table", UserMessage{
		Message: "The staging table could not be prepared",
		Action:  "Check DB_SCHEMA exists and the user may create tables in it",
		Code:    "DB002",
	}},

	{"context canceled", UserMessage{
		Message: "The run was cancelled",
		Action:  "Outputs written so far are complete up to the last record processed",
		Code:    "RUN001",
	}},
	{"deadline exceeded", UserMessage{
		Message: "The run timed out",
		Action:  "Try again or split the input",
		Code:    "RUN002",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Re-run with LOG_LEVEL=debug and check the logs",
	Code:    "ERR000",
}

// MapError converts an error into an operator-friendly message.
// Returns an empty UserMessage for nil.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		notFound *NotFoundError
		header   *HeaderMismatchError
		count    *ColumnCountError
		field    *FieldError
		extract  *ExtractionError
	)
	switch {
	case errors.As(err, &notFound):
		return msgUnknownModel
	case errors.As(err, &header):
		return msgHeaderMismatch
	case errors.As(err, &count):
		return msgColumnCount
	case errors.As(err, &field):
		return fieldMessage(field)
	case errors.As(err, &extract):
		return msgKeyExtraction
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}

func fieldMessage(fe *FieldError) UserMessage {
	if strings.TrimSpace(fe.Value) == "" {
		return msgRequiredField
	}
	if fe.Type == FieldDate {
		return msgInvalidDate
	}
	return msgInvalidNumber
}

// FormatUserError returns "message (code)" for display.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Code == "" {
		return ""
	}
	return msg.Message + " (" + msg.Code + ")"
}
