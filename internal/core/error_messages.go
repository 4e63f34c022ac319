// error_messages.go translates internal errors into stable, user-facing
// messages.
//
// Errors born in this package carry a sentinel (see errors.go) and map by
// identity. Errors born in drivers and networks arrive as opaque strings,
// so a pattern table catches the recognizable ones. Every mapping carries a
// short code that support can grep for in logs.
//
// Code reference:
//
//	CFG001 - request configuration invalid
//	IMP001 - unsupported import type
//	ENG001 - unknown or misconfigured engine
//	ENG002 - table creation rejected by engine
//	ENG003 - engine permission denied
//	ENG004 - table already exists
//	FMT001 - unsupported storage format
//	SRC001 - source unreadable or malformed
//	SRC002 - schema inference found no usable columns
//	SRC003 - query execution not found
//	DDL001 - DDL rendering failed
//	STG001 - staging write failed
//	LOD001 - row loading failed, table rolled back
//	UPL001 - too many concurrent uploads
//	UPL002 - upload record not found
//	UPL003 - upload timed out
//	UPL004 - upload canceled
//	NET001 - engine unreachable
//	NET002 - connection dropped mid-operation
//	NET003 - network timeout
//	REQ001 - request body too large
//	ERR000 - unclassified
package core

import (
	"errors"
	"strings"
)

// UserMessage is the client-safe rendering of an error.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

// sentinelMessage pairs a sentinel with its user-facing text. Order matters
// only where sentinels wrap each other, which they do not.
type sentinelMessage struct {
	target  error
	message UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrConfigValidation, UserMessage{
		Message: "The request configuration is invalid.",
		Action:  "Check the import and table configuration fields and try again.",
		Code:    "CFG001",
	}},
	{ErrUnsupportedImportType, UserMessage{
		Message: "This import type is not supported.",
		Action:  "Use one of the supported import types: delimited, spreadsheet, fixed_width, or query_result.",
		Code:    "IMP001",
	}},
	{ErrUnsupportedEngine, UserMessage{
		Message: "The requested engine is not configured.",
		Action:  "Check the engine id against the engines this deployment serves.",
		Code:    "ENG001",
	}},
	{ErrUnsupportedStorageFormat, UserMessage{
		Message: "The engine's dialect cannot create tables in this storage format.",
		Action:  "Pick a storage format the target dialect supports.",
		Code:    "FMT001",
	}},
	{ErrSourceRead, UserMessage{
		Message: "The uploaded data could not be read.",
		Action:  "Verify the file is intact and matches the declared import type.",
		Code:    "SRC001",
	}},
	{ErrSchemaInference, UserMessage{
		Message: "No usable columns were found in the data.",
		Action:  "Verify the file has at least one column and the header setting is correct.",
		Code:    "SRC002",
	}},
	{ErrExecutionNotFound, UserMessage{
		Message: "The referenced query execution does not exist.",
		Action:  "Check the execution id; results may have expired.",
		Code:    "SRC003",
	}},
	{ErrRender, UserMessage{
		Message: "The CREATE TABLE statement could not be generated.",
		Action:  "Check the column names and types in the table configuration.",
		Code:    "DDL001",
	}},
	{ErrStage, UserMessage{
		Message: "Writing data to external storage failed.",
		Action:  "Try again; if it persists, contact an administrator about the object store.",
		Code:    "STG001",
	}},
	{ErrCreate, UserMessage{
		Message: "The engine rejected the CREATE TABLE statement.",
		Action:  "Check that the table does not already exist and the name is valid for the engine.",
		Code:    "ENG002",
	}},
	{ErrLoad, UserMessage{
		Message: "Loading rows failed and the table was rolled back.",
		Action:  "Check the data for values that do not fit the declared column types and retry.",
		Code:    "LOD001",
	}},
	{ErrTooManyUploads, UserMessage{
		Message: "Too many uploads are running right now.",
		Action:  "Wait a moment and try again.",
		Code:    "UPL001",
	}},
	{ErrUploadNotFound, UserMessage{
		Message: "No upload with that id was found.",
		Action:  "Check the upload id; records may not be persisted on this deployment.",
		Code:    "UPL002",
	}},
}

// errorPattern matches raw error text case-insensitively. First match wins,
// so specific phrases come before generic ones.
type errorPattern struct {
	substring string
	message   UserMessage
}

var errorPatterns = []errorPattern{
	{"context deadline exceeded", UserMessage{
		Message: "The upload ran out of time.",
		Action:  "Retry with a smaller file, or ask an administrator to raise the upload timeout.",
		Code:    "UPL003",
	}},
	{"context canceled", UserMessage{
		Message: "The upload was canceled before it finished.",
		Action:  "Retry the upload.",
		Code:    "UPL004",
	}},
	{"request body too large", UserMessage{
		Message: "The uploaded file exceeds the size limit.",
		Action:  "Split the file or ask an administrator to raise the limit.",
		Code:    "REQ001",
	}},
	{"connection refused", UserMessage{
		Message: "The engine is not reachable.",
		Action:  "Try again shortly; if it persists, contact an administrator.",
		Code:    "NET001",
	}},
	{"connection reset", UserMessage{
		Message: "The connection to the engine was dropped.",
		Action:  "Retry the upload.",
		Code:    "NET002",
	}},
	{"already exists", UserMessage{
		Message: "A table with this name already exists on the engine.",
		Action:  "Choose a different table name or drop the existing table first.",
		Code:    "ENG004",
	}},
	{"permission denied", UserMessage{
		Message: "The engine refused the operation.",
		Action:  "Contact an administrator about the engine credentials.",
		Code:    "ENG003",
	}},
	{"access denied", UserMessage{
		Message: "The engine refused the operation.",
		Action:  "Contact an administrator about the engine credentials.",
		Code:    "ENG003",
	}},
	{"timeout", UserMessage{
		Message: "The operation timed out.",
		Action:  "Retry; if it persists, contact an administrator.",
		Code:    "NET003",
	}},
}

// genericMessage is the fallback for anything unclassified. Internal detail
// stays in the logs.
var genericMessage = UserMessage{
	Message: "Something went wrong processing the upload.",
	Action:  "Try again; if the problem persists, contact an administrator with the error code.",
	Code:    "ERR000",
}

// MapError converts any error into its user-facing message.
func MapError(err error) UserMessage {
	if err == nil {
		return genericMessage
	}
	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.message
		}
	}
	text := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(text, p.substring) {
			return p.message
		}
	}
	return genericMessage
}
