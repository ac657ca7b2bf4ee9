package core

// error_messages.go maps workflow errors to user-facing messages with codes
// for support reference.
//
// # Selection Errors (SEL001-SEL099)
//
//	SEL001 - No file selected: submit was triggered with no file chosen
//	         Action: Choose a CSV or XLSX file first
//	SEL002 - Unknown mode: a mode other than invoices or stock was requested
//	SEL003 - Busy: submit was triggered while a submission is outstanding
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: file exceeds the configured size limit
//	FILE002 - Unsupported file: name does not end in .csv or .xlsx
//	FILE003 - Unreadable file: contents do not match the extension
//	FILE005 - Empty file: the chosen file has no content
//
// # Service Errors (NET001-NET099, RSP001-RSP099)
//
//	NET001 - Cleaning failed: network failure or non-success status. The
//	         message is the service's own response text when it sent one.
//	NET002 - System busy: too many submissions in progress
//	RSP001 - Malformed response: success status but unexpected body
//
// # Deployment Errors (CFG001-CFG099)
//
//	CFG001 - Misconfigured: the cleaning service location is not set.
//	         Not recoverable by the user.
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Sentinel and typed errors are checked first with errors.Is / errors.As.
// Remaining errors fall back to case-insensitive pattern matching, where the
// first matching pattern wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// Misconfigured reports whether the message describes a deployment problem.
func (m UserMessage) Misconfigured() bool {
	return m.Code == misconfiguredMessage.Code
}

var (
	noFileMessage = UserMessage{
		Message: "Please choose a CSV or XLSX file first.",
		Action:  "Choose a file, then press Clean",
		Code:    "SEL001",
	}
	busyMessage = UserMessage{
		Message: "System is busy processing other files",
		Action:  "Please wait a moment and try again",
		Code:    "NET002",
	}
	malformedMessage = UserMessage{
		Message: "The cleaning service returned an unexpected response",
		Action:  "Try again; if it keeps happening, contact support",
		Code:    "RSP001",
	}
	misconfiguredMessage = UserMessage{
		Message: "The cleaning service location is not configured",
		Action:  "Set AIBOX_BACKEND_URL for this deployment and restart",
		Code:    "CFG001",
	}
)

// sentinelMessages maps sentinel errors to messages, checked via errors.Is.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrNoFileSelected, noFileMessage},
	{ErrMisconfigured, misconfiguredMessage},
	{ErrUnknownMode, UserMessage{
		Message: "Unknown processing mode",
		Action:  "Choose Invoices or Stock",
		Code:    "SEL002",
	}},
	{ErrSubmitInFlight, UserMessage{
		Message: "A file is already being cleaned",
		Action:  "Wait for the current run to finish",
		Code:    "SEL003",
	}},
	{ErrTooManySubmissions, busyMessage},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{ErrUnsupportedFile, UserMessage{
		Message: "Only CSV or XLSX files are allowed",
		Action:  "Save the file as .csv or .xlsx",
		Code:    "FILE002",
	}},
	{ErrUnreadableFile, UserMessage{
		Message: "The file could not be read",
		Action:  "Check that the file contents match its extension",
		Code:    "FILE003",
	}},
	{ErrEmptyFile, UserMessage{
		Message: "The chosen file is empty",
		Action:  "Please choose a file with data rows",
		Code:    "FILE005",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that arrive without a typed wrapper.
var errorPatterns = []errorPattern{
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "NET001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the cleaning service",
			Action:  "Please try again in a few moments",
			Code:    "NET001",
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

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
// Transport errors keep the service's text verbatim so the user sees what
// the server said:
//
//	msg := MapError(NewStatusError(400, "bad file"))
//	// msg.Code == "NET001"
//	// msg.Message == "bad file"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	var me *MalformedResponseError
	if errors.As(err, &me) {
		return malformedMessage
	}

	var te *TransportError
	if errors.As(err, &te) {
		action := "Check the file and options, then press Clean again"
		if te.Status == 0 {
			action = "Check your connection, then press Clean again"
		}
		return UserMessage{Message: te.Message, Action: action, Code: "NET001"}
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
