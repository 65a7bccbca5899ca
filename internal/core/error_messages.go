package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage is the user-facing form of an error.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference, see the package documentation
}

// kindMessages covers every ErrorKind. Row numbers and names stay in the
// ImportError text; these messages describe the category.
var kindMessages = map[ErrorKind]UserMessage{
	KindFileNotFound: {
		Message: "The file could not be found",
		Action:  "Upload the file again",
		Code:    "FILE001",
	},
	KindUnsupportedFileType: {
		Message: "This file type is not supported",
		Action:  "Upload a .csv or .xlsx file",
		Code:    "FILE002",
	},
	KindEmptyOrInvalidFile: {
		Message: "The file is empty or could not be read",
		Action:  "Make sure the file has a header row and at least one data row",
		Code:    "FILE003",
	},
	KindHomeNotFound: {
		Message: "The site has no home page to import into",
		Action:  "Create the home page and try again",
		Code:    "TREE001",
	},
	KindSectionNotFound: {
		Message: "The home page has no section to import into",
		Action:  "Create the section under the home page and try again",
		Code:    "TREE002",
	},
	KindDuplicateItem: {
		Message: "An item with this name already exists",
		Action:  "Rename the row or remove it from the file",
		Code:    "ROW001",
	},
	KindUnsupportedImageExtension: {
		Message: "The image type is not allowed",
		Action:  "Use one of the selected image types",
		Code:    "ROW002",
	},
	KindImageUploadFailed: {
		Message: "The image could not be stored",
		Action:  "Check the image path in the row",
		Code:    "ROW003",
	},
	KindContentPersistFailed: {
		Message: "The item could not be saved",
		Action:  "Please try again or contact support",
		Code:    "ROW004",
	},
	KindTooFewColumns: {
		Message: "The row has fewer than four columns",
		Action:  "Fill in name, title, description and image path",
		Code:    "ROW005",
	},
	KindMissingName: {
		Message: "The row has no item name",
		Action:  "Fill in the first column",
		Code:    "ROW006",
	},
	KindMalformedRow: {
		Message: "The row could not be read",
		Action:  "Check the quotes in the row",
		Code:    "ROW007",
	},
}

// sentinelMessages is checked in order with errors.Is.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{ErrNoFiles, UserMessage{
		Message: "No file selected.",
		Action:  "Choose at least one file to import",
		Code:    "REQ001",
	}},
	{ErrInvalidRequest, UserMessage{
		Message: "The import request is invalid",
		Action:  "Check the selected files and image types",
		Code:    "REQ002",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "UPL001",
	}},
	{context.Canceled, UserMessage{
		Message: "The import was cancelled",
		Action:  "Start the import again when ready",
		Code:    "UPL002",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "The import timed out",
		Action:  "Split the file into smaller files and try again",
		Code:    "UPL003",
	}},
}

// defaultMessage is returned when nothing matches. Check the logs for the
// original error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-facing message. An *ImportError maps
// by kind; other errors map by sentinel.
//
//	msg := MapError(&ImportError{Kind: KindDuplicateItem})
//	// msg.Code == "ROW001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ie *ImportError
	if errors.As(err, &ie) {
		if msg, ok := kindMessages[ie.Kind]; ok {
			return msg
		}
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	// Errors that crossed a process boundary lose their identity.
	lower := strings.ToLower(err.Error())
	for _, s := range sentinelMessages {
		if strings.Contains(lower, s.target.Error()) {
			return s.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than
// ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
