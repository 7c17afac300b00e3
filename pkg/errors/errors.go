package errors

import (
	"errors"
	"fmt"
)

const (
	ErrCodeFileNotFound    ErrCode = "FILE_NOT_FOUND"
	ErrCodeDocumentInvalid ErrCode = "DOCUMENT_INVALID"
	ErrCodeKeyMissing      ErrCode = "KEY_MISSING"
	ErrCodeValueInvalid    ErrCode = "VALUE_INVALID"
	ErrCodeDownloadFailed  ErrCode = "DOWNLOAD_FAILED"
	ErrCodeArchiveInvalid  ErrCode = "ARCHIVE_INVALID"
	ErrCodeDataInvalid     ErrCode = "DATA_INVALID"
	ErrCodeStorageFailed   ErrCode = "STORAGE_FAILED"
	ErrCodeInternal        ErrCode = "INTERNAL"
)

type ErrCode string

// ErrorInfo is the error type surfaced by every sumpipe package. Key
// carries the dotted configuration key for configuration errors.
type ErrorInfo struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
	Key     string  `json:"key,omitempty"`
}

func (e ErrorInfo) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func IsErrCode(err error, code ErrCode) bool {
	if err == nil {
		return false
	}
	info := ErrorInfo{}
	if errors.As(err, &info) {
		return info.Code == code
	}
	return false
}

// ErrKey returns the dotted configuration key attached to err, if any.
func ErrKey(err error) string {
	info := ErrorInfo{}
	if errors.As(err, &info) {
		return info.Key
	}
	return ""
}

func NewFileNotFoundError(path string) ErrorInfo {
	return ErrorInfo{Code: ErrCodeFileNotFound, Message: fmt.Sprintf("file not found: %s", path)}
}

func NewDocumentInvalidError(path string, err error) ErrorInfo {
	return ErrorInfo{Code: ErrCodeDocumentInvalid, Message: fmt.Sprintf("parse %s: %v", path, err)}
}

func NewKeyMissingError(key string) ErrorInfo {
	return ErrorInfo{Code: ErrCodeKeyMissing, Key: key, Message: fmt.Sprintf("required key missing: %s", key)}
}

func NewValueInvalidError(key string, reason string) ErrorInfo {
	return ErrorInfo{Code: ErrCodeValueInvalid, Key: key, Message: fmt.Sprintf("invalid value for %s: %s", key, reason)}
}

func NewDownloadFailedError(url string, err error) ErrorInfo {
	return ErrorInfo{Code: ErrCodeDownloadFailed, Message: fmt.Sprintf("download %s: %v", url, err)}
}

func NewArchiveInvalidError(msg string) ErrorInfo {
	return ErrorInfo{Code: ErrCodeArchiveInvalid, Message: msg}
}

func NewDataInvalidError(msg string) ErrorInfo {
	return ErrorInfo{Code: ErrCodeDataInvalid, Message: msg}
}

func NewStorageFailedError(err error) ErrorInfo {
	return ErrorInfo{Code: ErrCodeStorageFailed, Message: err.Error()}
}

func NewInternalError(err error) ErrorInfo {
	return ErrorInfo{Code: ErrCodeInternal, Message: err.Error()}
}
