package faq

import "errors"

// Error codes carried by apperrors.AppError values produced in this package.
const (
	CodeInvalidInput          = "invalid_input"
	CodeStoreUnavailable      = "store_unavailable"
	CodeIndexUnavailable      = "index_unavailable"
	CodeGenerativeUnreachable = "generative_unreachable"
	CodeGenerativeTimeout     = "generative_timeout"
	CodeFAQError              = "faq_error"
)

// ErrEmptyCorpus is returned when an index is built from zero entries.
var ErrEmptyCorpus = errors.New("faq corpus is empty")
