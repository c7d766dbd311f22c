package kafka

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProducerClosed is returned by Publish after Close.
	ErrProducerClosed = errors.New("kafka producer is closed")
	// ErrConsumerClosed is returned by Start after Close.
	ErrConsumerClosed = errors.New("kafka consumer is closed")
	// ErrInvalidMessage marks a message the builder refused to build.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrEmptyKey is returned when a message has no partition key.
	ErrEmptyKey       = errors.New("message key cannot be empty")
	// ErrEmptyValue is returned when a message has no payload.
	ErrEmptyValue     = errors.New("message value cannot be empty")
)

// ErrorType says whether a failed operation is worth retrying.
type ErrorType int

const (
	// ErrorTypeUnknown is the classification of a nil error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeTransient covers network and broker hiccups.
	ErrorTypeTransient
	// ErrorTypePermanent covers bad payloads and configuration.
	ErrorTypePermanent
)

// KafkaError tags an error as worth retrying or not.
type KafkaError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *KafkaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *KafkaError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable.
func NewTransientError(message string, err error) *KafkaError {
	return &KafkaError{Type: ErrorTypeTransient, Message: message, Err: err}
}

// NewPermanentError wraps err as not retryable.
func NewPermanentError(message string, err error) *KafkaError {
	return &KafkaError{Type: ErrorTypePermanent, Message: message, Err: err}
}

// transientPatterns match lower-cased error text from the client and the OS.
var transientPatterns = []string{
	"connection refused",
	"timeout",
	"deadline exceeded",
	"no such host",
	"network is unreachable",
	"broken pipe",
	"connection reset",
	"temporary failure",
	"leader not available",
	"not leader for partition",
}

// ClassifyError reports whether err is transient. Unrecognised errors are
// treated as permanent.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var kafkaErr *KafkaError
	if errors.As(err, &kafkaErr) {
		return kafkaErr.Type
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return ErrorTypeTransient
		}
	}
	return ErrorTypePermanent
}

// ShouldRetry reports whether err is transient and the retry budget is not spent.
func ShouldRetry(err error, currentRetries, maxRetries int) bool {
	if err == nil || currentRetries >= maxRetries {
		return false
	}
	return ClassifyError(err) == ErrorTypeTransient
}
