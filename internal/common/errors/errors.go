// Package errors provides standardized error handling for the decision
// workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Evaluation / engine errors
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeModelArtifactInvalid ErrorCode = "MODEL_ARTIFACT_INVALID"
	ErrCodeEvaluationFailed     ErrorCode = "EVALUATION_FAILED"

	// Degradation signals. These never fail an evaluation; they are carried
	// as codes so workers and dashboards can count them.
	ErrCodeExplanationDegraded ErrorCode = "EXPLANATION_DEGRADED"
	ErrCodeKnowledgeRuleMiss   ErrorCode = "KNOWLEDGE_RULE_MISS"

	// Fraud screen
	ErrCodeFraudBlocked ErrorCode = "FRAUD_BLOCKED"

	// Persistence
	ErrCodeDecisionRecordFailed ErrorCode = "DECISION_RECORD_FAILED"
	ErrCodeDuplicateDecision    ErrorCode = "DUPLICATE_DECISION"

	// Notification
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationFailedError creates a non-retryable feature validation error.
// Details should name the offending field(s).
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Application feature validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewModelArtifactInvalidError creates a non-retryable artifact load error.
func NewModelArtifactInvalidError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeModelArtifactInvalid,
		Message:   "Classifier artifact failed schema validation",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEvaluationFailedError creates a retryable evaluation error.
func NewEvaluationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEvaluationFailed,
		Message:   "Decision evaluation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExplanationDegradedError marks an evaluation whose explanation produced
// no significant attributions. Informational only.
func NewExplanationDegradedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExplanationDegraded,
		Message:   "Local explanation produced no significant attributions",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFraudBlockedError creates a non-retryable hard-fraud error.
func NewFraudBlockedError(flags string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFraudBlocked,
		Message:   "Application blocked by fraud screen",
		Details:   flags,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDecisionRecordFailedError creates a retryable persistence error.
func NewDecisionRecordFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecisionRecordFailed,
		Message:   "Decision record insert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateDecisionError creates a non-retryable duplicate record error.
func NewDuplicateDecisionError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateDecision,
		Message:   "Decision already recorded for application",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Review notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDecisionRecordFailed,
		ErrCodeNotificationSendFailed:
		return 3 // Retryable technical errors

	case ErrCodeEvaluationFailed:
		return 1 // Evaluation is deterministic; one retry covers transient infra

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for the engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "ARTIFACT"):
		return "VALIDATION"
	case strings.Contains(codeStr, "FRAUD"):
		return "FRAUD"
	case strings.Contains(codeStr, "EXPLANATION") || strings.Contains(codeStr, "KNOWLEDGE"):
		return "EXPLANATION"
	case strings.Contains(codeStr, "RECORD") || strings.Contains(codeStr, "DECISION"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
