package models

import "time"

// PacExecutionStatus is the lifecycle state of a scheduled plan execution.
type PacExecutionStatus string

// Execution states. Pending executions await user confirmation (or the
// auto-execute pipeline); confirming one creates a Transaction.
const (
	PacExecPending  PacExecutionStatus = "pending"
	PacExecExecuted PacExecutionStatus = "executed"
	PacExecSkipped  PacExecutionStatus = "skipped"
	PacExecFailed   PacExecutionStatus = "failed"
)

// PacExecution is one materialized due date of a PacRule. The unique
// (rule, due date) index makes due-date generation idempotent.
type PacExecution struct {
	Base
	RuleID        string             `gorm:"type:uuid;not null;uniqueIndex:idx_pac_exec_rule_due" json:"rule_id"`
	DueDate       time.Time          `gorm:"not null;uniqueIndex:idx_pac_exec_rule_due" json:"due_date"`
	Status        PacExecutionStatus `gorm:"size:20;not null;default:'pending'" json:"status"`
	TransactionID *string            `gorm:"type:uuid" json:"transaction_id,omitempty"`
	FailureReason string             `gorm:"size:500" json:"failure_reason,omitempty"`

	Rule *PacRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
}
