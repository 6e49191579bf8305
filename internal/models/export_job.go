package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportKind names the dataset an export job renders.
type ExportKind string

const (
	ExportKindSubstituteReport ExportKind = "substitute_report"
	ExportKindAuditLog         ExportKind = "audit_log"
)

// ExportJobStatus tracks a queued export through the worker.
type ExportJobStatus string

const (
	ExportJobQueued   ExportJobStatus = "QUEUED"
	ExportJobRunning  ExportJobStatus = "RUNNING"
	ExportJobFinished ExportJobStatus = "FINISHED"
	ExportJobFailed   ExportJobStatus = "FAILED"
)

// ExportJob is a background export persisted in export_jobs.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	Kind         ExportKind      `db:"kind" json:"kind"`
	Params       ExportJobParams `db:"params" json:"params"`
	Status       ExportJobStatus `db:"status" json:"status"`
	RowCount     int             `db:"row_count" json:"row_count"`
	FileName     *string         `db:"file_name" json:"-"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RequestedBy  string          `db:"requested_by" json:"requested_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	StatusURL    string          `db:"-" json:"status_url,omitempty"`
}

// ExportJobParams replays the request filters in the worker. Stored as JSONB.
type ExportJobParams struct {
	Format    string     `json:"format"`
	StartDate string     `json:"start_date,omitempty"`
	EndDate   string     `json:"end_date,omitempty"`
	TeacherID string     `json:"teacher_id,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	Action    string     `json:"action,omitempty"`
	Resource  string     `json:"resource,omitempty"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
}

// Value marshals params for the JSONB column.
func (p ExportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export job params: %w", err)
	}
	return data, nil
}

// Scan decodes the JSONB column.
func (p *ExportJobParams) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*p = ExportJobParams{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExportJobParams", value)
	}
	if len(data) == 0 {
		*p = ExportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export job params: %w", err)
	}
	return nil
}

// AuditFilter rebuilds the audit filter captured in the params.
func (p ExportJobParams) AuditFilter() AuditLogFilter {
	return AuditLogFilter{UserID: p.UserID, Action: p.Action, Resource: p.Resource, From: p.From, To: p.To}
}

// ReportFilter rebuilds the substitute report filter captured in the params.
func (p ExportJobParams) ReportFilter() SubstituteReportFilter {
	return SubstituteReportFilter{StartDate: p.StartDate, EndDate: p.EndDate, TeacherID: p.TeacherID}
}
