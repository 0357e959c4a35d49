package models

import "time"

// ReportStatus tracks whether a moderation report has been handled.
type ReportStatus string

const (
	ReportStatusOpen     ReportStatus = "OPEN"
	ReportStatusResolved ReportStatus = "RESOLVED"
)

// Report is a user complaint filed against a listing, reviewed by admins.
type Report struct {
	ID         string       `db:"id" json:"id"`
	ListingID  string       `db:"listing_id" json:"listing_id"`
	ReporterID string       `db:"reporter_id" json:"reporter_id"`
	Reason     string       `db:"reason" json:"reason"`
	Status     ReportStatus `db:"status" json:"status"`
	ResolvedBy *string      `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time   `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// ReportDetail joins reporter and listing context for the admin queue.
type ReportDetail struct {
	Report
	ReporterName string `db:"reporter_name" json:"reporter_name"`
	ListingTitle string `db:"listing_title" json:"listing_title"`
}

// ReportFilter narrows the admin moderation queue.
type ReportFilter struct {
	Status    *ReportStatus
	ListingID string
	Page      int
	PageSize  int
}

// CreateReportRequest is the payload for filing a complaint.
type CreateReportRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	Reason    string `json:"reason" validate:"required,max=2000"`
}
