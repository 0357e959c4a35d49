package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReceiptStatus captures background receipt job lifecycle states.
type ReceiptStatus string

const (
	ReceiptStatusQueued     ReceiptStatus = "QUEUED"
	ReceiptStatusProcessing ReceiptStatus = "PROCESSING"
	ReceiptStatusFinished   ReceiptStatus = "FINISHED"
	ReceiptStatusFailed     ReceiptStatus = "FAILED"
)

// ReceiptJob persisted background job metadata for PDF receipt generation.
type ReceiptJob struct {
	ID            string        `db:"id" json:"id"`
	TransactionID string        `db:"transaction_id" json:"transaction_id"`
	Params        ReceiptParams `db:"params" json:"params"`
	Status        ReceiptStatus `db:"status" json:"status"`
	ResultURL     *string       `db:"result_url" json:"result_url,omitempty"`
	CreatedBy     string        `db:"created_by" json:"created_by"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	FinishedAt    *time.Time    `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage  *string       `db:"error_message" json:"error_message,omitempty"`
}

// ReceiptParams stores the rendered receipt's inputs persisted as JSONB, so
// the worker does not depend on the transaction row staying unchanged.
type ReceiptParams struct {
	BuyerName    string    `json:"buyerName"`
	BuyerEmail   string    `json:"buyerEmail"`
	ListingTitle string    `json:"listingTitle"`
	ListingCity  string    `json:"listingCity"`
	AmountMinor  int64     `json:"amountMinor"`
	Currency     string    `json:"currency"`
	PaidAt       time.Time `json:"paidAt"`
	Segments     []string  `json:"segments,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p ReceiptParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal receipt params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ReceiptParams) Scan(value interface{}) error {
	if value == nil {
		*p = ReceiptParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReceiptParams", value)
	}
	if len(data) == 0 {
		*p = ReceiptParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal receipt params: %w", err)
	}
	return nil
}
