package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONB represents a PostgreSQL jsonb column.
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}
	return json.Unmarshal(bytes, j)
}

// ResearchRun archives one completed research pipeline execution.
type ResearchRun struct {
	ID          uuid.UUID `db:"id"`
	WorkflowID  string    `db:"workflow_id"`
	SessionID   string    `db:"session_id"`
	LeadName    string    `db:"lead_name"`
	LeadEmail   string    `db:"lead_email"`
	CareerField string    `db:"career_field"`
	Status      string    `db:"status"`
	Attempts    int       `db:"attempts"`
	Research    JSONB     `db:"research"`
	ErrorText   *string   `db:"error_text"`
	StartedAt   time.Time `db:"started_at"`
	CompletedAt time.Time `db:"completed_at"`
}

// Delivery archives one approved email handed to the transport.
type Delivery struct {
	ID          uuid.UUID `db:"id"`
	WorkflowID  string    `db:"workflow_id"`
	MessageID   string    `db:"message_id"`
	LeadName    string    `db:"lead_name"`
	Recipient   string    `db:"recipient"`
	Subject     string    `db:"subject"`
	BodyLength  int       `db:"body_length"`
	Attempt     int       `db:"attempt"`
	DeliveredAt time.Time `db:"delivered_at"`
}
