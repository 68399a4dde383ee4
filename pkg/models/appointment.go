package models

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is the snapshot of an appointment handed to the realtime and
// webhook layers by the booking handlers. It is a wire shape, not a table:
// the relational schema lives outside this service.
type Appointment struct {
	ID        uuid.UUID  `json:"id"`
	CompanyID string     `json:"company_id"`
	ClientID  string     `json:"client_id,omitempty"`
	StaffID   string     `json:"staff_id,omitempty"`
	Status    string     `json:"status"`
	StartsAt  time.Time  `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`

	Client  *ClientSnapshot  `json:"client,omitempty"`
	Service *ServiceSnapshot `json:"service,omitempty"`
	Staff   *StaffSnapshot   `json:"staff,omitempty"`
}

// ClientSnapshot carries the client fields projected into events
type ClientSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ServiceSnapshot carries the service fields projected into events.
// Price is in cents.
type ServiceSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Duration int    `json:"duration_minutes,omitempty"`
}

// StaffSnapshot carries the staff member fields projected into events
type StaffSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Payment is the snapshot of a received payment handed to the webhook layer
type Payment struct {
	ID            uuid.UUID `json:"id"`
	CompanyID     string    `json:"company_id"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	ClientID      string    `json:"client_id,omitempty"`
	Amount        int64     `json:"amount"`
	Method        string    `json:"method,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
}
