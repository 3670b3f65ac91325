package model

import (
	"strings"
	"time"
)

// Role tags a principal. Checks compare tags, never display strings.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleDoctor
	RolePatient
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleDoctor:
		return "Doctor"
	case RolePatient:
		return "Patient"
	case RoleAdmin:
		return "Admin"
	}
	return "Unknown"
}

// ParseRole accepts the login spellings. Admin is not a login role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "Doctor":
		return RoleDoctor, true
	case "Patient":
		return RolePatient, true
	}
	return RoleUnknown, false
}

type Principal struct {
	ID          int64
	Role        Role
	DisplayName string
}

type Session struct {
	TokenHash      string
	PrincipalID    int64
	Role           Role
	DisplayName    string
	ClientIP       string
	UserAgent      string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// ClientInfo is recorded on a session at login.
type ClientInfo struct {
	IP        string
	UserAgent string
}

func (s *Session) Principal() Principal {
	return Principal{ID: s.PrincipalID, Role: s.Role, DisplayName: s.DisplayName}
}

// Account is the credential row of a doctor or patient.
type Account struct {
	ID           int64
	Role         Role
	Username     string
	PasswordHash string
	Name         string
}

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
	StatusNoShow    Status = "No Show"
)

// ParseStatus returns the canonical status. "NoShow" is accepted as an alias.
func ParseStatus(s string) (Status, bool) {
	switch strings.TrimSpace(s) {
	case "Scheduled":
		return StatusScheduled, true
	case "Confirmed":
		return StatusConfirmed, true
	case "Completed":
		return StatusCompleted, true
	case "Cancelled":
		return StatusCancelled, true
	case "No Show", "NoShow":
		return StatusNoShow, true
	}
	return "", false
}

// Active reports whether the status takes part in conflict detection.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

type CreatedBy string

const (
	CreatedByDoctor  CreatedBy = "Doctor"
	CreatedByPatient CreatedBy = "Patient"
	CreatedByAdmin   CreatedBy = "Admin"
)

func ParseCreatedBy(s string) (CreatedBy, bool) {
	switch CreatedBy(s) {
	case CreatedByDoctor, CreatedByPatient, CreatedByAdmin:
		return CreatedBy(s), true
	}
	return "", false
}

const (
	DefaultDuration        = 30
	MinDuration            = 15
	MaxDuration            = 180
	DefaultAppointmentType = "General Consultation"
	MaxAppointmentTypeLen  = 50
)

type Appointment struct {
	ID              int64
	PatientID       int64
	DoctorID        int64
	ClinicID        int64
	StartTime       time.Time
	DurationMinutes int
	Type            string
	Status          Status
	Notes           string
	Symptoms        string
	CreatedBy       CreatedBy
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// AppointmentRecord is an appointment joined with the names of the
// patient, doctor and clinic it references.
type AppointmentRecord struct {
	Appointment
	PatientName string
	DoctorName  string
	ClinicName  string
}
