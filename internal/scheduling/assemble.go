package scheduling

import (
	"time"

	"clinic-scheduler/internal/model"
)

type AppointmentResponse struct {
	ID                  int64  `json:"id"`
	PatientID           int64  `json:"patient_id"`
	DoctorID            int64  `json:"doctor_id"`
	ClinicID            int64  `json:"clinic_id"`
	AppointmentDatetime string `json:"appointment_datetime"`
	AppointmentType     string `json:"appointment_type"`
	DurationMinutes     int    `json:"duration_minutes"`
	Notes               string `json:"notes"`
	Symptoms            string `json:"symptoms"`
	Status              string `json:"status"`
	CreatedBy           string `json:"created_by"`
	CreatedDatetime     string `json:"created_datetime"`
	UpdatedDatetime     string `json:"updated_datetime"`
	PatientName         string `json:"patient_name"`
	DoctorName          string `json:"doctor_name"`
	ClinicName          string `json:"clinic_name"`

	// Full-precision times for binary transports.
	StartTime time.Time `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type AppointmentSummary struct {
	ID                  int64  `json:"id"`
	PatientName         string `json:"patient_name"`
	DoctorName          string `json:"doctor_name"`
	ClinicName          string `json:"clinic_name"`
	AppointmentDatetime string `json:"appointment_datetime"`
	Status              string `json:"status"`
	AppointmentType     string `json:"appointment_type"`
	DurationMinutes     int    `json:"duration_minutes"`

	StartTime time.Time `json:"-"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func Assemble(r *model.AppointmentRecord) *AppointmentResponse {
	return &AppointmentResponse{
		ID:                  r.ID,
		PatientID:           r.PatientID,
		DoctorID:            r.DoctorID,
		ClinicID:            r.ClinicID,
		AppointmentDatetime: formatTime(r.StartTime),
		AppointmentType:     r.Type,
		DurationMinutes:     r.DurationMinutes,
		Notes:               r.Notes,
		Symptoms:            r.Symptoms,
		Status:              string(r.Status),
		CreatedBy:           string(r.CreatedBy),
		CreatedDatetime:     formatTime(r.CreatedAt),
		UpdatedDatetime:     formatTime(r.UpdatedAt),
		PatientName:         r.PatientName,
		DoctorName:          r.DoctorName,
		ClinicName:          r.ClinicName,
		StartTime:           r.StartTime,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func Summarize(r *model.AppointmentRecord) AppointmentSummary {
	return AppointmentSummary{
		ID:                  r.ID,
		PatientName:         r.PatientName,
		DoctorName:          r.DoctorName,
		ClinicName:          r.ClinicName,
		AppointmentDatetime: formatTime(r.StartTime),
		Status:              string(r.Status),
		AppointmentType:     r.Type,
		DurationMinutes:     r.DurationMinutes,
		StartTime:           r.StartTime,
	}
}

func SummarizeAll(rs []model.AppointmentRecord) []AppointmentSummary {
	out := make([]AppointmentSummary, 0, len(rs))
	for i := range rs {
		out = append(out, Summarize(&rs[i]))
	}
	return out
}
