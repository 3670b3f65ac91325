package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/scheduling"
)

const maxBodyBytes = 1 << 20

// naive timestamps without an offset are read as UTC
var naiveLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04"}

type timestamp struct{ time.Time }

func (ts *timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return errBadTimestamp
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		ts.Time = t
		return nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			ts.Time = t
			return nil
		}
	}
	return errBadTimestamp
}

var errBadTimestamp = model.Validation("appointment_datetime must be an ISO 8601 timestamp")

type createBody struct {
	PatientID           int64     `json:"patient_id"`
	DoctorID            int64     `json:"doctor_id"`
	ClinicID            int64     `json:"clinic_id"`
	AppointmentDatetime timestamp `json:"appointment_datetime"`
	DurationMinutes     *int      `json:"duration_minutes"`
	AppointmentType     string    `json:"appointment_type"`
	Notes               string    `json:"notes"`
	Symptoms            string    `json:"symptoms"`
	CreatedBy           string    `json:"created_by"`
}

type updateBody struct {
	AppointmentDatetime *timestamp `json:"appointment_datetime"`
	Status              *string    `json:"status"`
	Notes               *string    `json:"notes"`
	Symptoms            *string    `json:"symptoms"`
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var me *model.Error
		if errors.As(err, &me) {
			return me
		}
		return model.Validation("invalid request body")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, model.Validation("appointment id must be an integer")
	}
	return id, nil
}

// principal is always present behind RequireSession.
func principal(r *http.Request) model.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (s *Server) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.sched.Create(r.Context(), principal(r), scheduling.CreateRequest{
		PatientID:       body.PatientID,
		DoctorID:        body.DoctorID,
		ClinicID:        body.ClinicID,
		StartTime:       body.AppointmentDatetime.Time,
		DurationMinutes: body.DurationMinutes,
		Type:            body.AppointmentType,
		Notes:           body.Notes,
		Symptoms:        body.Symptoms,
		CreatedBy:       body.CreatedBy,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := scheduling.ListRequest{Status: q.Get("status")}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(w, r, model.Validation("limit must be an integer"))
			return
		}
		req.Limit = &n
	}
	out, err := s.sched.List(r.Context(), principal(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.sched.Get(r.Context(), principal(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body updateBody
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	req := scheduling.UpdateRequest{
		Status:   body.Status,
		Notes:    body.Notes,
		Symptoms: body.Symptoms,
	}
	if body.AppointmentDatetime != nil {
		req.StartTime = &body.AppointmentDatetime.Time
	}
	out, err := s.sched.Update(r.Context(), principal(r), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.sched.Delete(r.Context(), principal(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment deleted successfully"})
}
