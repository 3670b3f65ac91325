package handler

import (
	"context"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/model"
	"clinic-scheduler/internal/scheduling"
	"clinic-scheduler/internal/wire"
)

func principal(ctx context.Context) (model.Principal, error) {
	p, ok := auth.PrincipalFrom(ctx)
	if !ok {
		return model.Principal{}, model.AuthError(model.AuthMissingToken)
	}
	return p, nil
}

func toWire(a *scheduling.AppointmentResponse) *wire.Appointment {
	return &wire.Appointment{
		ID:                  a.ID,
		PatientID:           a.PatientID,
		DoctorID:            a.DoctorID,
		ClinicID:            a.ClinicID,
		AppointmentDatetime: a.StartTime,
		AppointmentType:     a.AppointmentType,
		DurationMinutes:     int32(a.DurationMinutes),
		Notes:               a.Notes,
		Symptoms:            a.Symptoms,
		Status:              a.Status,
		CreatedBy:           a.CreatedBy,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
		PatientName:         a.PatientName,
		DoctorName:          a.DoctorName,
		ClinicName:          a.ClinicName,
	}
}

func summaryToWire(s *scheduling.AppointmentSummary) *wire.AppointmentSummary {
	return &wire.AppointmentSummary{
		ID:                  s.ID,
		PatientName:         s.PatientName,
		DoctorName:          s.DoctorName,
		ClinicName:          s.ClinicName,
		AppointmentDatetime: s.StartTime,
		Status:              s.Status,
		AppointmentType:     s.AppointmentType,
		DurationMinutes:     int32(s.DurationMinutes),
	}
}

func (h *Handler) CreateAppointment(ctx context.Context, req *wire.CreateAppointmentRequest) (*wire.AppointmentReply, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, h.fail(MethodCreateAppointment, err)
	}
	in := scheduling.CreateRequest{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		ClinicID:  req.ClinicID,
		StartTime: req.AppointmentDatetime,
		Type:      req.AppointmentType,
		Notes:     req.Notes,
		Symptoms:  req.Symptoms,
		CreatedBy: req.CreatedBy,
	}
	if req.DurationMinutes != nil {
		d := int(*req.DurationMinutes)
		in.DurationMinutes = &d
	}
	out, err := h.sched.Create(ctx, p, in)
	if err != nil {
		return nil, h.fail(MethodCreateAppointment, err)
	}
	return &wire.AppointmentReply{Appointment: toWire(out)}, nil
}

func (h *Handler) ListAppointments(ctx context.Context, req *wire.ListAppointmentsRequest) (*wire.ListAppointmentsResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, h.fail(MethodListAppointments, err)
	}
	in := scheduling.ListRequest{Status: req.Status}
	if req.Limit != nil {
		l := int(*req.Limit)
		in.Limit = &l
	}
	list, err := h.sched.List(ctx, p, in)
	if err != nil {
		return nil, h.fail(MethodListAppointments, err)
	}
	out := make([]*wire.AppointmentSummary, len(list))
	for i := range list {
		out[i] = summaryToWire(&list[i])
	}
	return &wire.ListAppointmentsResponse{Appointments: out}, nil
}

func (h *Handler) GetAppointment(ctx context.Context, req *wire.AppointmentID) (*wire.AppointmentReply, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, h.fail(MethodGetAppointment, err)
	}
	out, err := h.sched.Get(ctx, p, req.ID)
	if err != nil {
		return nil, h.fail(MethodGetAppointment, err)
	}
	return &wire.AppointmentReply{Appointment: toWire(out)}, nil
}

func (h *Handler) UpdateAppointment(ctx context.Context, req *wire.UpdateAppointmentRequest) (*wire.AppointmentReply, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, h.fail(MethodUpdateAppointment, err)
	}
	out, err := h.sched.Update(ctx, p, req.ID, scheduling.UpdateRequest{
		StartTime: req.AppointmentDatetime,
		Status:    req.Status,
		Notes:     req.Notes,
		Symptoms:  req.Symptoms,
	})
	if err != nil {
		return nil, h.fail(MethodUpdateAppointment, err)
	}
	return &wire.AppointmentReply{Appointment: toWire(out)}, nil
}

func (h *Handler) DeleteAppointment(ctx context.Context, req *wire.AppointmentID) (*wire.DeleteAppointmentResponse, error) {
	p, err := principal(ctx)
	if err != nil {
		return nil, h.fail(MethodDeleteAppointment, err)
	}
	if err := h.sched.Delete(ctx, p, req.ID); err != nil {
		return nil, h.fail(MethodDeleteAppointment, err)
	}
	return &wire.DeleteAppointmentResponse{Message: "Appointment deleted successfully"}, nil
}
