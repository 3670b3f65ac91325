package handler

import (
	"context"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/scheduling"
	"clinic-scheduler/internal/wire"
)

const ServiceName = "appointment.v1.ScheduleService"

const (
	MethodLogin             = "/" + ServiceName + "/Login"
	MethodLogout            = "/" + ServiceName + "/Logout"
	MethodCreateAppointment = "/" + ServiceName + "/CreateAppointment"
	MethodListAppointments  = "/" + ServiceName + "/ListAppointments"
	MethodGetAppointment    = "/" + ServiceName + "/GetAppointment"
	MethodUpdateAppointment = "/" + ServiceName + "/UpdateAppointment"
	MethodDeleteAppointment = "/" + ServiceName + "/DeleteAppointment"
)

// OpenMethods resolve their own credentials and skip the auth interceptor.
var OpenMethods = []string{MethodLogin, MethodLogout}

type ScheduleServer interface {
	Login(context.Context, *wire.LoginRequest) (*wire.LoginResponse, error)
	Logout(context.Context, *wire.LogoutRequest) (*wire.LogoutResponse, error)
	CreateAppointment(context.Context, *wire.CreateAppointmentRequest) (*wire.AppointmentReply, error)
	ListAppointments(context.Context, *wire.ListAppointmentsRequest) (*wire.ListAppointmentsResponse, error)
	GetAppointment(context.Context, *wire.AppointmentID) (*wire.AppointmentReply, error)
	UpdateAppointment(context.Context, *wire.UpdateAppointmentRequest) (*wire.AppointmentReply, error)
	DeleteAppointment(context.Context, *wire.AppointmentID) (*wire.DeleteAppointmentResponse, error)
}

type Handler struct {
	sched *scheduling.Service
	authn *auth.Authenticator
	log   zerolog.Logger
}

func New(sched *scheduling.Service, authn *auth.Authenticator, log zerolog.Logger) *Handler {
	return &Handler{sched: sched, authn: authn, log: log}
}

func unary[Req any, PReq interface {
	*Req
	wire.Message
}](name string, call func(ScheduleServer, context.Context, PReq) (any, error)) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			if ic == nil {
				return call(srv.(ScheduleServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(ScheduleServer), ctx, req.(PReq))
			})
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScheduleServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", func(s ScheduleServer, ctx context.Context, in *wire.LoginRequest) (any, error) {
			return s.Login(ctx, in)
		}),
		unary("Logout", func(s ScheduleServer, ctx context.Context, in *wire.LogoutRequest) (any, error) {
			return s.Logout(ctx, in)
		}),
		unary("CreateAppointment", func(s ScheduleServer, ctx context.Context, in *wire.CreateAppointmentRequest) (any, error) {
			return s.CreateAppointment(ctx, in)
		}),
		unary("ListAppointments", func(s ScheduleServer, ctx context.Context, in *wire.ListAppointmentsRequest) (any, error) {
			return s.ListAppointments(ctx, in)
		}),
		unary("GetAppointment", func(s ScheduleServer, ctx context.Context, in *wire.AppointmentID) (any, error) {
			return s.GetAppointment(ctx, in)
		}),
		unary("UpdateAppointment", func(s ScheduleServer, ctx context.Context, in *wire.UpdateAppointmentRequest) (any, error) {
			return s.UpdateAppointment(ctx, in)
		}),
		unary("DeleteAppointment", func(s ScheduleServer, ctx context.Context, in *wire.AppointmentID) (any, error) {
			return s.DeleteAppointment(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "appointment/v1/schedule.proto",
}

func Register(s grpc.ServiceRegistrar, srv ScheduleServer) {
	s.RegisterService(&ServiceDesc, srv)
}
