package handler

import (
	"context"

	"google.golang.org/grpc"

	"clinic-scheduler/internal/wire"
)

// Client calls ScheduleService over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Login(ctx context.Context, in *wire.LoginRequest, opts ...grpc.CallOption) (*wire.LoginResponse, error) {
	out := new(wire.LoginResponse)
	if err := c.cc.Invoke(ctx, MethodLogin, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Logout(ctx context.Context, in *wire.LogoutRequest, opts ...grpc.CallOption) (*wire.LogoutResponse, error) {
	out := new(wire.LogoutResponse)
	if err := c.cc.Invoke(ctx, MethodLogout, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateAppointment(ctx context.Context, in *wire.CreateAppointmentRequest, opts ...grpc.CallOption) (*wire.AppointmentReply, error) {
	out := new(wire.AppointmentReply)
	if err := c.cc.Invoke(ctx, MethodCreateAppointment, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAppointments(ctx context.Context, in *wire.ListAppointmentsRequest, opts ...grpc.CallOption) (*wire.ListAppointmentsResponse, error) {
	out := new(wire.ListAppointmentsResponse)
	if err := c.cc.Invoke(ctx, MethodListAppointments, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAppointment(ctx context.Context, in *wire.AppointmentID, opts ...grpc.CallOption) (*wire.AppointmentReply, error) {
	out := new(wire.AppointmentReply)
	if err := c.cc.Invoke(ctx, MethodGetAppointment, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateAppointment(ctx context.Context, in *wire.UpdateAppointmentRequest, opts ...grpc.CallOption) (*wire.AppointmentReply, error) {
	out := new(wire.AppointmentReply)
	if err := c.cc.Invoke(ctx, MethodUpdateAppointment, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteAppointment(ctx context.Context, in *wire.AppointmentID, opts ...grpc.CallOption) (*wire.DeleteAppointmentResponse, error) {
	out := new(wire.DeleteAppointmentResponse)
	if err := c.cc.Invoke(ctx, MethodDeleteAppointment, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
