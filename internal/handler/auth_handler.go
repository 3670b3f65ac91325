package handler

import (
	"context"

	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/wire"
)

func (h *Handler) Login(ctx context.Context, req *wire.LoginRequest) (*wire.LoginResponse, error) {
	res, err := h.authn.Login(ctx, req.Username, req.Password, req.UserType, middleware.ClientFromGRPC(ctx))
	if err != nil {
		return nil, h.fail(MethodLogin, err)
	}
	return &wire.LoginResponse{
		Message:      res.Message,
		UserID:       res.UserID,
		UserType:     res.Role.String(),
		Name:         res.Name,
		SessionToken: res.SessionToken,
		ExpiresAt:    res.ExpiresAt,
	}, nil
}

func (h *Handler) Logout(ctx context.Context, _ *wire.LogoutRequest) (*wire.LogoutResponse, error) {
	if err := h.authn.Logout(ctx, middleware.AuthorizationHeader(ctx)); err != nil {
		return nil, h.fail(MethodLogout, err)
	}
	return &wire.LogoutResponse{Message: "Logged out successfully"}, nil
}
