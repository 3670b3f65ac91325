package handler

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"clinic-scheduler/internal/model"
)

const errorDomain = "clinic-scheduler"

func code(e *model.Error) codes.Code {
	switch e.Kind {
	case model.KindValidation:
		return codes.InvalidArgument
	case model.KindNotFound:
		return codes.NotFound
	case model.KindConflict:
		return codes.AlreadyExists
	case model.KindAuth:
		if e.Reason == model.AuthForbiddenRole {
			return codes.PermissionDenied
		}
		return codes.Unauthenticated
	}
	return codes.Internal
}

// ToStatus converts a domain error to a gRPC status carrying the stable
// error code as an ErrorInfo reason. Internal detail never leaves.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	e := model.AsError(err)
	st := status.New(code(e), e.Message)
	if withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: e.Code, Domain: errorDomain}); derr == nil {
		st = withInfo
	}
	return st.Err()
}

// ErrorCode reads the stable code back from a status error.
func ErrorCode(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.Domain == errorDomain {
			return info.Reason
		}
	}
	return ""
}

// fail logs internal errors with their cause before mapping.
func (h *Handler) fail(method string, err error) error {
	if e := model.AsError(err); e.Kind == model.KindInternal {
		h.log.Error().Err(err).Str("method", method).Msg("internal error")
	}
	return ToStatus(err)
}
