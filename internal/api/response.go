package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"clinic-scheduler/internal/middleware"
	"clinic-scheduler/internal/model"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpStatus(e *model.Error) int {
	switch e.Kind {
	case model.KindValidation:
		return http.StatusUnprocessableEntity
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	case model.KindAuth:
		if e.Reason == model.AuthForbiddenRole {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// errorWriter renders domain errors. Internal errors are logged with
// their cause and answered with the generic message only.
func errorWriter(log zerolog.Logger) middleware.ErrorWriter {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		e := model.AsError(err)
		status := httpStatus(e)
		if status == http.StatusInternalServerError {
			log.Error().Err(err).
				Str("request_id", middleware.RequestIDFrom(r.Context())).
				Str("path", r.URL.Path).
				Msg("internal error")
		}
		if status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		writeJSON(w, status, errorBody{Code: e.Code, Message: e.Message})
	}
}
