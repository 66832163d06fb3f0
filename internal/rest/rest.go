package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskhive/tasks-api/internal"
	"go.opentelemetry.io/otel"
)

// response is the envelope every endpoint replies with.
type response struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes the page metadata attached to listings.
type Pagination struct {
	Page  int64 `json:"page"`
	Limit int64 `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func newPagination(p internal.Pagination) *Pagination {
	return &Pagination{
		Page:  p.Page,
		Limit: p.Limit,
		Total: p.Total,
		Pages: p.Pages,
	}
}

func renderErrorResponse(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	resp := response{Error: msg}
	status := http.StatusInternalServerError

	var ierr *internal.Error
	if !errors.As(err, &ierr) {
		resp.Error = "internal error"
	} else {
		switch ierr.Code() {
		case internal.ErrorCodeNotFound:
			status = http.StatusNotFound
		case internal.ErrorCodeInvalidArgument:
			status = http.StatusBadRequest
			resp.Error = ierr.Error()
		case internal.ErrorCodeConflict:
			status = http.StatusConflict
			resp.Error = ierr.Error()
		case internal.ErrorCodeUnauthorized:
			status = http.StatusUnauthorized
			resp.Error = ierr.Error()
		case internal.ErrorCodeUnavailable:
			status = http.StatusServiceUnavailable
		default:
			resp.Error = "internal error"
		}
	}

	if err != nil {
		_, span := otel.Tracer("rest").Start(ctx, "rest.renderErrorResponse")
		defer span.End()

		span.RecordError(err)
	}

	renderJSON(w, resp, status)
}

func renderResponse(w http.ResponseWriter, data interface{}, status int) {
	renderJSON(w, response{Success: true, Data: data}, status)
}

func renderPaginatedResponse(w http.ResponseWriter, data interface{}, pagination internal.Pagination) {
	renderJSON(w, response{
		Success:    true,
		Data:       data,
		Pagination: newPagination(pagination),
	}, http.StatusOK)
}

func renderJSON(w http.ResponseWriter, res interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")

	content, err := json.Marshal(res)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err = w.Write(content); err != nil {
		// XXX Do something with the error ;)
	}
}
