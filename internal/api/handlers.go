package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"playground-mockserver/internal/logger"
	"playground-mockserver/internal/metrics"
	"playground-mockserver/internal/models"
	"playground-mockserver/internal/service"
)

type Handlers struct {
	playground   *service.Playground
	metrics      *metrics.Recorder
	logger       *logger.Logger
	maxBodyBytes int64
}

func NewHandlers(pg *service.Playground, rec *metrics.Recorder, logger *logger.Logger, maxBodyBytes int64) *Handlers {
	return &Handlers{
		playground:   pg,
		metrics:      rec,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// --- /api/endpoints ---

func (h *Handlers) HandleListResources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.playground.ListResources())
}

func (h *Handlers) HandleCreateResource(w http.ResponseWriter, r *http.Request) {
	var req models.CreateResourceRequest
	if err := h.decodeBody(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	name, created, err := h.playground.CreateResource(req.Resource)
	if err != nil {
		h.writeError(w, err)
		return
	}

	msg := fmt.Sprintf("Resource '%s' created", name)
	if !created {
		msg = fmt.Sprintf("Resource '%s' already exists", name)
	}
	writeJSON(w, http.StatusCreated, models.MessageResponse{Message: msg})
}

func (h *Handlers) HandleDeleteResource(w http.ResponseWriter, r *http.Request) {
	name, err := h.playground.DeleteResource(mux.Vars(r)["resource"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: fmt.Sprintf("Resource '%s' deleted", name)})
}

// --- /mock/{resource} ---

func (h *Handlers) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.playground.ListRecords(mux.Vars(r)["resource"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var body models.Record
	if err := h.decodeBody(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}

	record, err := h.playground.CreateRecord(mux.Vars(r)["resource"], body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handlers) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	record, err := h.playground.GetRecord(vars["resource"], vars["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handlers) HandlePatchRecord(w http.ResponseWriter, r *http.Request) {
	var body models.Record
	if err := h.decodeBody(w, r, &body); err != nil {
		h.writeError(w, err)
		return
	}

	vars := mux.Vars(r)
	record, err := h.playground.PatchRecord(vars["resource"], vars["id"], body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handlers) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	record, err := h.playground.DeleteRecord(vars["resource"], vars["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.DeleteRecordResponse{Message: "Deleted", Deleted: record})
}

// --- operational ---

func (h *Handlers) HandlePing(w http.ResponseWriter, r *http.Request) {
	resources, records := h.playground.Stats()
	writeJSON(w, http.StatusOK, models.PingResponse{
		Status:    "ok",
		Resources: resources,
		Records:   records,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (h *Handlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if err := h.metrics.WriteText(w); err != nil {
		h.logger.Error(err.Error(), "Failed to write metrics")
	}
}

func (h *Handlers) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Not found"})
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &payloadTooLargeError{limit: tooLarge.Limit}
		}
		return &service.MalformedJSONError{Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &service.MalformedJSONError{Err: err}
	}
	if dec.More() {
		return &service.MalformedJSONError{Err: errors.New("unexpected data after JSON value")}
	}
	return nil
}

type payloadTooLargeError struct {
	limit int64
}

func (e *payloadTooLargeError) Error() string {
	return fmt.Sprintf("Request body exceeds %d bytes", e.limit)
}

func (e *payloadTooLargeError) StatusCode() int {
	return http.StatusRequestEntityTooLarge
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var sce service.StatusCodeError
	if errors.As(err, &sce) {
		writeJSON(w, sce.StatusCode(), models.ErrorResponse{Error: sce.Error()})
		return
	}
	h.logger.Error(err.Error(), "Failed to persist data")
	writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to persist data"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
