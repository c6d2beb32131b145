// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pdiddy/files-processor/internal/filestore"
	"github.com/pdiddy/files-processor/internal/processor"
	"github.com/pdiddy/files-processor/pkg/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status       string            `json:"status"`
	DefaultValue string            `json:"default_value,omitempty"`
	Processors   int               `json:"processors"`
	Checks       map[string]string `json:"checks,omitempty"`
}

// handleProcess runs the registry on one stored version. The response body
// is the metadata record, or null when no processor produced one.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	fileType := chi.URLParam(r, "filetype")
	versionID := chi.URLParam(r, "version_id")

	setting, err := s.requestSetting(r)
	if err != nil {
		s.logger.Info("rejected processor setting", "version_id", versionID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := s.versions.Get(r.Context(), versionID)
	if errors.Is(err, filestore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "version "+versionID+" not found")
		return
	}
	if err != nil {
		s.logger.Error("looking up version", "version_id", versionID, "error", err)
		writeError(w, http.StatusInternalServerError, "version lookup failed")
		return
	}

	s.logger.Debug("processing file",
		"version_id", v.VersionID,
		"filetype", fileType,
		"mimetype", v.MimeType)

	rec, err := s.registry.Dispatch(r.Context(), v.MimeType, processor.NewFile(v, s.versions), setting)
	if err != nil {
		s.logger.Error("processing failed", "version_id", v.VersionID, "error", err)
		writeError(w, http.StatusInternalServerError, dispatchErrorMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// dispatchErrorMessage is the caller-facing text for a dispatch error. The
// error itself may carry endpoints and socket addresses; it only goes to the
// log.
func dispatchErrorMessage(err error) string {
	switch {
	case processor.IsAbort(err):
		return "processing aborted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "request cancelled"
	default:
		return "processing failed"
	}
}

// requestSetting decodes the optional JSON body. An empty or null body
// selects a copy of the configured default.
func (s *Server) requestSetting(r *http.Request) (types.ProcessorSetting, error) {
	if r.Body == nil {
		return s.setting.Clone(), nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxSettingBytes+1))
	if err != nil {
		return types.ProcessorSetting{}, err
	}
	if len(data) > maxSettingBytes {
		return types.ProcessorSetting{}, errors.New("processor setting too large")
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return s.setting.Clone(), nil
	}
	return types.ParseProcessorSetting(data)
}

// handleHealth reports liveness. Failing checks turn the status into 503
// but the process is still considered alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:       "ok",
		DefaultValue: s.cfg.DefaultValue,
		Processors:   s.registry.Len(),
	}
	status := http.StatusOK

	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check(r.Context()); err != nil {
				s.logger.Warn("health check failed", "check", name, "error", err)
				resp.Checks[name] = "fail"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
