package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clachance14/PipeTrakV2-sub020/internal/importer"
	"github.com/clachance14/PipeTrakV2-sub020/internal/logging"
)

// handleStartImport accepts a multipart upload and starts an
// asynchronous import run. The optional "synonyms" form field is a JSON
// object mapping canonical field names to extra header spellings for
// this run.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	typeKey := chi.URLParam(r, "typeKey")
	if _, ok := importer.TypeByKey(typeKey); !ok {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("unknown import type: %s", typeKey))
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, r, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to read file")
		return
	}

	var synonyms importer.SynonymTable
	if raw := r.FormValue("synonyms"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &synonyms); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid synonyms format")
			return
		}
	}

	importID, err := s.service.StartImport(r.Context(), typeKey, header.Filename, data, synonyms)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, importer.ErrTooManyImports) {
			status = http.StatusTooManyRequests
		}
		writeError(w, r, status, err.Error())
		return
	}

	logging.FromContext(r.Context()).Info("import accepted",
		"import_id", importID, "type", typeKey, "file", header.Filename)

	writeJSON(w, http.StatusAccepted, map[string]string{"importId": importID})
}

// handleImportProgress streams progress via Server-Sent Events when the
// client asks for an event stream, otherwise returns one JSON snapshot.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	if r.Header.Get("Accept") != "text/event-stream" {
		progress, err := s.service.Progress(importID)
		if err != nil {
			writeError(w, r, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, progress)
		return
	}

	progressCh, err := s.service.SubscribeProgress(importID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventID := 0
	for {
		select {
		case progress, open := <-progressCh:
			if !open {
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			eventID++
			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %s\nevent: progress\ndata: %s\n\n", strconv.Itoa(eventID), data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// handleImportSummary returns the final summary of a completed run, or
// 409 while the run is still in progress.
func (s *Server) handleImportSummary(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	summary, done, err := s.service.Result(importID)
	if err != nil && !done {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}
	if !done {
		writeError(w, r, http.StatusConflict, "import still in progress")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, importer.UserMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	if err := s.service.Cancel(importID); err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

// importTypeInfo is the client-facing description of one import type.
type importTypeInfo struct {
	Key            string   `json:"key"`
	Label          string   `json:"label"`
	RequiredFields []string `json:"requiredFields"`
	OptionalFields []string `json:"optionalFields"`
}

// handleListImportTypes lists the registered import types with their
// field tables, for client-side template display.
func (s *Server) handleListImportTypes(w http.ResponseWriter, r *http.Request) {
	out := make([]importTypeInfo, 0, len(importer.ImportTypes))
	for _, t := range importer.ImportTypes {
		info := importTypeInfo{
			Key:            t.Key,
			Label:          t.Label,
			RequiredFields: make([]string, 0),
			OptionalFields: make([]string, 0),
		}
		for _, spec := range t.Fields {
			if spec.Required {
				info.RequiredFields = append(info.RequiredFields, string(spec.Field))
			} else {
				info.OptionalFields = append(info.OptionalFields, string(spec.Field))
			}
		}
		out = append(out, info)
	}

	writeJSON(w, http.StatusOK, map[string]any{"importTypes": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
