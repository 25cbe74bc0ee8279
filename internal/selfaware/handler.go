package selfaware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Path is where the handler is mounted by the serve command.
const Path = "/api/self-awareness"

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler adapts HTTP requests to a Service.
type Handler struct {
	svc Service
	log *zap.Logger
}

// NewHandler creates a Handler. A nil logger discards output.
func NewHandler(svc Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// ServeHTTP implements http.Handler. POST dispatches the body's action;
// GET is shorthand for get-status.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	log := h.log.With(zap.String("request_id", requestID))

	var params map[string]any
	switch r.Method {
	case http.MethodPost:
		var err error
		if params, err = decodeBody(r.Body); err != nil {
			log.Debug("rejected request body", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, &Response{RequestID: requestID, Error: err.Error()}, log)
			return
		}
	case http.MethodGet:
		params = map[string]any{"action": ActionGetStatus}
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, &Response{
			RequestID: requestID,
			Error:     fmt.Sprintf("method %s not allowed", r.Method),
		}, log)
		return
	}

	resp, err := Dispatch(r.Context(), h.svc, params)
	if err != nil {
		if IsBadRequest(err) {
			log.Debug("bad request", zap.Error(err))
			writeJSON(w, http.StatusBadRequest, &Response{RequestID: requestID, Error: err.Error()}, log)
			return
		}
		log.Error("self-awareness action failed", zap.Any("action", params["action"]), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, &Response{RequestID: requestID, Error: ErrorMessage(err)}, log)
		return
	}

	resp.RequestID = requestID
	code := http.StatusOK
	if !resp.Success {
		code = http.StatusInternalServerError
	}
	log.Info("self-awareness action", zap.String("action", resp.Action), zap.Bool("success", resp.Success))
	writeJSON(w, code, resp, log)
}

func decodeBody(body io.Reader) (map[string]any, error) {
	var params map[string]any
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(&params); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("request body is empty")
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if params == nil {
		return nil, fmt.Errorf("request body must be a JSON object")
	}
	return params, nil
}

func writeJSON(w http.ResponseWriter, code int, v any, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", zap.Error(err))
	}
}
