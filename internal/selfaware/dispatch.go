package selfaware

import (
	"context"
	"errors"
	"fmt"
)

// Action tags accepted by the boundary.
const (
	ActionOpenSourceWorkspace = "open-source-workspace"
	ActionGetStatus           = "get-status"
	ActionImplementCapability = "implement-capability"
	ActionAnalyzeSource       = "analyze-source"
)

var (
	// ErrUnknownAction is returned for an action tag outside the known set.
	ErrUnknownAction = errors.New("unknown action")
	// ErrMissingParameter is returned when a required parameter is absent or not a string.
	ErrMissingParameter = errors.New("missing required parameter")
)

// Response is the JSON body returned for every request.
type Response struct {
	Success   bool           `json:"success"`
	Action    string         `json:"action,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Message   string         `json:"message,omitempty"`
	Status    *Status        `json:"status,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// IsBadRequest reports whether err was caused by the request rather than the service.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrUnknownAction) || errors.Is(err, ErrMissingParameter)
}

// Dispatch initializes svc and runs the action named in params["action"].
// Request errors wrap ErrUnknownAction or ErrMissingParameter; anything else,
// including a panic inside svc, is a service failure.
func Dispatch(ctx context.Context, svc Service, params map[string]any) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = panicError(r)
		}
	}()

	action, err := stringParam(params, "action", true)
	if err != nil {
		return nil, err
	}
	if !knownAction(action) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	// Validate before touching the service so bad requests never initialize it.
	var capability, path string
	switch action {
	case ActionImplementCapability:
		if capability, err = stringParam(params, "capability", true); err != nil {
			return nil, err
		}
	case ActionAnalyzeSource:
		if path, err = stringParam(params, "path", false); err != nil {
			return nil, err
		}
	}

	if err := svc.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}

	if action == ActionGetStatus {
		status, err := svc.GetStatus(ctx)
		if err != nil {
			return nil, err
		}
		return &Response{Success: true, Action: action, Status: status}, nil
	}

	var result *Result
	switch action {
	case ActionOpenSourceWorkspace:
		result, err = svc.OpenSourceWorkspace(ctx)
	case ActionImplementCapability:
		result, err = svc.ImplementCapability(ctx, capability)
	case ActionAnalyzeSource:
		result, err = svc.AnalyzeSource(ctx, path)
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%s returned no result", action)
	}

	return &Response{
		Success: result.Success,
		Action:  action,
		Message: result.Message,
		Data:    result.Data,
	}, nil
}

// ErrorMessage extracts a non-empty message from err.
func ErrorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return "internal error"
	}
	return err.Error()
}

func knownAction(action string) bool {
	switch action {
	case ActionOpenSourceWorkspace, ActionGetStatus, ActionImplementCapability, ActionAnalyzeSource:
		return true
	}
	return false
}

func stringParam(params map[string]any, key string, required bool) (string, error) {
	val, ok := params[key]
	if !ok || val == nil {
		if required {
			return "", fmt.Errorf("%w: %s", ErrMissingParameter, key)
		}
		return "", nil
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrMissingParameter, key)
	}
	if required && str == "" {
		return "", fmt.Errorf("%w: %s cannot be empty", ErrMissingParameter, key)
	}
	return str, nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("service panic: %w", err)
	}
	msg := fmt.Sprint(r)
	if msg == "" {
		msg = "unknown panic"
	}
	return fmt.Errorf("service panic: %s", msg)
}
