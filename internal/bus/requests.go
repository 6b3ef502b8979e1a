package bus

import (
	"encoding/json"
	"fmt"
	"time"
)

// Commands on the administrative surface.
const (
	CmdSetRoomName           = "setroomname"
	CmdSetDeviceRoom         = "setdeviceroom"
	CmdSetDeviceName         = "setdevicename"
	CmdDeleteRoom            = "deleteroom"
	CmdSetFloorplanName      = "setfloorplanname"
	CmdSetDeviceFloorplan    = "setdevicefloorplan"
	CmdDeleteFloorplanDevice = "deletefloorplandevice"
	CmdDeleteFloorplan       = "deletefloorplan"
	CmdSetLocationName       = "setlocationname"
	CmdSetRoomLocation       = "setroomlocation"
	CmdDeleteLocation        = "deletelocation"
	CmdSetVariable           = "setvariable"
	CmdDelVariable           = "delvariable"
	CmdGetDevice             = "getdevice"
	CmdGetConfigTree         = "getconfigtree"
	CmdSetConfig             = "setconfig"
)

// CmdInventory is the only command on the query surface.
const CmdInventory = "inventory"

// Error codes carried in failed responses.
const (
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeUnknownCommand    = "UNKNOWN_COMMAND"
	ErrCodeFailed            = "FAILED"
)

// Request is a command addressed to a target. The controller's own UUID
// selects the administrative surface; any other target the query surface.
type Request struct {
	RequestID  string         `json:"request_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Target     string         `json:"uuid"`
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ParseRequest parses a request payload. requestID is used when the
// payload carries none.
func ParseRequest(payload []byte, requestID string) (Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if req.RequestID == "" {
		req.RequestID = requestID
	}
	if err := required("command", req.Command); err != nil {
		return req, err
	}
	return req, nil
}

// Bind decodes the request parameters into out and validates them.
func (r Request) Bind(out Validator) error {
	params := r.Parameters
	if params == nil {
		params = map[string]any{}
	}
	return bind(params, out)
}

// Response answers one Request.
type Response struct {
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Data      any            `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError describes why a request failed.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewResponse builds a successful response.
func NewResponse(requestID string, data any, now time.Time) Response {
	return Response{
		RequestID: requestID,
		Timestamp: now.UTC(),
		Success:   true,
		Data:      data,
	}
}

// NewErrorResponse builds a failed response.
func NewErrorResponse(requestID, code, message string, now time.Time) Response {
	return Response{
		RequestID: requestID,
		Timestamp: now.UTC(),
		Error:     &ResponseError{Code: code, Message: message},
	}
}
