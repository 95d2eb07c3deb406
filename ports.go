package graphflow

import (
	"fmt"
	"reflect"

	"go.jetify.com/typeid"
)

// NewRequestID returns a new unique ID for an external request.
func NewRequestID() string {
	id, err := typeid.WithPrefix("req")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// PortInfo statically describes an external request/response port: its name
// and the message types flowing out of and back into the workflow through it.
type PortInfo struct {
	PortID       string `json:"port_id"`
	RequestType  string `json:"request_type"`
	ResponseType string `json:"response_type"`
}

// NewPort describes a port whose requests carry TReq payloads and whose
// responses carry TResp payloads.
func NewPort[TReq, TResp any](portID string) PortInfo {
	return PortInfo{
		PortID:       portID,
		RequestType:  messageTypeName(reflect.TypeFor[TReq]()),
		ResponseType: messageTypeName(reflect.TypeFor[TResp]()),
	}
}

// ExternalRequest is a suspended request for input from outside the graph,
// surfaced to the caller via a RequestInfoEvent and matched back by RequestID.
type ExternalRequest struct {
	RequestID  string   `json:"request_id"`
	ExecutorID string   `json:"executor_id"`
	Port       PortInfo `json:"port"`
	Payload    any      `json:"payload"`
	SuperStep  int      `json:"super_step"`
}

// Respond builds a response to this request carrying the given payload.
func (r *ExternalRequest) Respond(payload any) ExternalResponse {
	return ExternalResponse{
		RequestID: r.RequestID,
		Port:      r.Port,
		Payload:   payload,
	}
}

// ExternalResponse answers an outstanding external request. The port must
// match the original request's port and the payload's runtime type must match
// the port's declared response type; mismatches are rejected and the request
// remains pending.
type ExternalResponse struct {
	RequestID string   `json:"request_id"`
	Port      PortInfo `json:"port"`
	Payload   any      `json:"payload"`
}

// validateResponse checks a response against the outstanding request it
// references.
func validateResponse(request *ExternalRequest, response ExternalResponse) error {
	if response.Port.PortID != "" && response.Port.PortID != request.Port.PortID {
		return &WorkflowError{
			Type:    ErrorTypePortMismatch,
			Cause:   fmt.Sprintf("response for request %s targets port %q, expected %q", request.RequestID, response.Port.PortID, request.Port.PortID),
			Details: response.Port,
		}
	}
	if response.Payload == nil {
		return &WorkflowError{
			Type:    ErrorTypePortMismatch,
			Cause:   fmt.Sprintf("response for request %s has no payload, expected %s", request.RequestID, request.Port.ResponseType),
			Details: response.Port,
		}
	}
	payloadType := messageTypeName(reflect.TypeOf(response.Payload))
	if payloadType != request.Port.ResponseType {
		return &WorkflowError{
			Type:    ErrorTypePortMismatch,
			Cause:   fmt.Sprintf("response payload type %s does not match port %q response type %s", payloadType, request.Port.PortID, request.Port.ResponseType),
			Details: response.Port,
		}
	}
	return nil
}
