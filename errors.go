package firerest

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnsupportedTypeError reports a native value the codec cannot encode.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("firerest: unsupported value type %s", e.Type)
}

// RemoteError is a structured error reported by the Firestore API, as found
// in the "error" object of a response body.
type RemoteError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("firestore: %s (%d): %s", e.Status, e.Code, e.Message)
}

// GRPCStatus maps the REST error onto its canonical gRPC status so that
// status.Code and friends work on a RemoteError.
func (e *RemoteError) GRPCStatus() *status.Status {
	code, ok := statusNames[e.Status]
	if !ok {
		code = codes.Unknown
	}
	return status.New(code, e.Message)
}

// statusNames maps the REST API's canonical status strings to gRPC codes.
var statusNames = map[string]codes.Code{
	"CANCELLED":           codes.Canceled,
	"UNKNOWN":             codes.Unknown,
	"INVALID_ARGUMENT":    codes.InvalidArgument,
	"DEADLINE_EXCEEDED":   codes.DeadlineExceeded,
	"NOT_FOUND":           codes.NotFound,
	"ALREADY_EXISTS":      codes.AlreadyExists,
	"PERMISSION_DENIED":   codes.PermissionDenied,
	"RESOURCE_EXHAUSTED":  codes.ResourceExhausted,
	"FAILED_PRECONDITION": codes.FailedPrecondition,
	"ABORTED":             codes.Aborted,
	"OUT_OF_RANGE":        codes.OutOfRange,
	"UNIMPLEMENTED":       codes.Unimplemented,
	"INTERNAL":            codes.Internal,
	"UNAVAILABLE":         codes.Unavailable,
	"DATA_LOSS":           codes.DataLoss,
	"UNAUTHENTICATED":     codes.Unauthenticated,
}
