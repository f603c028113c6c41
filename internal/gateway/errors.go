package gateway

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// httpStatusFromGRPC maps a cart service error to an HTTP status, a stable
// error code and a message safe to show.
func httpStatusFromGRPC(err error) (int, string, string) {
	st, ok := status.FromError(err)
	if !ok {
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "INVALID_ARGUMENT", st.Message()
	case codes.NotFound:
		return http.StatusNotFound, "NOT_FOUND", st.Message()
	case codes.FailedPrecondition:
		return http.StatusConflict, "FAILED_PRECONDITION", st.Message()
	case codes.Aborted:
		return http.StatusConflict, "ABORTED", st.Message()
	case codes.Unimplemented:
		return http.StatusNotImplemented, "UNIMPLEMENTED", st.Message()
	case codes.Unavailable, codes.DeadlineExceeded:
		return http.StatusServiceUnavailable, "UNAVAILABLE", st.Message()
	case codes.Canceled:
		return 499, "CANCELED", st.Message()
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}
