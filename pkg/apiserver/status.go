package apiserver

import (
	"net/http"

	"github.com/emicklei/go-restful"
	"github.com/golang/glog"

	"github.com/cr8s-go/cr8s/pkg/types"
)

// statusBody is the JSON body every error response carries, per
// spec.md §7: "every response carries a human-readable body describing
// the error kind."
type statusBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// codeFor maps an ErrorKind to the HTTP status spec.md §4.2 binds it
// to, mirroring the teacher's errToAPIStatus in pkg/apiserver/apiserver.go.
func codeFor(kind types.ErrorKind) int {
	switch kind {
	case types.ErrWrongFormat:
		return http.StatusBadRequest
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrConflict:
		return http.StatusConflict
	case types.ErrInvalidReference:
		return http.StatusUnprocessableEntity
	case types.ErrBackend, types.ErrUnexpected:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as the appropriate status code and a
// statusBody. Backend/unexpected errors never leak their detail to
// the client, only the fact that something went wrong server-side.
func writeError(resp *restful.Response, err error) {
	kind := types.KindOf(err)
	code := codeFor(kind)
	message := err.Error()
	if kind == types.ErrBackend || kind == types.ErrUnexpected {
		glog.Errorf("apiserver: %v", err)
		message = "internal error"
	}
	if writeErr := resp.WriteHeaderAndJson(code, statusBody{Kind: kind.String(), Message: message}, restful.MIME_JSON); writeErr != nil {
		glog.Errorf("apiserver: failed writing error response: %v", writeErr)
	}
}

// notImplemented writes the 501 spec.md reserves for routes a
// reference implementation is allowed to leave unimplemented.
func notImplemented(resp *restful.Response, what string) {
	resp.WriteHeaderAndJson(http.StatusNotImplemented, statusBody{
		Kind:    "NotImplemented",
		Message: what + " is not implemented",
	}, restful.MIME_JSON)
}
