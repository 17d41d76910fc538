package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/rakunlabs/at/internal/dsalerr"
)

type responseMessage struct {
	Message string `json:"message"`
}

func httpResponse(w http.ResponseWriter, msg string, code int) {
	v, _ := json.Marshal(responseMessage{Message: msg})
	httpResponseJSONByte(w, v, code)
}

func httpResponseJSON(w http.ResponseWriter, msg any, code int) {
	v, _ := json.Marshal(msg)
	httpResponseJSONByte(w, v, code)
}

func httpResponseJSONByte(w http.ResponseWriter, msg []byte, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(msg) //nolint:errcheck
}

// httpResponseErr maps a dsalerr taxonomy Kind to an HTTP status code
// (spec §7 "Error Handling" — callers classify by Kind, never by message).
func httpResponseErr(w http.ResponseWriter, err error) {
	kind, ok := dsalerr.Of(err)
	if !ok {
		httpResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	code := http.StatusInternalServerError
	switch kind {
	case dsalerr.InvalidUri, dsalerr.InvalidQuery, dsalerr.UriNotForConnection:
		code = http.StatusBadRequest
	case dsalerr.NotFound:
		code = http.StatusNotFound
	case dsalerr.AlreadyExists, dsalerr.NotEmpty:
		code = http.StatusConflict
	case dsalerr.CapabilityUnsupported:
		code = http.StatusNotImplemented
	case dsalerr.AuthRequired, dsalerr.AuthExpired:
		code = http.StatusUnauthorized
	case dsalerr.UpstreamError:
		code = http.StatusBadGateway
	case dsalerr.Cancelled:
		code = http.StatusRequestTimeout
	case dsalerr.IoError:
		code = http.StatusInternalServerError
	}

	httpResponseJSON(w, struct {
		Message string `json:"message"`
		Kind    string `json:"kind"`
	}{Message: err.Error(), Kind: string(kind)}, code)
}
