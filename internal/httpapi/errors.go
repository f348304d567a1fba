package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/signet-ai/signet/internal/signeterr"
)

// statusForCode maps the engine's typed error taxonomy to HTTP status,
// per the error-handling design's boundary-mapping table.
func statusForCode(code signeterr.Code) int {
	switch code {
	case signeterr.CodeNotFound:
		return http.StatusNotFound
	case signeterr.CodeVersionConflict:
		return http.StatusConflict
	case signeterr.CodeDeleted:
		return http.StatusConflict
	case signeterr.CodePinnedRequiresForce:
		return http.StatusPreconditionFailed
	case signeterr.CodeForbidden:
		return http.StatusForbidden
	case signeterr.CodeTimeout:
		return http.StatusGatewayTimeout
	case signeterr.CodeInvalidPayload:
		return http.StatusBadRequest
	case signeterr.CodeDependencyUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError renders err as the standard JSON error envelope, mapping a
// *signeterr.Error to its declared status and any other error to 500
// without leaking internals.
func writeError(w http.ResponseWriter, err error) {
	code := signeterr.CodeInternal
	message := "internal error"
	if se, ok := signeterr.As(err); ok {
		code = se.Code
		message = se.Message
	}

	body := errorBody{}
	body.Error.Code = string(code)
	body.Error.Message = message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForCode(code))
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return signeterr.InvalidPayload("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return signeterr.InvalidPayload("malformed JSON body: " + err.Error())
	}
	return nil
}
