package httpapi

import (
	"bytes"
	"net/http"

	"securetask.org/internal/audit"
	"securetask.org/internal/auth"
)

// captureWriter records the status code and up to capLen bytes of the
// response body, which the audit classifier may need for created-resource
// ids.
type captureWriter struct {
	http.ResponseWriter
	code   int
	buf    bytes.Buffer
	capLen int
}

func (w *captureWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if remaining := w.capLen - w.buf.Len(); remaining > 0 {
		chunk := p
		if len(chunk) > remaining {
			chunk = chunk[:remaining]
		}
		w.buf.Write(chunk)
	}
	return w.ResponseWriter.Write(p)
}

// withAudit derives audit entries from request traffic. Classification is
// heuristic on method and URL; unauthenticated requests and failed requests
// are not recorded, and recording failures never affect the response.
func (a *API) withAudit(next http.Handler) http.Handler {
	if a.recorder == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action, resource, ok := audit.Classify(r.Method, r.URL.RequestURI())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		cw := &captureWriter{ResponseWriter: w, code: 200, capLen: 64 << 10}
		next.ServeHTTP(cw, r)

		principal, authed := auth.PrincipalFromContext(r.Context())
		if !authed || cw.code >= 400 {
			return
		}

		a.recorder.Record(r.Context(), audit.Entry{
			Action:     action,
			Resource:   resource,
			ResourceID: audit.ResourceID(r.URL.RequestURI(), cw.buf.Bytes()),
			UserID:     principal.UserID,
			Details:    r.Method + " " + r.URL.RequestURI(),
			IPAddress:  clientIP(r),
			UserAgent:  r.UserAgent(),
		})
	})
}
