package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// withErrorField copies the message of a unary Connect error into an "error"
// field, so failed calls answer {code, message, error}. Connect clients ignore
// the extra field. Successful responses pass through untouched.
func withErrorField(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ew := &errorWriter{ResponseWriter: w}
		next.ServeHTTP(ew, r)
		ew.finish()
	})
}

type errorWriter struct {
	http.ResponseWriter
	status int
	buf    *bytes.Buffer
}

func (w *errorWriter) WriteHeader(status int) {
	if w.status != 0 {
		return
	}
	w.status = status
	if status >= http.StatusBadRequest && isJSON(w.Header().Get("Content-Type")) {
		w.buf = &bytes.Buffer{}
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *errorWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if w.buf != nil {
		return w.buf.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *errorWriter) Flush() {
	if w.buf != nil {
		return
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *errorWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *errorWriter) finish() {
	if w.buf == nil {
		return
	}
	body := w.buf.Bytes()
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		if _, ok := fields["error"]; !ok {
			msg, _ := fields["message"].(string)
			if msg == "" {
				msg, _ = fields["code"].(string)
			}
			fields["error"] = msg
			if rewritten, err := json.Marshal(fields); err == nil {
				body = rewritten
			}
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.ResponseWriter.WriteHeader(w.status)
	_, _ = w.ResponseWriter.Write(body)
}

func isJSON(contentType string) bool {
	return contentType == "application/json" || strings.HasPrefix(contentType, "application/json;")
}
