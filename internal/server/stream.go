package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeJSONSeq = "application/json-seq"
	recordSeparator    = "\x1E"
)

// recordWriter writes a stream of JSON records. The status line is sent
// with the first record so that an empty stream can still answer 204.
type recordWriter struct {
	w          http.ResponseWriter
	controller *http.ResponseController
	seq        bool
	started    bool
}

func newRecordWriter(w http.ResponseWriter, r *http.Request) *recordWriter {
	return &recordWriter{
		w:          w,
		controller: http.NewResponseController(w),
		seq:        acceptsJSONSeq(r.Header.Get("Accept")),
	}
}

// acceptsJSONSeq reports whether the Accept header names application/json-seq.
func acceptsJSONSeq(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil || mediaType != contentTypeJSONSeq {
			continue
		}
		if q, ok := params["q"]; ok && strings.TrimSpace(q) == "0" {
			continue
		}
		return true
	}
	return false
}

func (rw *recordWriter) write(record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	var prefix string
	switch {
	case !rw.started && rw.seq:
		rw.w.Header().Set("Content-Type", contentTypeJSONSeq)
		rw.w.WriteHeader(http.StatusOK)
		prefix = recordSeparator
	case !rw.started:
		rw.w.Header().Set("Content-Type", contentTypeJSON)
		rw.w.WriteHeader(http.StatusOK)
		prefix = "[\n"
	case !rw.seq:
		prefix = ",\n"
	}
	rw.started = true

	suffix := ""
	if rw.seq {
		suffix = "\n" + recordSeparator
	}
	if _, err := rw.w.Write([]byte(prefix + string(data) + suffix)); err != nil {
		return err
	}
	if err := rw.controller.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func (rw *recordWriter) end() {
	switch {
	case !rw.started:
		rw.w.WriteHeader(http.StatusNoContent)
	case !rw.seq:
		_, _ = rw.w.Write([]byte("\n]"))
	}
}
