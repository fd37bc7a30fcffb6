package httpadapter

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/couchcryptid/coord-kml-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	// RequesterHeader carries the caller's handle on convert requests.
	RequesterHeader = "X-Requester"
	// RequestIDHeader optionally pins the reply's request ID.
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes = 64 << 10
	kmlMediaType = "application/vnd.google-earth.kml+xml"
)

// handleConvert converts the plain-text request body. The reply is JSON by
// default; ?format=kml returns the document itself as an attachment.
func handleConvert(replier Replier, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "message too large")
				return
			}
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}
		if strings.TrimSpace(string(body)) == "" {
			writeError(w, http.StatusBadRequest, "empty message")
			return
		}

		raw := domain.RawEvent{
			Key:     []byte(r.Header.Get(RequestIDHeader)),
			Value:   body,
			Headers: map[string]string{domain.RequesterHeader: r.Header.Get(RequesterHeader)},
			Topic:   "http",
		}
		if len(raw.Key) == 0 {
			raw.Offset = domain.Now().UnixNano()
		}

		reply, err := replier.Reply(r.Context(), raw)
		if err != nil {
			logger.Error("convert failed", "error", err)
			writeError(w, http.StatusInternalServerError, "conversion failed")
			return
		}

		if reply.Status == domain.StatusEmpty {
			sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, reply)
			return
		}

		if r.URL.Query().Get("format") == "kml" {
			w.Header().Set("Content-Type", kmlMediaType)
			w.Header().Set("Content-Disposition", `attachment; filename="`+reply.FileName+`"`)
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, reply.Document)
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, reply)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
