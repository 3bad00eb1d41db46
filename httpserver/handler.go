package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ruteri/serverless-sdk/interfaces"
)

// Backend is the part of the SDK the handler inspects. *sdk.SDK satisfies it.
type Backend interface {
	Providers() []string
	StorageClient(ctx context.Context, web bool) (interfaces.StorageClient, error)
	KeyValueClient() (interfaces.KeyValueClient, error)
}

// Handler serves the /api endpoints.
type Handler struct {
	backend Backend
	log     *slog.Logger
}

func NewHandler(backend Backend, log *slog.Logger) *Handler {
	return &Handler{
		backend: backend,
		log:     log,
	}
}

// HandleProviders lists the storage providers resolved so far.
//
// URL format: GET /api/providers
func (h *Handler) HandleProviders(w http.ResponseWriter, r *http.Request) {
	providers := h.backend.Providers()
	if providers == nil {
		providers = []string{}
	}
	h.writeJSON(w, map[string]any{"providers": providers})
}

// HandleBucketURL reports the bucket name and URL. The URL is empty for the
// data bucket.
//
// URL format: GET /api/storage/{kind}/url
func (h *Handler) HandleBucketURL(w http.ResponseWriter, r *http.Request) {
	client, ok := h.storageClient(w, r)
	if !ok {
		return
	}
	defer client.Close()
	h.writeJSON(w, map[string]any{
		"bucket": client.BucketName(),
		"url":    client.URL(),
	})
}

// HandleFiles lists object names in the bucket.
//
// URL format: GET /api/storage/{kind}/files?prefix=<prefix>
func (h *Handler) HandleFiles(w http.ResponseWriter, r *http.Request) {
	client, ok := h.storageClient(w, r)
	if !ok {
		return
	}
	defer client.Close()

	prefix := r.URL.Query().Get("prefix")
	files, err := client.Files(r.Context(), &interfaces.GetFilesOptions{Prefix: prefix})
	if err != nil {
		h.writeError(w, "Failed to list files", err)
		return
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name())
	}
	h.writeJSON(w, map[string]any{
		"bucket": client.BucketName(),
		"files":  names,
	})
}

// HandleKeyValueGet returns the value stored under a key, 404 when absent.
//
// URL format: GET /api/kv/{key}
func (h *Handler) HandleKeyValueGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		http.Error(w, "Missing key in URL", http.StatusBadRequest)
		return
	}

	kv, err := h.backend.KeyValueClient()
	if err != nil {
		h.writeError(w, "Key-value store unavailable", err)
		return
	}

	value, found, err := kv.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, "Failed to read key", err)
		return
	}
	if !found {
		http.Error(w, "Key not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, map[string]any{"key": key, "value": value})
}

func (h *Handler) storageClient(w http.ResponseWriter, r *http.Request) (interfaces.StorageClient, bool) {
	var web bool
	switch kind := r.PathValue("kind"); kind {
	case "web":
		web = true
	case "data":
	default:
		http.Error(w, "Bucket kind must be web or data", http.StatusBadRequest)
		return nil, false
	}

	client, err := h.backend.StorageClient(r.Context(), web)
	if err != nil {
		h.writeError(w, "Failed to create storage client", err)
		return nil, false
	}
	return client, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	status := StatusForError(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, interfaces.ErrCorruptCredentials) {
		h.log.Error(msg, "err", err, slog.Int("status", status))
	} else {
		h.log.Debug(msg, "err", err, slog.Int("status", status))
	}
	http.Error(w, publicMessage(err), status)
}

// publicClasses are the errors whose message may be sent to clients. The
// wrapped detail is logged only.
var publicClasses = []error{
	interfaces.ErrCorruptCredentials,
	interfaces.ErrInsufficientCredentials,
	interfaces.ErrNoCredentialsFound,
	interfaces.ErrInsufficientEnvironment,
	interfaces.ErrNoValidURL,
	interfaces.ErrNoKeyValueStore,
	interfaces.ErrUnknownProvider,
	interfaces.ErrInvalidInput,
	interfaces.ErrNotImplemented,
}

func publicMessage(err error) string {
	for _, class := range publicClasses {
		if errors.Is(err, class) {
			return class.Error()
		}
	}
	return "internal error"
}

// StatusForError maps an SDK error to an HTTP status code.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, interfaces.ErrInsufficientEnvironment),
		errors.Is(err, interfaces.ErrNoCredentialsFound),
		errors.Is(err, interfaces.ErrCorruptCredentials),
		errors.Is(err, interfaces.ErrInsufficientCredentials),
		errors.Is(err, interfaces.ErrNoKeyValueStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, interfaces.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, interfaces.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
