package share

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

// RegisterRoutes mounts the plain HTTP share endpoints on mux.
func RegisterRoutes(mux *http.ServeMux, svc Service, logger *slog.Logger) {
	mux.HandleFunc("GET /s/{token}", func(w http.ResponseWriter, r *http.Request) {
		trip, err := svc.Resolve(r.Context(), r.PathValue("token"))
		if err != nil {
			writeShareError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(trip); err != nil {
			logger.Error("Failed to write shared itinerary", slog.Any("error", err))
		}
	})

	mux.HandleFunc("GET /s/{token}/qr.png", func(w http.ResponseWriter, r *http.Request) {
		png, err := svc.QR(r.PathValue("token"), 256)
		if err != nil {
			writeShareError(w, logger, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(png)
	})
}

func writeShareError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	message := "something went wrong"
	switch {
	case errors.Is(err, locitypes.ErrInvalidShareToken):
		status, message = http.StatusBadRequest, "this link is invalid"
	case errors.Is(err, locitypes.ErrNotFound):
		status, message = http.StatusNotFound, "trip not found or was removed"
	default:
		logger.Error("Share lookup failed", slog.Any("error", err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
