package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mrparsekar/SocialMediaISA1/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は構造化エラーをJSONで返す。
func writeAPIErrorResponse(w http.ResponseWriter, status int, apiErr *model.APIError) {
	writeJSON(w, status, map[string]any{"error": apiErr})
}
