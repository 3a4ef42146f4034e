package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kmsconnect/kms-connect/internal/core/region"
)

type regionResponse struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Level      string `json:"level"`
	ParentCode string `json:"parent_code,omitempty"`
}

// handleListRegions は住所入力用に親コード配下の行政区を返します。
func (h *Handler) handleListRegions(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	level := region.Level(strings.ToLower(chi.URLParam(r, "level")))
	regions, err := h.regions.ListChildren(r.Context(), level, strings.TrimSpace(r.URL.Query().Get("parent")))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := make([]regionResponse, 0, len(regions))
	for _, reg := range regions {
		out = append(out, regionResponse{
			Code:       reg.Code,
			Name:       reg.Name,
			Level:      string(reg.Level),
			ParentCode: reg.ParentCode,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": out})
}
