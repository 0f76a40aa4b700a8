package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/user/mst-crawler/internal/delivery/http/request"
	"github.com/user/mst-crawler/internal/delivery/http/response"
	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/repository"
	"github.com/user/mst-crawler/internal/usecase"
)

type Handler struct {
	pipeline usecase.Pipeline
	logger   *zap.Logger
}

func NewHandler(pipeline usecase.Pipeline, logger *zap.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		logger:   logger.With(zap.String("component", "http")),
	}
}

func (h *Handler) HandleTaxInfo(w http.ResponseWriter, r *http.Request) {
	keyword, err := request.Keyword(r)
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.pipeline.TaxInfo(r.Context(), keyword)
	if err != nil {
		h.logger.Error("Tax info lookup failed", zap.String("keyword", keyword), zap.Error(err))
		h.writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if info.IsEmpty() {
		h.writeJSONError(w, "No tax info found for keyword", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewTaxInfo(keyword, info))
}

func (h *Handler) HandleContactInfo(w http.ResponseWriter, r *http.Request) {
	mst, err := request.MST(r)
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.pipeline.ContactInfo(r.Context(), mst)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Contact lookup failed", zap.String("tax_id", mst), zap.Error(err))
		h.writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if res.Status != entity.LookupFound {
		h.writeJSONError(w, "Contact info not found: "+res.Reason, http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewContactInfo(mst, res.Contact))
}

func (h *Handler) HandleCombinedInfo(w http.ResponseWriter, r *http.Request) {
	keyword, err := request.Keyword(r)
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.pipeline.CombinedLookup(r.Context(), keyword)
	if err != nil {
		h.logger.Error("Combined lookup failed", zap.String("keyword", keyword), zap.Error(err))
		h.writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if res.Status != entity.LookupFound {
		h.writeJSONError(w, "Company not found: "+res.Reason, http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewCombined(res))
}

func (h *Handler) HandleListCompanies(w http.ResponseWriter, r *http.Request) {
	limit, err := request.Limit(r)
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	recs, err := h.pipeline.ListCompanies(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list companies", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewCompanyList(recs))
}

func (h *Handler) HandleGetCompany(w http.ResponseWriter, r *http.Request) {
	taxID := chi.URLParam(r, "taxID")
	keyword, err := request.Keyword(r)
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.pipeline.GetCompany(r.Context(), keyword, taxID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.writeJSONError(w, "Company not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get company", zap.String("keyword", keyword), zap.String("tax_id", taxID), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewCompany(rec))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.pipeline.Health(ctx); err != nil {
		h.logger.Warn("Health check failed", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
