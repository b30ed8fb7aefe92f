package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
)

// CatalogService resolves variant selections.
type CatalogService interface {
	GetProductOptions(ctx context.Context, productID string, selection domain.AttributeSelection) (*service.ProductOptions, error)
	SelectAttribute(ctx context.Context, productID string, in service.SelectionInput) (*service.SelectionResult, error)
}

// CatalogHandler serves product option and selection endpoints.
type CatalogHandler struct {
	service CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

// GetOptions handles GET /api/v1/products/{id}/options. Every query
// parameter is read as an attribute selection, e.g. ?cor=azul&tamanho=42.
func (h *CatalogHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	selection := domain.AttributeSelection{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 && values[0] != "" {
			selection[key] = values[0]
		}
	}

	out, err := h.service.GetProductOptions(r.Context(), chi.URLParam(r, "id"), selection)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, out)
}

// SelectAttribute handles POST /api/v1/products/{id}/selection.
func (h *CatalogHandler) SelectAttribute(w http.ResponseWriter, r *http.Request) {
	var req service.SelectionInput
	if !decode(w, r, &req) {
		return
	}

	out, err := h.service.SelectAttribute(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, out)
}
