package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Roklion/NFT-Extract/src/logger"
	"github.com/Roklion/NFT-Extract/src/services"
	"github.com/Roklion/NFT-Extract/src/utils"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// HandleGenerateReport runs a fresh analysis. Long-running; the pipeline is
// bounded by the request context so a dropped client cancels retrieval.
func (h *ReportHandler) HandleGenerateReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.GenerateReport(r.Context())
	if err != nil {
		logger.L.Error("Report generation failed", "error", err)
		utils.SendJSONError(w, "report generation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONWithETag(w, r, report)
}

func (h *ReportHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	report, found := h.reportService.LatestReport()
	if !found {
		utils.SendJSONError(w, "no report available, run an analysis first", http.StatusNotFound)
		return
	}
	writeJSONWithETag(w, r, report)
}

func (h *ReportHandler) HandleGetBalances(w http.ResponseWriter, r *http.Request) {
	report, found := h.reportService.LatestReport()
	if !found {
		utils.SendJSONError(w, "no report available, run an analysis first", http.StatusNotFound)
		return
	}
	writeJSONWithETag(w, r, report.Balances)
}

func (h *ReportHandler) HandleGetTaxEvents(w http.ResponseWriter, r *http.Request) {
	report, found := h.reportService.LatestReport()
	if !found {
		utils.SendJSONError(w, "no report available, run an analysis first", http.StatusNotFound)
		return
	}
	writeJSONWithETag(w, r, report.TaxEvents)
}

func writeJSONWithETag(w http.ResponseWriter, r *http.Request, payload any) {
	etag, err := utils.GenerateETag(payload)
	if err == nil {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.L.Error("Failed to encode response", "error", err)
	}
}
