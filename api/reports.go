package api

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"raisefunds/database"
	"raisefunds/logger"
)

const (
	actionHide    = "hide"
	actionDismiss = "dismiss"
)

type createReportRequest struct {
	FundraiserID uint64 `json:"fundraiserId"`
	Reason       string `json:"reason"`
	Details      string `json:"details"`
}

type moderationRequest struct {
	Action       string `json:"action"`
	FundraiserID uint64 `json:"fundraiserId"`
	ReportID     uint64 `json:"reportId"`
}

type hideResponse struct {
	Success         bool                 `json:"success"`
	Fundraiser      *database.Fundraiser `json:"fundraiser"`
	ResolvedReports int64                `json:"resolvedReports"`
}

type dismissResponse struct {
	Success bool             `json:"success"`
	Report  *database.Report `json:"report"`
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	reason := strings.TrimSpace(req.Reason)
	switch {
	case req.FundraiserID == 0:
		writeServiceError(w, r, validationError("fundraiserId is required"))
		return
	case reason == "":
		writeServiceError(w, r, validationError("reason is required"))
		return
	}

	if _, err := database.FetchFundraiser(r.Context(), s.db, req.FundraiserID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	report := &database.Report{
		FundraiserID: req.FundraiserID,
		Reason:       reason,
		Details:      strings.TrimSpace(req.Details),
	}
	if err := database.CreateReport(r.Context(), s.db, report); err != nil {
		writeServiceError(w, r, errors.Wrap(err, "database.CreateReport"))
		return
	}

	logger.Info("Fundraiser %d reported: %s", report.FundraiserID, report.Reason)

	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := database.ListReports(r.Context(), s.db)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) moderate(w http.ResponseWriter, r *http.Request) {
	var req moderationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	switch req.Action {
	case actionHide:
		s.hideFundraiser(w, r, req.FundraiserID)
	case actionDismiss:
		s.dismissReport(w, r, req.ReportID)
	default:
		writeServiceError(w, r, validationError("action must be hide or dismiss"))
	}
}

// hideFundraiser hides a fundraiser and resolves its pending reports.
// Donations are left as they are.
func (s *Server) hideFundraiser(w http.ResponseWriter, r *http.Request, fundraiserID uint64) {
	if fundraiserID == 0 {
		writeServiceError(w, r, validationError("fundraiserId is required"))
		return
	}

	var (
		f        *database.Fundraiser
		resolved int64
	)
	err := s.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		f, err = database.UpdateFundraiserStatus(r.Context(), tx, fundraiserID, database.FundraiserHidden)
		if err != nil {
			return err
		}

		resolved, err = database.ResolvePendingReports(r.Context(), tx, fundraiserID)
		return err
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logger.Info("Fundraiser %d hidden by admin, %d reports resolved", fundraiserID, resolved)

	writeJSON(w, http.StatusOK, hideResponse{Success: true, Fundraiser: f, ResolvedReports: resolved})
}

func (s *Server) dismissReport(w http.ResponseWriter, r *http.Request, reportID uint64) {
	if reportID == 0 {
		writeServiceError(w, r, validationError("reportId is required"))
		return
	}

	report, err := database.SetReportStatus(r.Context(), s.db, reportID, database.ReportDismissed)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dismissResponse{Success: true, Report: report})
}
