package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"raisefunds/database"
	"raisefunds/logger"
)

type fundraiserListItem struct {
	database.Fundraiser
	DonationCount int64 `json:"donationCount"`
}

type createFundraiserRequest struct {
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	GoalAmount         decimal.Decimal `json:"goalAmount"`
	Currency           string          `json:"currency"`
	BeneficiaryAddress string          `json:"beneficiaryAddress"`
	Category           string          `json:"category"`
	CoverImageURL      string          `json:"coverImageUrl"`
	ChainID            *uint64         `json:"chainId"`
	Deadline           *time.Time      `json:"deadline"`
	CreatorUserID      *uint64         `json:"creatorUserId"`
}

type patchFundraiserRequest struct {
	Status string `json:"status"`
}

type createUpdateRequest struct {
	Text     string `json:"text"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	ImageURL string `json:"imageUrl"`
}

func (s *Server) listFundraisers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := database.FundraiserFilter{
		Category: query.Get("category"),
		Search:   query.Get("search"),
		Sort:     query.Get("sort"),
	}
	if filter.Sort != database.SortTrending {
		filter.Sort = database.SortNewest
	}

	fundraisers, err := database.ListFundraisers(r.Context(), s.db, filter)
	if database.IsUnavailable(err) {
		logger.Warn("Database unavailable, serving an empty fundraiser list: %s", err)
		writeJSON(w, http.StatusOK, []fundraiserListItem{})
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ids := make([]uint64, len(fundraisers))
	for i := range fundraisers {
		ids[i] = fundraisers[i].ID
	}

	counts, err := database.CountConfirmedDonations(r.Context(), s.db, ids)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]fundraiserListItem, len(fundraisers))
	for i := range fundraisers {
		items[i] = fundraiserListItem{Fundraiser: fundraisers[i], DonationCount: counts[fundraisers[i].ID]}
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) createFundraiser(w http.ResponseWriter, r *http.Request) {
	var req createFundraiserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	f, err := s.validateFundraiser(r, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := database.CreateFundraiser(r.Context(), s.db, f); err != nil {
		writeServiceError(w, r, errors.Wrap(err, "database.CreateFundraiser"))
		return
	}

	logger.Info("Created fundraiser %d %q in %s", f.ID, f.Title, f.Category)

	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) validateFundraiser(r *http.Request, req *createFundraiserRequest) (*database.Fundraiser, error) {
	f := &database.Fundraiser{
		Title:              strings.TrimSpace(req.Title),
		Description:        strings.TrimSpace(req.Description),
		GoalAmount:         database.NewAmount(req.GoalAmount),
		Currency:           strings.ToUpper(strings.TrimSpace(req.Currency)),
		BeneficiaryAddress: strings.TrimSpace(req.BeneficiaryAddress),
		Category:           strings.TrimSpace(req.Category),
		CoverImageURL:      strings.TrimSpace(req.CoverImageURL),
		ChainID:            req.ChainID,
		Deadline:           req.Deadline,
	}

	switch {
	case f.Title == "":
		return nil, validationError("title is required")
	case f.Description == "":
		return nil, validationError("description is required")
	case !f.GoalAmount.IsPositive():
		return nil, validationError("goalAmount must be positive")
	case !strings.HasPrefix(f.BeneficiaryAddress, "0x") || !common.IsHexAddress(f.BeneficiaryAddress):
		return nil, validationError("beneficiaryAddress must be a 0x-prefixed hex address")
	case f.Category == "":
		return nil, validationError("category is required")
	case f.Deadline != nil && !f.Deadline.After(s.now()):
		return nil, validationError("deadline must be in the future")
	}

	creatorID := req.CreatorUserID
	if creatorID == nil {
		if id, ok := sessionUserID(r); ok {
			creatorID = &id
		}
	}
	if creatorID != nil {
		_, err := database.FetchUser(r.Context(), s.db, *creatorID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationError("creator does not exist")
		}
		if err != nil {
			return nil, errors.Wrap(err, "database.FetchUser")
		}
		f.CreatorUserID = creatorID
	}

	return f, nil
}

func (s *Server) getFundraiser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	f, err := database.FetchFundraiserDetails(r.Context(), s.db, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.Status == database.FundraiserHidden {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	writeJSON(w, http.StatusOK, f)
}

func (s *Server) patchFundraiser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req patchFundraiserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := database.FundraiserStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		writeServiceError(w, r, validationError("status must be one of ACTIVE, PAUSED, ENDED, HIDDEN"))
		return
	}

	// TODO: restrict to the fundraiser's creator once sessions are signed.
	f, err := database.UpdateFundraiserStatus(r.Context(), s.db, id, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logger.Info("Fundraiser %d status set to %s", f.ID, f.Status)

	writeJSON(w, http.StatusOK, f)
}

func (s *Server) listUpdates(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if _, err := database.FetchFundraiser(r.Context(), s.db, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	updates, err := database.ListUpdates(r.Context(), s.db, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updates)
}

func (s *Server) createUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req createUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		content = strings.TrimSpace(req.Text)
	}
	if content == "" {
		writeServiceError(w, r, validationError("content is required"))
		return
	}

	if _, err := database.FetchFundraiser(r.Context(), s.db, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	update := &database.Update{
		FundraiserID: id,
		Title:        strings.TrimSpace(req.Title),
		Content:      content,
		ImageURL:     strings.TrimSpace(req.ImageURL),
	}
	if err := database.CreateUpdate(r.Context(), s.db, update); err != nil {
		writeServiceError(w, r, errors.Wrap(err, "database.CreateUpdate"))
		return
	}

	writeJSON(w, http.StatusCreated, update)
}
