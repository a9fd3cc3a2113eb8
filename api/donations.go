package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"raisefunds/database"
	"raisefunds/payments"
)

type donateRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	DonorName     string          `json:"donorName"`
	DonorAddress  string          `json:"donorAddress"`
	DonorUsername string          `json:"donorUsername"`
	Message       string          `json:"message"`
}

type verifyRequest struct {
	FundraiserID uint64 `json:"fundraiserId"`
	TxHash       string `json:"txHash"`
}

type confirmResponse struct {
	Success  bool               `json:"success"`
	Donation *database.Donation `json:"donation"`
}

func (s *Server) donate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req donateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	donation, err := s.donations.CreateDonation(r.Context(), id, payments.DonationRequest{
		Amount:        req.Amount,
		DonorName:     req.DonorName,
		DonorAddress:  req.DonorAddress,
		DonorUsername: req.DonorUsername,
		Message:       req.Message,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, donation)
}

func (s *Server) confirmDonation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	donation, err := s.donations.ConfirmDonation(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmResponse{Success: true, Donation: donation})
}

func (s *Server) verifyDonation(w http.ResponseWriter, r *http.Request) {
	if s.verifier == nil {
		writeServiceError(w, r, errNotImplemented)
		return
	}

	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.FundraiserID == 0 {
		writeServiceError(w, r, validationError("fundraiserId is required"))
		return
	}

	donation, err := s.verifier.VerifyDonation(r.Context(), req.FundraiserID, req.TxHash)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, donation)
}
