package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"raisefunds/database"
	"raisefunds/logger"
)

// The session cookie is an unsigned marker: "logged_in" after a password
// login, or the user id after a wallet login.
const (
	sessionCookie    = "creator_session"
	passwordSession  = "logged_in"
	sessionMaxAgeSec = 24 * 60 * 60
)

type loginRequest struct {
	Password      string  `json:"password"`
	WalletAddress string  `json:"walletAddress"`
	Username      string  `json:"username"`
	Fid           *uint64 `json:"fid"`
}

type loginResponse struct {
	Success bool           `json:"success"`
	User    *database.User `json:"user,omitempty"`
}

type meResponse struct {
	User        *database.User        `json:"user"`
	Fundraisers []database.Fundraiser `json:"fundraisers"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	wallet := strings.TrimSpace(req.WalletAddress)
	switch {
	case wallet != "":
		s.walletLogin(w, r, wallet, &req)

	case req.Password != "":
		if s.cfg.CreatorPassword == "" ||
			subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.cfg.CreatorPassword)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid password")
			return
		}
		setSession(w, passwordSession)
		writeJSON(w, http.StatusOK, loginResponse{Success: true})

	default:
		writeServiceError(w, r, validationError("password or walletAddress is required"))
	}
}

func (s *Server) walletLogin(w http.ResponseWriter, r *http.Request, wallet string, req *loginRequest) {
	if !common.IsHexAddress(wallet) {
		writeServiceError(w, r, validationError("walletAddress must be a hex address"))
		return
	}

	var username *string
	if name := strings.TrimSpace(req.Username); name != "" {
		username = &name
	}

	user, err := database.UpsertWalletUser(r.Context(), s.db, wallet, username, req.Fid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	logger.Debug("Wallet login for user %d", user.ID)

	setSession(w, strconv.FormatUint(user.ID, 10))
	writeJSON(w, http.StatusOK, loginResponse{Success: true, User: user})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Success: true})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionUserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not logged in with a wallet")
		return
	}

	user, err := database.FetchUser(r.Context(), s.db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusUnauthorized, "not logged in with a wallet")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	fundraisers, err := database.ListFundraisersByCreator(r.Context(), s.db, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: user, Fundraisers: fundraisers})
}

func setSession(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   sessionMaxAgeSec,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionUserID returns the user id of a wallet session.
func sessionUserID(r *http.Request) (uint64, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return 0, false
	}

	id, err := strconv.ParseUint(cookie.Value, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
