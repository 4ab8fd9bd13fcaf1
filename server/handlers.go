package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/payload"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/registry"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/resolver"
	"github.com/Jasz0n/ioPlasmaVerse-Expo-sub002/types"
)

type routesResponse struct {
	PaymentID string           `json:"paymentId"`
	Routes    []resolver.Route `json:"routes"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body types.CreatePaymentRequest
	if !s.decode(w, r, &body) {
		return
	}

	req, err := s.registry.Create(r.Context(), registry.CreateParams{
		PayeeAddress: body.PayeeAddress,
		ChainID:      body.ChainID,
		Token:        body.TokenAddress,
		Amount:       body.Amount,
		Decimals:     body.Decimals,
		Message:      body.Message,
		Mode:         body.Mode,
		PayerHint:    body.PayerHint,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := types.CreatePaymentResponse{
		PaymentID:       req.ID,
		AmountBaseUnits: req.AmountBaseUnits.String(),
		ExpiresAt:       req.ExpiresAt,
	}
	if req.Mode == types.ModeQR {
		uri, err := payload.EncodeRequest(s.baseURI, req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.URI = uri
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	req, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewStatusResponse(req))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.registry.Cancel(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	req, err := s.registry.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewStatusResponse(req))
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if s.confirmer == nil {
		s.writeError(w, r, types.NewError(types.ErrCodeConfigError, "transaction confirmation is not enabled"))
		return
	}

	var body types.ConfirmRequest
	if !s.decode(w, r, &body) {
		return
	}

	req, err := s.confirmer.Confirm(r.Context(), chi.URLParam(r, "id"), body.ChainID, body.TxHash)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewStatusResponse(req))
}

func (s *Server) handleURI(w http.ResponseWriter, r *http.Request) {
	req, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	uri, err := payload.EncodeRequest(s.baseURI, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.URIResponse{PaymentID: req.ID, URI: uri})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if s.resolver == nil || s.balances == nil {
		s.writeError(w, r, types.NewError(types.ErrCodeConfigError, "route resolution is not enabled"))
		return
	}

	payer := r.URL.Query().Get("payer")
	if payer == "" {
		s.writeError(w, r, types.NewError(types.ErrCodeInvalidPayload, "payer query parameter is required"))
		return
	}

	req, err := s.registry.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Status != types.StatusPending {
		s.writeError(w, r, types.NewError(types.ErrCodeInvalidState, "payment request %s is %s", req.ID, req.Status))
		return
	}

	holdings, err := s.balances.Holdings(r.Context(), payer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	routes, err := s.resolver.Resolve(r.Context(), resolver.Target{
		Token:           req.TokenAddress,
		ChainID:         req.ChainID,
		AmountBaseUnits: req.AmountBaseUnits,
	}, holdings)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routesResponse{PaymentID: req.ID, Routes: routes})
}
