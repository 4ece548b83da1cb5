package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/shoplocal/shopfinder/internal/metrics"
	"github.com/shoplocal/shopfinder/internal/shop"
)

type healthResponse struct {
	Healthy bool `json:"healthy"`
}

type errorResponse struct {
	Msg string `json:"msg"`
}

type shopDTO struct {
	Title       string  `json:"title"`
	URL         *string `json:"url"`
	DonationURL *string `json:"donationUrl"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
}

type shopListResponse struct {
	Items []shopDTO `json:"items"`
}

type upsertShopRequest struct {
	Title       string  `json:"title"`
	URL         *string `json:"url"`
	DonationURL *string `json:"donationUrl"`
	Lon         float64 `json:"lon"`
	Lat         float64 `json:"lat"`
}

func (req upsertShopRequest) toNewShop() shop.NewShop {
	return shop.NewShop{
		Title:       req.Title,
		URL:         req.URL,
		DonationURL: req.DonationURL,
		Location:    shop.Point{Lon: req.Lon, Lat: req.Lat},
	}
}

func toShopDTO(s shop.Shop) shopDTO {
	return shopDTO{
		Title:       s.Title,
		URL:         s.URL,
		DonationURL: s.DonationURL,
		Lon:         s.Location.Lon,
		Lat:         s.Location.Lat,
	}
}

func toShopListResponse(shops []shop.Shop) shopListResponse {
	items := make([]shopDTO, 0, len(shops))
	for _, s := range shops {
		items = append(items, toShopDTO(s))
	}
	return shopListResponse{Items: items}
}

// healthy reports liveness without touching the store.
func (s *Server) healthy(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Healthy: true})
}

func (s *Server) getShops(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	lon, err := strconv.ParseFloat(params.Get("lon"), 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "lon must be a float")
		return
	}
	lat, err := strconv.ParseFloat(params.Get("lat"), 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "lat must be a float")
		return
	}
	radius, err := strconv.Atoi(params.Get("range"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "range must be an integer")
		return
	}
	center := shop.Point{Lon: lon, Lat: lat}

	if params.Has("q") {
		query := params.Get("q")
		// Too short to produce meaningful trigrams; answer without
		// touching the store.
		if len(query) < 2 {
			s.writeJSON(w, http.StatusOK, shopListResponse{Items: []shopDTO{}})
			return
		}
		shops, err := s.store.SearchShopsInRange(r.Context(), query, center, radius)
		if err != nil {
			s.logger.Warn("shop search failed", zap.Error(err))
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, toShopListResponse(shops))
		return
	}

	shops, err := s.store.ShopsInRange(r.Context(), center, radius)
	if err != nil {
		s.logger.Warn("shop range query failed", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("fetched shops", zap.Int("count", len(shops)))
	s.writeJSON(w, http.StatusOK, toShopListResponse(shops))
}

func (s *Server) insertShop(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeShop(w, r)
	if !ok {
		return
	}
	candidate := req.toNewShop()
	if err := s.validator.ValidateShop(r.Context(), candidate); err != nil {
		metrics.ObserveValidation(false)
		s.logger.Warn("shop rejected", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.ObserveValidation(true)

	created, err := s.store.InsertShop(r.Context(), candidate)
	if err != nil {
		s.logger.Warn("insert shop failed", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("inserted shop", zap.String("title", created.Title))
	s.writeJSON(w, http.StatusCreated, toShopDTO(created))
}

func (s *Server) updateShop(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeShop(w, r)
	if !ok {
		return
	}
	candidate := req.toNewShop()
	if err := s.validator.ValidateShop(r.Context(), candidate); err != nil {
		metrics.ObserveValidation(false)
		s.logger.Warn("shop rejected", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.ObserveValidation(true)

	updated, err := s.store.UpdateShop(r.Context(), candidate)
	if err != nil {
		s.logger.Warn("update shop failed", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("updated shop", zap.String("title", updated.Title))
	// updates answer 201, not 200; the front end treats created and
	// updated alike
	s.writeJSON(w, http.StatusCreated, toShopDTO(updated))
}

func (s *Server) decodeShop(w http.ResponseWriter, r *http.Request) (upsertShopRequest, bool) {
	var req upsertShopRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.BodyLimit)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return upsertShopRequest{}, false
	}
	return req, true
}
