package web

import (
	"errors"
	"net/http"
	"os"

	"github.com/JonMunkholm/dataviz/internal/iris"
	"github.com/JonMunkholm/dataviz/internal/logging"
)

// The species endpoints answer in the {"detail": ...} shape their clients
// already parse, not with ErrorResponse.

type detailResponse struct {
	Detail any `json:"detail"`
}

type validationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type speciesResponse struct {
	Data  []map[string]any `json:"data"`
	Image string           `json:"image"`
}

// speciesParam reads the required ?species= parameter, answering 422 when
// it is missing.
func speciesParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := r.URL.Query()
	if !q.Has("species") {
		writeJSONStatus(w, http.StatusUnprocessableEntity, detailResponse{Detail: []validationDetail{{
			Loc:  []string{"query", "species"},
			Msg:  "field required",
			Type: "value_error.missing",
		}}})
		return "", false
	}
	return q.Get("species"), true
}

// handleSpecies returns the species' rows and renders its distribution
// image.
func (s *Server) handleSpecies(w http.ResponseWriter, r *http.Request) {
	if s.iris == nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, detailResponse{Detail: "Iris dataset not loaded"})
		return
	}
	species, ok := speciesParam(w, r)
	if !ok {
		return
	}
	log := logging.FromContext(r.Context())

	t, err := s.iris.Filter(species)
	if err != nil {
		if errors.Is(err, iris.ErrSpeciesNotFound) {
			writeJSONStatus(w, http.StatusNotFound, detailResponse{Detail: "Species not found"})
			return
		}
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	path, err := s.iris.RenderDistribution(species)
	if err != nil {
		log.Error("render distribution", "species", species, "error", err)
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	log.Info("species served", "species", species, "rows", t.NumRows(), "image", path)
	writeJSON(w, speciesResponse{Data: iris.Records(t), Image: path})
}

// handleVisualize serves the image written by handleSpecies.
func (s *Server) handleVisualize(w http.ResponseWriter, r *http.Request) {
	if s.iris == nil {
		writeJSONStatus(w, http.StatusServiceUnavailable, detailResponse{Detail: "Iris dataset not loaded"})
		return
	}
	species, ok := speciesParam(w, r)
	if !ok {
		return
	}

	path, err := s.iris.ImagePath(species)
	if err != nil {
		writeJSONStatus(w, http.StatusNotFound, detailResponse{Detail: "Image not found"})
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logging.FromContext(r.Context()).Warn("read distribution image", "path", path, "error", err)
		writeJSONStatus(w, http.StatusNotFound, detailResponse{Detail: "Image not found"})
		return
	}
	writePNG(w, data, "no-cache")
}
