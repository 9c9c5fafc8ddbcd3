package mock

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, errConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errInvalidLogin):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, errInvalidParent):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("mock handler failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) requestCode(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeBody(r, &in); err != nil || strings.TrimSpace(in.Email) == "" {
		respondError(w, http.StatusBadRequest, "email is required")
		return
	}
	code, err := s.store.requestCode(in.Email)
	if err != nil && !errors.Is(err, errNotFound) {
		s.fail(w, err)
		return
	}
	if err == nil {
		s.logger.Info("login code issued", "email", in.Email, "code", code)
	}
	// Unknown emails get the same answer.
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := decodeBody(r, &in); err != nil || in.Email == "" || (in.Password == "" && in.Code == "") {
		respondError(w, http.StatusBadRequest, "email and password or code are required")
		return
	}
	token, user, err := s.store.signIn(in.Email, in.Password, in.Code)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if token, ok := bearer(r); ok {
		s.store.revoke(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &in); err != nil || strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.Name) == "" {
		respondError(w, http.StatusBadRequest, "name and email are required")
		return
	}
	token, user, err := s.store.register(strings.TrimSpace(in.Name), in.Email, in.Phone, in.Password)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"user": currentUser(r)})
}

func (s *Server) updateName(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if chi.URLParam(r, "id") != user.ID {
		s.fail(w, errNotFound)
		return
	}
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &in); err != nil || strings.TrimSpace(in.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	updated, err := s.store.rename(user.ID, strings.TrimSpace(in.Name))
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": updated})
}

func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs := s.store.organizations(currentUser(r).ID)
	respondJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

type collectionBody struct {
	Collection struct {
		Name string `json:"name"`
	} `json:"collection"`
}

func collectionName(r *http.Request) (string, bool) {
	var in collectionBody
	if err := decodeBody(r, &in); err != nil {
		return "", false
	}
	name := strings.TrimSpace(in.Collection.Name)
	return name, name != ""
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.store.listCollections(currentUser(r).ID, chi.URLParam(r, "orgID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"collections": cols})
}

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	name, ok := collectionName(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "collection name is required")
		return
	}
	col, err := s.store.createCollection(currentUser(r).ID, chi.URLParam(r, "orgID"), name)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"collection": col})
}

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request) {
	col, err := s.store.getCollection(currentUser(r).ID, chi.URLParam(r, "orgID"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"collection": col})
}

func (s *Server) renameCollection(w http.ResponseWriter, r *http.Request) {
	name, ok := collectionName(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "collection name is required")
		return
	}
	col, err := s.store.renameCollection(currentUser(r).ID, chi.URLParam(r, "orgID"), chi.URLParam(r, "id"), name)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"collection": col})
}

func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.store.deleteCollection(currentUser(r).ID, chi.URLParam(r, "orgID"), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) saveEnvironments(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Environments *model.Environments `json:"environments"`
	}
	if err := decodeBody(r, &in); err != nil || in.Environments == nil {
		respondError(w, http.StatusBadRequest, "environments are required")
		return
	}
	col, err := s.store.saveEnvironments(currentUser(r).ID, chi.URLParam(r, "collectionID"), *in.Environments)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"collection": col})
}

func (s *Server) listRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.store.listRequests(currentUser(r).ID, chi.URLParam(r, "collectionID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"requests": reqs})
}

func (s *Server) getRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.store.getRequest(currentUser(r).ID, chi.URLParam(r, "collectionID"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"request": req})
}

func requestBody(r *http.Request) (model.Request, bool) {
	var in struct {
		Request *model.Request `json:"request"`
	}
	if err := decodeBody(r, &in); err != nil || in.Request == nil {
		return model.Request{}, false
	}
	req := *in.Request
	if req.Type != "" && req.Type != model.ItemRequest && req.Type != model.ItemFolder {
		return model.Request{}, false
	}
	if !req.IsFolder() && req.Method != "" {
		if _, ok := model.ParseMethod(string(req.Method)); !ok {
			return model.Request{}, false
		}
	}
	return req, true
}

func (s *Server) createRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := requestBody(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid request")
		return
	}
	created, err := s.store.createRequest(currentUser(r).ID, chi.URLParam(r, "collectionID"), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"request": created})
}

func (s *Server) updateRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := requestBody(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid request")
		return
	}
	updated, err := s.store.updateRequest(currentUser(r).ID, chi.URLParam(r, "collectionID"), chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"request": updated})
}

func (s *Server) deleteRequest(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.deleteRequest(currentUser(r).ID, chi.URLParam(r, "collectionID"), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deletedIds": ids})
}
