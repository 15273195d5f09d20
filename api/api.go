package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/multierr"

	"fielder/attribute"
	"fielder/service"
	"fielder/store"
)

// Service is the application surface the handlers call. *service.Service
// satisfies it.
type Service interface {
	CreateAttribute(ctx context.Context, a *attribute.Attribute, actor string) error
	GetAttribute(ctx context.Context, id int64) (attribute.Attribute, error)
	UpdateAttribute(ctx context.Context, a *attribute.Attribute, actor string) error
	DeleteAttribute(ctx context.Context, id int64, actor string) error
	ListAttributes(ctx context.Context, projectID int64, kind attribute.Kind) ([]attribute.Attribute, error)
	GetValues(ctx context.Context, kind attribute.Kind, itemID int64) (attribute.ValueBag, error)
	SetValues(ctx context.Context, bag *attribute.ValueBag, actor string) error
}

type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

type Server struct {
	svc    Service
	logger Logger
}

func NewServer(svc Service, logger Logger) *Server {
	return &Server{
		svc:    svc,
		logger: logger,
	}
}

// Router wires all routes.
func (s *Server) Router() http.Handler {
	r := httprouter.New()
	r.POST("/v1/projects/:project/attributes/:kind", s.createAttribute)
	r.GET("/v1/projects/:project/attributes/:kind", s.listAttributes)
	r.GET("/v1/attributes/:id", s.getAttribute)
	r.PATCH("/v1/attributes/:id", s.updateAttribute)
	r.DELETE("/v1/attributes/:id", s.deleteAttribute)
	r.GET("/v1/items/:kind/:item/values", s.getValues)
	r.PUT("/v1/items/:kind/:item/values", s.putValues)
	r.GET("/healthz", s.healthz)
	return r
}

type attributeJSON struct {
	ID          int64    `json:"id"`
	Project     int64    `json:"project"`
	Kind        string   `json:"kind"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	Order       int      `json:"order"`
	Options     []string `json:"options,omitempty"`
	CreatedAt   string   `json:"created_date"`
	ModifiedAt  string   `json:"modified_date"`
}

func toAttributeJSON(a attribute.Attribute) attributeJSON {
	return attributeJSON{
		ID:          a.ID,
		Project:     a.ProjectID,
		Kind:        string(a.Kind),
		Name:        a.Name,
		Description: a.Description,
		Type:        string(a.Type),
		Order:       a.Order,
		Options:     a.Options,
		CreatedAt:   a.CreatedAt.Format(timeLayout),
		ModifiedAt:  a.ModifiedAt.Format(timeLayout),
	}
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type attributeBody struct {
	Project     *int64   `json:"project"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Type        *string  `json:"type"`
	Order       *int     `json:"order"`
	Options     []string `json:"options"`
}

type valuesJSON struct {
	Item    int64                  `json:"item"`
	Kind    string                 `json:"kind"`
	Project int64                  `json:"project"`
	Version int                    `json:"version"`
	Values  map[string]interface{} `json:"attributes_values"`
}

type valuesBody struct {
	Project int64                   `json:"project"`
	Version int                     `json:"version"`
	Values  *map[string]interface{} `json:"attributes_values"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func (s *Server) createAttribute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	projectID, err := strconv.ParseInt(ps.ByName("project"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "bad project id")
		return
	}
	kind, err := attribute.ParseKind(ps.ByName("kind"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body attributeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	a := attribute.Attribute{
		ProjectID: projectID,
		Kind:      kind,
		Options:   body.Options,
	}
	if body.Name != nil {
		a.Name = *body.Name
	}
	if body.Description != nil {
		a.Description = *body.Description
	}
	if body.Type != nil {
		a.Type = attribute.Type(*body.Type)
	}
	if body.Order != nil {
		a.Order = *body.Order
	}

	if err := s.svc.CreateAttribute(r.Context(), &a, actor(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, toAttributeJSON(a))
}

func (s *Server) listAttributes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	projectID, err := strconv.ParseInt(ps.ByName("project"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "bad project id")
		return
	}
	kind, err := attribute.ParseKind(ps.ByName("kind"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	attrs, err := s.svc.ListAttributes(r.Context(), projectID, kind)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make([]attributeJSON, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, toAttributeJSON(a))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getAttribute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "bad attribute id")
		return
	}

	a, err := s.svc.GetAttribute(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAttributeJSON(a))
}

func (s *Server) updateAttribute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "bad attribute id")
		return
	}

	a, err := s.svc.GetAttribute(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var body attributeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	if body.Project != nil {
		a.ProjectID = *body.Project
	}
	if body.Name != nil {
		a.Name = *body.Name
	}
	if body.Description != nil {
		a.Description = *body.Description
	}
	if body.Type != nil {
		a.Type = attribute.Type(*body.Type)
	}
	if body.Order != nil {
		a.Order = *body.Order
	}
	if body.Options != nil {
		a.Options = body.Options
	}

	if err := s.svc.UpdateAttribute(r.Context(), &a, actor(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toAttributeJSON(a))
}

func (s *Server) deleteAttribute(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := strconv.ParseInt(ps.ByName("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "bad attribute id")
		return
	}

	if err := s.svc.DeleteAttribute(r.Context(), id, actor(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getValues(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	kind, err := attribute.ParseKind(ps.ByName("kind"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID, err := strconv.ParseInt(ps.ByName("item"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "bad item id")
		return
	}

	bag, err := s.svc.GetValues(r.Context(), kind, itemID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toValuesJSON(bag))
}

func (s *Server) putValues(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	kind, err := attribute.ParseKind(ps.ByName("kind"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	itemID, err := strconv.ParseInt(ps.ByName("item"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "bad item id")
		return
	}

	var body valuesBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if body.Values == nil {
		s.writeError(w, http.StatusBadRequest, service.ErrMalformedValues.Error())
		return
	}

	values := map[int64]interface{}{}
	for key, v := range *body.Values {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "attribute keys must be numeric")
			return
		}
		values[id] = v
	}

	bag := attribute.ValueBag{
		ProjectID: body.Project,
		Kind:      kind,
		ItemID:    itemID,
		Version:   body.Version,
		Values:    values,
	}
	if err := s.svc.SetValues(r.Context(), &bag, actor(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toValuesJSON(bag))
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toValuesJSON(bag attribute.ValueBag) valuesJSON {
	values := map[string]interface{}{}
	for id, v := range bag.Values {
		values[strconv.FormatInt(id, 10)] = v
	}
	return valuesJSON{
		Item:    bag.ItemID,
		Kind:    string(bag.Kind),
		Project: bag.ProjectID,
		Version: bag.Version,
		Values:  values,
	}
}

func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "anonymous"
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrDuplicateName),
		errors.Is(err, store.ErrVersionConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrUnknownAttribute),
		errors.Is(err, service.ErrMalformedValues),
		isValidationError(err):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Errorw("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, e := range multierr.Errors(err) {
		switch {
		case errors.Is(e, attribute.ErrEmptyName),
			errors.Is(e, attribute.ErrNameTooLong),
			errors.Is(e, attribute.ErrBadKind),
			errors.Is(e, attribute.ErrBadType),
			errors.Is(e, attribute.ErrBadOrder),
			errors.Is(e, attribute.ErrBadOptions),
			errors.Is(e, attribute.ErrBadEstimation):
			return true
		}
	}
	return false
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, errorJSON{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warnw("response write failed", "error", err)
	}
}
