package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/boatlog/internal/common"
	"github.com/dmitrijs2005/boatlog/internal/logging"
	"github.com/dmitrijs2005/boatlog/internal/server/models"
	"github.com/go-chi/chi/v5"
)

type Users interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Authenticate(token string) (string, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

type Records interface {
	List(ctx context.Context, userID string, t models.RecordType) ([]models.Record, error)
	Get(ctx context.Context, userID string, t models.RecordType, id string) (*models.Record, error)
	Create(ctx context.Context, userID string, t models.RecordType, rec *models.Record) (*models.Record, error)
	Update(ctx context.Context, userID string, t models.RecordType, rec *models.Record) (*models.Record, error)
	Patch(ctx context.Context, userID string, t models.RecordType, id string, fields map[string]json.RawMessage) (*models.Record, error)
	Delete(ctx context.Context, userID string, t models.RecordType, id string) error
}

type Photos interface {
	UploadURL(ctx context.Context, userID, photoID string) (key, url string, err error)
}

type credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type uploadURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type handler struct {
	users    Users
	records  Records
	photos   Photos
	validate *validate
	logger   logging.Logger
}

// fail writes err as a JSON error and logs the ones the client cannot fix.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondError(w, status, msg)
}

func (h *handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", common.ErrValidation, err)
	}
	return nil
}

func recordType(r *http.Request) (models.RecordType, error) {
	t, err := models.ParseRecordType(chi.URLParam(r, "type"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return t, nil
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := h.decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.users.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info(r.Context(), "user registered", "user_id", u.ID)
	respondJSON(w, http.StatusCreated, map[string]string{"id": u.ID})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := h.decode(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.validate.Struct(in); err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.users.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *handler) listRecords(w http.ResponseWriter, r *http.Request) {
	t, err := recordType(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	recs, err := h.records.List(r.Context(), UserID(r.Context()), t)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (h *handler) getRecord(w http.ResponseWriter, r *http.Request) {
	t, err := recordType(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.records.Get(r.Context(), UserID(r.Context()), t, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// recordBody decodes and validates a record. pathID, when set, wins over the
// body's id.
func (h *handler) recordBody(r *http.Request, pathID string) (*models.Record, error) {
	var rec models.Record
	if err := h.decode(r, &rec); err != nil {
		return nil, err
	}
	if pathID != "" {
		rec.ID = pathID
	}
	if err := h.validate.Struct(rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (h *handler) createRecord(w http.ResponseWriter, r *http.Request) {
	t, err := recordType(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.recordBody(r, "")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.records.Create(r.Context(), UserID(r.Context()), t, rec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, out)
}

func (h *handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	t, err := recordType(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rec, err := h.recordBody(r, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.records.Update(r.Context(), UserID(r.Context()), t, rec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handler) patchRecord(w http.ResponseWriter, r *http.Request) {
	t, err := recordType(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var fields map[string]json.RawMessage
	if err := h.decode(r, &fields); err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.records.Patch(r.Context(), UserID(r.Context()), t, chi.URLParam(r, "id"), fields)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	t, err := recordType(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.records.Delete(r.Context(), UserID(r.Context()), t, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) photoUploadURL(w http.ResponseWriter, r *http.Request) {
	key, url, err := h.photos.UploadURL(r.Context(), UserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, uploadURLResponse{Key: key, URL: url})
}
