package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"note-summary-service/internal/entity"
	"note-summary-service/internal/service"
)

// maxBodyBytes caps a create request above the longest accepted note in
// plain UTF-8 (4 bytes per rune).
const maxBodyBytes = 64 << 10

type Handler struct {
	noteSvc *service.NoteService
	log     *slog.Logger
}

func NewHandler(noteSvc *service.NoteService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{noteSvc: noteSvc, log: logger}
}

type createNoteDTO struct {
	Text string `json:"text"`
}

type noteResp struct {
	ID        string            `json:"id"`
	Text      string            `json:"text"`
	Summary   *string           `json:"summary"`
	Status    entity.NoteStatus `json:"status"`
	Attempts  int               `json:"attempts"`
	LastError *string           `json:"last_error,omitempty"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

func toNoteResp(n *entity.Note) noteResp {
	return noteResp{
		ID:        n.ID.String(),
		Text:      n.Text,
		Summary:   n.Summary,
		Status:    n.Status,
		Attempts:  n.Attempts,
		LastError: n.LastError,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateNote godoc
// @Summary Create a note
// @Description Stores the note as queued; a worker summarizes it in the background.
// @Tags notes
// @Accept json
// @Produce json
// @Param X-Owner-ID header string true "owner id"
// @Param request body createNoteDTO true "note payload"
// @Success 201 {object} noteResp
// @Failure 400 {object} apiError
// @Failure 401 {object} apiError
// @Failure 413 {object} apiError
// @Failure 500 {object} apiError
// @Router /notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var dto createNoteDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	n, err := h.noteSvc.CreateNote(r.Context(), service.CreateNoteRequest{
		Owner: ownerFrom(r.Context()),
		Text:  dto.Text,
	})
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toNoteResp(n))
}

// GetNote godoc
// @Summary Get note by id
// @Tags notes
// @Produce json
// @Param X-Owner-ID header string true "owner id"
// @Param id path string true "note id (uuid)"
// @Success 200 {object} noteResp
// @Failure 400 {object} apiError
// @Failure 401 {object} apiError
// @Failure 404 {object} apiError
// @Router /notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}

	n, err := h.noteSvc.GetNote(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toNoteResp(n))
}

// ListNotes godoc
// @Summary List notes
// @Description Newest first. The total match count is returned in X-Total-Count.
// @Tags notes
// @Produce json
// @Param X-Owner-ID header string true "owner id"
// @Param limit query int false "page size (1..100, default 20)"
// @Param offset query int false "rows to skip"
// @Param status query string false "queued|processing|done|failed"
// @Param q query string false "case-insensitive text search"
// @Success 200 {array} noteResp
// @Header 200 {integer} X-Total-Count "total matching notes"
// @Failure 400 {object} apiError
// @Failure 401 {object} apiError
// @Router /notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid offset")
		return
	}

	notes, total, err := h.noteSvc.ListNotes(r.Context(), service.ListNotesRequest{
		Owner:  ownerFrom(r.Context()),
		Status: q.Get("status"),
		Query:  q.Get("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}

	resp := make([]noteResp, 0, len(notes))
	for _, n := range notes {
		resp = append(resp, toNoteResp(n))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, resp)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
