package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/robert-malhotra/landcover/internal/catalog"
	"github.com/robert-malhotra/landcover/internal/config"
	"github.com/robert-malhotra/landcover/internal/geo"
	"github.com/robert-malhotra/landcover/internal/pipeline"
	"github.com/robert-malhotra/landcover/internal/query"
	"github.com/robert-malhotra/landcover/internal/raster"
	"github.com/robert-malhotra/landcover/internal/scene"
	"github.com/robert-malhotra/landcover/internal/session"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Handlers contains all HTTP handlers for the API.
type Handlers struct {
	service     *pipeline.Service
	sessions    *session.Store
	collections *config.CollectionRegistry
	logger      *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(
	service *pipeline.Service,
	sessions *session.Store,
	collections *config.CollectionRegistry,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		service:     service,
		sessions:    sessions,
		collections: collections,
		logger:      logger,
	}
}

// Health returns the health status of the service.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	count, _ := h.sessions.Stats()
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": count,
	})
}

// Collections lists the searchable collections.
// GET /collections
func (h *Handlers) Collections(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"collections": h.collections.All(),
	})
}

// sessionView is the JSON rendering of a session.
type sessionView struct {
	ID           string         `json:"id"`
	Status       session.Status `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	Dates        []string       `json:"dates"`
	SelectedDate string         `json:"selected_date,omitempty"`
	Notice       string         `json:"notice,omitempty"`
	Searches     int            `json:"searches"`
}

func viewOf(sess *session.Session) sessionView {
	snap := sess.Snapshot()
	v := sessionView{
		ID:        sess.ID,
		Status:    snap.Status,
		CreatedAt: sess.CreatedAt,
		Dates:     snap.Labels(),
		Notice:    snap.Notice,
		Searches:  len(snap.History),
	}
	if v.Dates == nil {
		v.Dates = []string{}
	}
	if snap.Status == session.StatusSelected {
		v.SelectedDate, _ = snap.Index.Label(snap.Selected)
	}
	return v
}

// CreateSession starts an empty session.
// POST /sessions
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Create()
	h.logger.DebugContext(r.Context(), "session created", slog.String("session", sess.ID))
	WriteJSON(w, http.StatusCreated, viewOf(sess))
}

// GetSession returns the session status.
// GET /sessions/{sessionID}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, viewOf(sess))
}

// DeleteSession discards a session.
// DELETE /sessions/{sessionID}
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		WriteNotFound(w, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// searchRequest is the body of POST /sessions/{sessionID}/search.
type searchRequest struct {
	Collection    string   `json:"collection"`
	StartDate     string   `json:"start_date"`
	EndDate       string   `json:"end_date"`
	MinCloudCover *float64 `json:"min_cloud_cover,omitempty"`
	MaxCloudCover *float64 `json:"max_cloud_cover"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Buffer        *float64 `json:"buffer"`
}

// params converts the request to query params. Missing required numbers
// are reported here since zero is a meaningful value for each of them.
func (req searchRequest) params() (query.Params, error) {
	var missing []string
	for name, v := range map[string]*float64{
		"max_cloud_cover": req.MaxCloudCover,
		"latitude":        req.Latitude,
		"longitude":       req.Longitude,
		"buffer":          req.Buffer,
	} {
		if v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return query.Params{}, fmt.Errorf("%w: missing required fields: %s", query.ErrValidation, strings.Join(missing, ", "))
	}

	start, err := query.ParseDate(req.StartDate)
	if err != nil {
		return query.Params{}, err
	}
	end, err := query.ParseDate(req.EndDate)
	if err != nil {
		return query.Params{}, err
	}

	p := query.Params{
		Collection:    req.Collection,
		Start:         start,
		End:           end,
		MaxCloudCover: *req.MaxCloudCover,
		Latitude:      *req.Latitude,
		Longitude:     *req.Longitude,
		Buffer:        *req.Buffer,
	}
	if req.MinCloudCover != nil {
		p.MinCloudCover = *req.MinCloudCover
	}
	return p, nil
}

// Search runs a scene search in the session.
// POST /sessions/{sessionID}/search
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	params, err := req.params()
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	result, err := h.service.RunSearch(r.Context(), sess, params)
	if err != nil {
		if pipeline.IsNoResults(err) {
			snap := sess.Snapshot()
			WriteJSON(w, http.StatusOK, map[string]any{
				"status": "no_results",
				"notice": snap.Notice,
				"dates":  nonNil(snap.Labels()),
			})
			return
		}
		h.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"seq":    result.Seq,
		"dates":  result.Labels,
	})
}

// Dates lists the date labels of the loaded scenes.
// GET /sessions/{sessionID}/dates
func (h *Handlers) Dates(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"dates": h.service.ListDates(sess),
	})
}

// SelectDate picks the date to visualize.
// PUT /sessions/{sessionID}/selection
func (h *Handlers) SelectDate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Date string `json:"date"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	index, err := h.service.SelectDate(sess, req.Date)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"date":  req.Date,
		"index": index,
	})
}

// visualizationView adds the ordered buckets to the summary.
type visualizationView struct {
	*pipeline.Visualization
	Buckets []scene.BucketCount `json:"buckets"`
}

// Visualization returns the land-cover summary of the selected date.
// GET /sessions/{sessionID}/visualization
func (h *Handlers) Visualization(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	vis, err := h.service.Visualize(sess)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, visualizationView{
		Visualization: vis,
		Buckets:       vis.Summary.Buckets(),
	})
}

// VisualizationPNG renders the true-colour preview of the selected date.
// The stretch query parameter selects "robust" (default) or "full".
// GET /sessions/{sessionID}/visualization/rgb.png
func (h *Handlers) VisualizationPNG(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	stretch := scene.RobustStretch
	switch r.URL.Query().Get("stretch") {
	case "", "robust":
	case "full":
		stretch = scene.Stretch{Low: 0, High: 100}
	default:
		WriteInvalidParameter(w, "stretch must be 'robust' or 'full'")
		return
	}

	vis, err := h.service.Visualize(sess)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `inline; filename="`+vis.Date+`.png"`)
	w.WriteHeader(http.StatusOK)
	if err := scene.EncodePNG(w, vis.RGB.Image(stretch)); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write preview", slog.String("error", err.Error()))
	}
}

// History lists the searches submitted in the session.
// GET /sessions/{sessionID}/history
func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"searches": h.service.History(sess),
	})
}

// session resolves the {sessionID} route parameter, writing a 404 when it
// is unknown.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteNotFound(w, "session not found")
		return nil, false
	}
	return sess, true
}

// writeServiceError maps command errors onto HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, query.ErrValidation), errors.Is(err, geo.ErrInvalidGeometry):
		WriteInvalidParameter(w, err.Error())
	case errors.Is(err, session.ErrUnknownDate):
		WriteInvalidParameter(w, err.Error())
	case errors.Is(err, session.ErrNoStack):
		WriteConflict(w, "no scenes loaded; run a search first")
	case errors.Is(err, scene.ErrIndexOutOfRange), errors.Is(err, session.ErrStaleResult):
		WriteConflict(w, err.Error())
	case errors.Is(err, catalog.ErrUnavailable):
		h.logger.ErrorContext(r.Context(), "catalog unavailable", slog.String("error", err.Error()))
		WriteUpstreamError(w, "scene catalog unavailable")
	case errors.Is(err, raster.ErrLoad), errors.Is(err, scene.ErrLoad):
		h.logger.ErrorContext(r.Context(), "scene data error", slog.String("error", err.Error()))
		WriteError(w, http.StatusInternalServerError, ErrCodeDataError, "data error")
	case errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "request timed out")
	case errors.Is(err, context.Canceled):
		// Client went away; nobody is left to read a response.
		h.logger.DebugContext(r.Context(), "request cancelled")
	default:
		h.logger.ErrorContext(r.Context(), "unexpected error", slog.String("error", err.Error()))
		WriteInternalErrorWithRequestID(w, "internal server error", GetRequestID(r.Context()))
	}
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		WriteBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
