package api

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/text/unicode/norm"

	"pastebox/cfg"
	"pastebox/pkg/domain"
	"pastebox/svc/svc"
	"pastebox/svc/util"
)

//go:embed templates/*.html
var templateFS embed.FS

// parsed once at startup; a bad template is a build defect, not a
// runtime condition
var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Hdl struct {
	paste *svc.Paste
	cfg   *cfg.Cfg
}
type indexData struct {
	Recent []domain.ListEntry
	Total  int
}
type viewData struct {
	Paste *domain.Paste
}
type StatusResp struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	TotalPastes int    `json:"total_pastes"`
}

func (h *Hdl) Index(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	requestID := util.GetRequestID(r.Context())
	entries, err := h.paste.ListRecent(r.Context(), h.cfg.RecentListSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to list recent pastes")
		pageError(w, domain.ErrInternalServer, requestID)
		return
	}
	total, err := h.paste.Count(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count pastes")
		pageError(w, domain.ErrInternalServer, requestID)
		return
	}
	h.render(w, r, "index.html", indexData{Recent: entries, Total: total})
}
func (h *Hdl) CreatePaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	requestID := util.GetRequestID(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxPasteSize*2)
	if err := r.ParseForm(); err != nil {
		log.Warn().Err(err).Msg("invalid form body")
		pageError(w, domain.ErrInvalidRequest, requestID)
		return
	}
	params := domain.CreateParams{
		Content:  r.PostFormValue("content"),
		Title:    sanitizeTitle(r.PostFormValue("title")),
		Language: r.PostFormValue("language"),
	}
	paste, err := h.paste.Create(r.Context(), params)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrContentRequired),
			errors.Is(err, domain.ErrPasteTooLarge),
			errors.Is(err, domain.ErrIDConflict):
			log.Warn().Err(err).Msg("paste rejected")
			pageError(w, err, requestID)
		default:
			log.Error().Err(err).Msg("failed to create paste")
			pageError(w, domain.ErrInternalServer, requestID)
		}
		return
	}
	log.Info().
		Str("paste_id", paste.ID).
		Int("size", len(paste.Content)).
		Str("language", paste.Language).
		Msg("paste created")
	http.Redirect(w, r, "/paste/"+paste.ID, http.StatusSeeOther)
}
func (h *Hdl) ViewPaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	requestID := util.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")
	paste, err := h.paste.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			log.Warn().Str("paste_id", id).Msg("paste not found")
			pageError(w, domain.ErrPasteNotFound, requestID)
			return
		}
		log.Error().Err(err).Str("paste_id", id).Msg("failed to get paste")
		pageError(w, domain.ErrInternalServer, requestID)
		return
	}
	log.Info().Str("paste_id", id).Msg("paste viewed")
	h.render(w, r, "view.html", viewData{Paste: paste})
}

// RawPaste serves the stored body byte for byte, exactly as submitted.
func (h *Hdl) RawPaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	requestID := util.GetRequestID(r.Context())
	id := chi.URLParam(r, "id")
	content, err := h.paste.GetContent(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrPasteNotFound) {
			log.Warn().Str("paste_id", id).Msg("paste not found")
			pageError(w, domain.ErrPasteNotFound, requestID)
			return
		}
		log.Error().Err(err).Str("paste_id", id).Msg("failed to get paste content")
		pageError(w, domain.ErrInternalServer, requestID)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, content)
}
func (h *Hdl) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "about.html", nil)
}
func (h *Hdl) Status(w http.ResponseWriter, r *http.Request) {
	total, err := h.paste.Count(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("failed to count pastes")
		writeErr(w, domain.ErrInternalServer, util.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StatusResp{
		Status:      "ok",
		Message:     "pastebox is running",
		TotalPastes: total,
	})
}
func (h *Hdl) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("template render failed")
	}
}

// pageError writes a plain-text error for the HTML routes.
func pageError(w http.ResponseWriter, err error, requestID string) {
	statusCode := domain.Status(err)
	errorMsg := domain.ToResp(err).Error.Msg
	if statusCode >= 500 {
		errorMsg = "internal server error"
		util.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("internal error with detailed info")
	}
	http.Error(w, errorMsg, statusCode)
}
func writeErr(w http.ResponseWriter, err error, requestID string) {
	statusCode := domain.Status(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errorMsg := domain.ToResp(err).Error.Msg
	if statusCode >= 500 {
		errorMsg = "internal server error"
		util.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("internal error with detailed info")
	}
	json.NewEncoder(w).Encode(map[string]string{
		"error":      errorMsg,
		"request_id": requestID,
	})
}

// sanitizeTitle normalizes a submitted title to NFC and strips control
// characters. Content is deliberately left untouched so raw serving
// stays byte-exact; templates handle HTML escaping on output.
func sanitizeTitle(s string) string {
	s = norm.NFC.String(s)
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
