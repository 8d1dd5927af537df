package handler

import (
	"cadastro/db"
	"cadastro/photo"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

const (
	ExportFileName = "people-export.json"

	// DefaultMaxBodyBytes bounds JSON bodies and imports. Photos travel
	// base64 encoded inside them, so it sits well above photo.DefaultMaxBytes.
	DefaultMaxBodyBytes = 64 << 20
)

var errBadBody = errors.New("invalid json body")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler struct {
	Store        *db.Store
	Photos       *photo.Reader
	MaxBodyBytes int64
}

func New(store *db.Store, photos *photo.Reader) *Handler {
	if photos == nil {
		photos = &photo.Reader{}
	}
	return &Handler{Store: store, Photos: photos, MaxBodyBytes: DefaultMaxBodyBytes}
}

func (h *Handler) Routes() *httprouter.Router {
	router := httprouter.New()

	router.GET("/pessoas", h.GetPessoas)
	router.POST("/pessoas", h.CreatePessoa)
	router.GET("/pessoas/:id", h.GetPessoa)
	router.PUT("/pessoas/:id", h.UpdatePessoa)
	router.DELETE("/pessoas/:id", h.DeletePessoa)
	router.GET("/contagem-pessoas", h.GetPessoaCount)
	router.GET("/export", h.ExportPessoas)
	router.POST("/import", h.ImportPessoas)

	return router
}

func (h *Handler) GetPessoas(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	searchTerm := r.URL.Query().Get("t")

	pessoas := h.Store.Find(searchTerm)

	log.Debug().Str("term", searchTerm).Int("found", len(pessoas)).Msg("search pessoas")

	writeJSON(w, http.StatusOK, pessoas)
}

func (h *Handler) GetPessoa(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pessoa, found := h.Store.Get(ps.ByName("id"))
	if !found {
		writeError(w, http.StatusNotFound, db.ErrPessoaNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, pessoa)
}

func (h *Handler) CreatePessoa(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input db.PessoaInput

	if isMultipart(r) {
		form, err := h.readForm(w, r)
		if err != nil {
			h.fail(w, err)
			return
		}
		input = db.PessoaInput{
			FirstName: form.value("firstName"),
			LastName:  form.value("lastName"),
			Cpf:       form.value("cpf"),
			Address:   form.value("address"),
			Age:       db.Quantity(form.value("age")),
			Weight:    db.Quantity(form.value("weight")),
			Photo:     form.photo,
		}
	} else if err := h.decodeBody(w, r, &input); err != nil {
		h.fail(w, err)
		return
	}

	pessoa, err := h.Store.Create(r.Context(), input)
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Location", "/pessoas/"+pessoa.Id)
	writeJSON(w, http.StatusCreated, pessoa)
}

func (h *Handler) UpdatePessoa(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if _, found := h.Store.Get(id); !found {
		writeError(w, http.StatusNotFound, db.ErrPessoaNotFound.Error())
		return
	}

	var patch db.PessoaPatch

	if isMultipart(r) {
		form, err := h.readForm(w, r)
		if err != nil {
			h.fail(w, err)
			return
		}
		patch = db.PessoaPatch{
			FirstName: form.field("firstName"),
			LastName:  form.field("lastName"),
			Cpf:       form.field("cpf"),
			Address:   form.field("address"),
			Age:       form.quantity("age"),
			Weight:    form.quantity("weight"),
		}
		if form.photo != "" {
			patch.Photo = &form.photo
		}
	} else if err := h.decodeBody(w, r, &patch); err != nil {
		h.fail(w, err)
		return
	}

	pessoa, err := h.Store.Update(r.Context(), id, patch)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pessoa)
}

func (h *Handler) DeletePessoa(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	deleted, err := h.Store.Delete(r.Context(), ps.ByName("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, db.ErrPessoaNotFound.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetPessoaCount(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	_, err := w.Write([]byte(strconv.Itoa(h.Store.Count())))
	if err != nil {
		log.Error().Err(err).Msg("error writing count")
	}
}

func (h *Handler) ExportPessoas(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	data, err := db.EncodePessoasIndent(h.Store.ExportAll())
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": ExportFileName}))
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("error writing export")
	}
}

func (h *Handler) ImportPessoas(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxBodyBytes))
	if err != nil {
		h.fail(w, err)
		return
	}

	pessoas, err := db.DecodePessoas(body)
	if errors.Is(err, db.ErrNotArray) {
		writeError(w, http.StatusBadRequest, "invalid json file")
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("rejected import")
		writeError(w, http.StatusBadRequest, "error reading json")
		return
	}

	if err := h.Store.ImportAll(r.Context(), pessoas); err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"imported": len(pessoas)})
}

// fail maps store and photo errors onto status codes.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	var (
		validationErr *db.ValidationError
		tooLarge      *http.MaxBytesError
	)

	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, errBadBody):
		writeError(w, http.StatusBadRequest, errBadBody.Error())
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Msg)
	case errors.Is(err, db.ErrPessoaNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, photo.ErrNotImage), errors.Is(err, photo.ErrTooLarge), errors.Is(err, photo.ErrEmpty):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, http.ErrNotMultipart), errors.Is(err, errBadForm):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxBodyBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		log.Debug().Err(err).Msg("rejected request body")
		return errBadBody
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("error encoding response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("error writing response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
