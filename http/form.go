package handler

import (
	"cadastro/db"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
)

const maxFormMemory = 8 << 20

var errBadForm = errors.New("invalid form")

type formData struct {
	values url.Values
	photo  string
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readForm parses a multipart form and reads its optional photo file. A
// photo that cannot be read fails the whole request.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request) (*formData, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errBadForm, err)
	}

	form := &formData{values: r.MultipartForm.Value}

	file, _, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return form, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadForm, err)
	}
	defer file.Close()

	form.photo, err = h.Photos.Read(file)
	if err != nil {
		return nil, err
	}

	return form, nil
}

func (f *formData) value(key string) string {
	return f.values.Get(key)
}

// field returns nil when the form did not carry key at all.
func (f *formData) field(key string) *string {
	values, ok := f.values[key]
	if !ok || len(values) == 0 {
		return nil
	}
	value := values[0]
	return &value
}

func (f *formData) quantity(key string) *db.Quantity {
	value := f.field(key)
	if value == nil {
		return nil
	}
	q := db.Quantity(*value)
	return &q
}
