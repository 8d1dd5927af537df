package handler

import (
	"bytes"
	"cadastro/db"
	"cadastro/photo"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (*Handler, *db.Store) {
	t.Helper()
	store := db.NewStore(db.NewMemorySlot())
	_, err := store.Load(context.Background())
	require.NoError(t, err)
	return New(store, &photo.Reader{}), store
}

func call(h *Handler, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	recorder := httptest.NewRecorder()
	h.Routes().ServeHTTP(recorder, req)
	return recorder
}

func decodePessoas(t *testing.T, recorder *httptest.ResponseRecorder) []db.Pessoa {
	t.Helper()
	var pessoas []db.Pessoa
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &pessoas))
	return pessoas
}

func multipartBody(t *testing.T, fields map[string]string, photoData []byte) ([]byte, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if photoData != nil {
		part, err := writer.CreateFormFile("photo", "avatar.png")
		require.NoError(t, err)
		_, err = part.Write(photoData)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body.Bytes(), writer.FormDataContentType()
}

func TestGetPessoas_whenTermEmpty_shouldReturnAll(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := call(h, "GET", "/pessoas", "", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	pessoas := decodePessoas(t, recorder)
	require.Len(t, pessoas, 2)
	assert.Equal(t, "João", pessoas[0].FirstName)
	assert.Equal(t, "Maria", pessoas[1].FirstName)
}

func TestGetPessoas_whenTermSet_shouldFilter(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := call(h, "GET", "/pessoas?t=987", "", nil)

	pessoas := decodePessoas(t, recorder)
	require.Len(t, pessoas, 1)
	assert.Equal(t, "Maria", pessoas[0].FirstName)
}

func TestGetPessoa_whenUnknown_shouldReturn404(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := call(h, "GET", "/pessoas/nonexistent", "", nil)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestCreatePessoa_whenValidJson_shouldCreate(t *testing.T) {
	h, store := newTestHandler(t)

	recorder := call(h, "POST", "/pessoas", "application/json",
		[]byte(`{"firstName":"Ana","lastName":"Souza","cpf":"555","age":"30"}`))

	require.Equal(t, http.StatusCreated, recorder.Code)
	var pessoa db.Pessoa
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &pessoa))
	assert.Equal(t, "/pessoas/"+pessoa.Id, recorder.Header().Get("Location"))
	assert.Equal(t, 3, store.Count())

	recorder = call(h, "GET", "/pessoas/"+pessoa.Id, "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestCreatePessoa_whenNameMissing_shouldFail(t *testing.T) {
	h, store := newTestHandler(t)

	recorder := call(h, "POST", "/pessoas", "application/json", []byte(`{"firstName":"","lastName":"X"}`))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, 2, store.Count())
}

func TestCreatePessoa_whenBodyInvalid_shouldFail(t *testing.T) {
	h, store := newTestHandler(t)

	recorder := call(h, "POST", "/pessoas", "application/json", []byte(`{"firstName":`))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, 2, store.Count())
}

func TestCreatePessoa_whenMultipartWithPhoto_shouldEmbedPhoto(t *testing.T) {
	h, store := newTestHandler(t)

	img := new(bytes.Buffer)
	require.NoError(t, png.Encode(img, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	body, contentType := multipartBody(t, map[string]string{"firstName": "Ana", "lastName": "Souza"}, img.Bytes())

	recorder := call(h, "POST", "/pessoas", contentType, body)

	require.Equal(t, http.StatusCreated, recorder.Code)
	pessoas := store.ExportAll()
	require.Len(t, pessoas, 3)
	assert.True(t, strings.HasPrefix(pessoas[2].Photo, "data:image/png;base64,"))
}

func TestCreatePessoa_whenPhotoNotImage_shouldNotPersist(t *testing.T) {
	h, store := newTestHandler(t)

	body, contentType := multipartBody(t, map[string]string{"firstName": "Ana", "lastName": "Souza"}, []byte("plain text"))

	recorder := call(h, "POST", "/pessoas", contentType, body)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, 2, store.Count())
}

func TestUpdatePessoa_shouldMergeFields(t *testing.T) {
	h, store := newTestHandler(t)
	original := store.ExportAll()[0]

	recorder := call(h, "PUT", "/pessoas/"+original.Id, "application/json", []byte(`{"address":"New Addr"}`))

	require.Equal(t, http.StatusOK, recorder.Code)
	updated, _ := store.Get(original.Id)
	expected := original
	expected.Address = "New Addr"
	assert.Equal(t, expected, updated)
}

func TestUpdatePessoa_whenMultipart_shouldOnlyTouchSentFields(t *testing.T) {
	h, store := newTestHandler(t)
	original := store.ExportAll()[1]

	body, contentType := multipartBody(t, map[string]string{"weight": "70"}, nil)
	recorder := call(h, "PUT", "/pessoas/"+original.Id, contentType, body)

	require.Equal(t, http.StatusOK, recorder.Code)
	updated, _ := store.Get(original.Id)
	expected := original
	expected.Weight = "70"
	assert.Equal(t, expected, updated)
}

func TestUpdatePessoa_whenUnknown_shouldReturn404(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := call(h, "PUT", "/pessoas/nonexistent", "application/json", []byte(`{"address":"x"}`))

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestDeletePessoa(t *testing.T) {
	h, store := newTestHandler(t)
	id := store.ExportAll()[0].Id

	recorder := call(h, "DELETE", "/pessoas/"+id, "", nil)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, 1, store.Count())

	recorder = call(h, "DELETE", "/pessoas/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, 1, store.Count())
}

func TestGetPessoaCount(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := call(h, "GET", "/contagem-pessoas", "", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "2", recorder.Body.String())
}

func TestExportPessoas(t *testing.T) {
	h, store := newTestHandler(t)

	recorder := call(h, "GET", "/export", "", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), ExportFileName)
	assert.Equal(t, store.ExportAll(), decodePessoas(t, recorder))
}

func TestImportPessoas_whenArray_shouldReplace(t *testing.T) {
	h, store := newTestHandler(t)

	recorder := call(h, "POST", "/import", "application/json",
		[]byte(`[{"id":"z","firstName":"","lastName":"Y","cpf":"","address":"","age":40,"weight":"","photo":""}]`))

	require.Equal(t, http.StatusOK, recorder.Code)
	pessoas := store.ExportAll()
	require.Len(t, pessoas, 1)
	assert.Equal(t, db.Pessoa{Id: "z", LastName: "Y", Age: "40"}, pessoas[0])
}

func TestImportPessoas_whenNotArray_shouldLeaveStore(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"object", `{"id":"z"}`},
		{"malformed", `[{"id":`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTestHandler(t)
			before := store.ExportAll()

			recorder := call(h, "POST", "/import", "application/json", []byte(tt.body))

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, before, store.ExportAll())
		})
	}
}

func TestUpdatePessoa_whenPhotoNotImage_shouldKeepRecord(t *testing.T) {
	h, store := newTestHandler(t)
	original := store.ExportAll()[0]

	body, contentType := multipartBody(t, map[string]string{"address": "New Addr"}, []byte("plain text"))
	recorder := call(h, "PUT", "/pessoas/"+original.Id, contentType, body)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	stored, _ := store.Get(original.Id)
	assert.Equal(t, original, stored)
}

func TestCreatePessoa_whenAgeIsNumber_shouldCreate(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := call(h, "POST", "/pessoas", "application/json",
		[]byte(`{"firstName":"Ana","lastName":"Souza","age":34,"weight":60}`))

	require.Equal(t, http.StatusCreated, recorder.Code)
	var pessoa db.Pessoa
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &pessoa))
	assert.Equal(t, db.Quantity("34"), pessoa.Age)
	assert.Equal(t, db.Quantity("60"), pessoa.Weight)
}

func TestCreatePessoa_whenBodyInvalid_shouldHideParserDetails(t *testing.T) {
	h, _ := newTestHandler(t)

	recorder := call(h, "POST", "/pessoas", "application/json", []byte(`{"firstName":true}`))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.JSONEq(t, `{"error":"invalid json body"}`, recorder.Body.String())
}

func TestCreatePessoa_whenJsonPhotoNotImage_shouldFail(t *testing.T) {
	h, store := newTestHandler(t)

	recorder := call(h, "POST", "/pessoas", "application/json",
		[]byte(`{"firstName":"Ana","lastName":"Souza","photo":"https://example.com/a.png"}`))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, 2, store.Count())
}

func TestUpdatePessoa_whenJsonPhotoNotImage_shouldKeepRecord(t *testing.T) {
	h, store := newTestHandler(t)
	original := store.ExportAll()[0]

	recorder := call(h, "PUT", "/pessoas/"+original.Id, "application/json", []byte(`{"photo":"data:text/plain;base64,AAAA"}`))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	stored, _ := store.Get(original.Id)
	assert.Equal(t, original, stored)
}

func TestBodyLimit_whenExceeded_shouldReject(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"import", "POST", "/import", `[{"firstName":"` + strings.Repeat("x", 256) + `","lastName":"Y"}]`},
		{"create", "POST", "/pessoas", `{"firstName":"` + strings.Repeat("x", 256) + `","lastName":"Y"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTestHandler(t)
			h.MaxBodyBytes = 64
			before := store.ExportAll()

			recorder := call(h, tt.method, tt.target, "application/json", []byte(tt.body))

			assert.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
			assert.Equal(t, before, store.ExportAll())
		})
	}
}
