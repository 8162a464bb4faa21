package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
	"github.com/shelfwise/bookcat/internal/fallback"
)

// uploadField is the multipart form field the backend reads the file from.
const uploadField = "file"

var (
	epDocumentsList     = fallback.Endpoint{Name: "documents.list", Policy: fallback.ExtendedPolicy}
	epDocumentsUpload   = fallback.Endpoint{Name: "documents.upload", Policy: fallback.ExtendedPolicy, Mutating: true}
	epDocumentsDelete   = fallback.Endpoint{Name: "documents.delete", Policy: fallback.ExtendedPolicy, Mutating: true}
	epDocumentsDownload = fallback.Endpoint{Name: "documents.download", Policy: fallback.ExtendedPolicy}
)

// Documents is the /documents resource.
type Documents struct {
	d *deps
}

// List fetches every uploaded document.
func (r *Documents) List(ctx context.Context) (api.Envelope[[]domain.Document], error) {
	return call(ctx, r.d, epDocumentsList, http.MethodGet, "/documents", nil, r.d.mock.Documents)
}

// Upload sends content as a multipart upload named name. The body is
// buffered so the request has a known length.
func (r *Documents) Upload(ctx context.Context, name string, content io.Reader) (api.Envelope[domain.Document], error) {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(uploadField, name)
	if err != nil {
		return api.Envelope[domain.Document]{}, fmt.Errorf("catalog: building upload: %w", err)
	}

	size, err := io.Copy(part, content)
	if err != nil {
		return api.Envelope[domain.Document]{}, fmt.Errorf("catalog: reading %s: %w", name, err)
	}

	if err := mw.Close(); err != nil {
		return api.Envelope[domain.Document]{}, fmt.Errorf("catalog: building upload: %w", err)
	}

	body := api.RawBody{ContentType: mw.FormDataContentType(), Reader: &buf}

	return call(ctx, r.d, epDocumentsUpload, http.MethodPost, "/documents/upload", body,
		func() domain.Document { return r.d.mock.AddDocument(name, size) })
}

// Delete removes a document.
func (r *Documents) Delete(ctx context.Context, id int) (api.Envelope[domain.Message], error) {
	return call(ctx, r.d, epDocumentsDelete, http.MethodDelete, fmt.Sprintf("/documents/%d", id), nil,
		func() domain.Message { return r.d.mock.DeleteDocument(id) })
}

// Download fetches the raw file body.
func (r *Documents) Download(ctx context.Context, id int) (api.Envelope[domain.Download], error) {
	return fallback.Do(ctx, r.d.resolver, epDocumentsDownload,
		func(ctx context.Context) (api.Envelope[domain.Download], error) {
			resp, err := r.d.client.Get(ctx, fmt.Sprintf("/documents/%d/download", id),
				api.WithResponseType(api.ResponseBinary))
			if err != nil {
				return api.Envelope[domain.Download]{}, err
			}

			return api.Envelope[domain.Download]{
				Status: resp.Status,
				Data:   domain.Download{ContentType: resp.Header.Get("Content-Type"), Data: resp.Data},
			}, nil
		},
		r.d.mock.DocumentDownload,
	)
}

// Summary asks the backend to summarize a document. It never falls back.
func (r *Documents) Summary(ctx context.Context, id int) (api.Envelope[domain.DocumentSummary], error) {
	return direct[domain.DocumentSummary](ctx, r.d, http.MethodPost, fmt.Sprintf("/documents/%d/summary", id), nil)
}
