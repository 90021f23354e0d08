package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
)

// FilePart is one file of a multipart upload.
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Content     io.Reader
}

// Upload posts a multipart form with a single file part and decodes the JSON reply.
func (c *Client) Upload(ctx context.Context, path string, part FilePart, out any) error {
	if part.Content == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "upload content is required")
	}
	field := part.Field
	if field == "" {
		field = "file"
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, part.FileName))
	if part.ContentType != "" {
		header.Set("Content-Type", part.ContentType)
	} else {
		header.Set("Content-Type", "application/octet-stream")
	}
	fileWriter, err := writer.CreatePart(header)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}
	if _, err := io.Copy(fileWriter, part.Content); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload content")
	}
	if err := writer.Close(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finish upload form")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path, nil), &buf)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload request")
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Accept", contentTypeJSON)
	return c.send(ctx, httpReq, path, out)
}
