package apiclient

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Upload describes one file sent as multipart form data.
type Upload struct {
	FieldName   string
	Filename    string
	ContentType string
	Body        io.Reader
	Fields      Query
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartBody streams the upload through a pipe so large files are never
// buffered in memory.
func multipartBody(up Upload) (io.Reader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeMultipart(mw, up)
		if closeErr := mw.Close(); err == nil {
			err = closeErr
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, mw.FormDataContentType()
}

func writeMultipart(mw *multipart.Writer, up Upload) error {
	for _, f := range up.Fields {
		if err := mw.WriteField(f.Key, f.Value); err != nil {
			return fmt.Errorf("apiclient: write field %s: %w", f.Key, err)
		}
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(up.FieldName), quoteEscaper.Replace(up.Filename)))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("apiclient: create file part: %w", err)
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return fmt.Errorf("apiclient: copy file part: %w", err)
	}
	return nil
}
