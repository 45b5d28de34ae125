package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
)

// Form is a multipart/form-data body. Use it for profile pictures,
// thumbnails and lesson attachments.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

type FormFile struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

func NewForm() *Form {
	return &Form{Fields: map[string]string{}}
}

func (f *Form) AddField(name, value string) *Form {
	if f.Fields == nil {
		f.Fields = map[string]string{}
	}
	f.Fields[name] = value
	return f
}

func (f *Form) AddFile(field, filename string, content io.Reader) *Form {
	f.Files = append(f.Files, FormFile{Field: field, Name: filename, Content: content})
	return f
}

func asForm(body any) (*Form, bool) {
	switch v := body.(type) {
	case *Form:
		return v, v != nil
	case Form:
		return &v, true
	default:
		return nil, false
	}
}

func (f *Form) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	names := make([]string, 0, len(f.Fields))
	for name := range f.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.WriteField(name, f.Fields[name]); err != nil {
			return nil, "", err
		}
	}

	for _, file := range f.Files {
		if file.Content == nil {
			return nil, "", fmt.Errorf("file %q has no content", file.Name)
		}
		part, err := w.CreatePart(filePartHeader(file))
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", fmt.Errorf("copy %q: %w", file.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func filePartHeader(file FormFile) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Name))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	return h
}
