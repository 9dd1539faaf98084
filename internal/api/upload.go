package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// Progress reports how many bytes of a file part have been sent.
type Progress struct {
	Sent  int64
	Total int64
}

// Fraction returns Sent/Total clamped to [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	f := float64(p.Sent) / float64(p.Total)
	if f > 1 {
		return 1
	}
	return f
}

// ProgressFunc receives upload progress. It is called from the request
// goroutine and must not block.
type ProgressFunc func(Progress)

// UploadRequest describes an audio file to process into a conversation.
type UploadRequest struct {
	Path                string
	DisplayName         string
	MatchThreshold      float64
	AutoUpdateThreshold float64
}

// Default thresholds match the backend's form defaults.
const (
	DefaultMatchThreshold      = 0.40
	DefaultAutoUpdateThreshold = 0.50
)

type formField struct {
	name, value string
}

type filePart struct {
	field string
	path  string
}

// UploadConversation sends an audio file for transcription and speaker
// identification. The call returns once the backend finishes processing.
func (c *Client) UploadConversation(ctx context.Context, req UploadRequest, progress ProgressFunc) (UploadResult, error) {
	fields := []formField{
		{"match_threshold", strconv.FormatFloat(req.MatchThreshold, 'f', 2, 64)},
		{"auto_update_threshold", strconv.FormatFloat(req.AutoUpdateThreshold, 'f', 2, 64)},
	}
	if req.DisplayName != "" {
		fields = append(fields, formField{"display_name", req.DisplayName})
	}

	var res UploadResult
	endpoint := c.endpoint("api", "conversations", "upload")
	err := c.sendMultipart(ctx, http.MethodPost, endpoint, fields, filePart{field: "file", path: req.Path}, progress, "Upload failed", &res)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload conversation: %w", err)
	}
	return res, nil
}

// sendMultipart streams a multipart body through a pipe so large audio files
// are never held in memory.
func (c *Client) sendMultipart(ctx context.Context, method, endpoint string, fields []formField, file filePart, progress ProgressFunc, fallback string, out any) error {
	f, err := os.Open(file.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", file.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat %s: %w", file.path, err)
	}
	if info.IsDir() {
		f.Close()
		return fmt.Errorf("open %s: is a directory", file.path)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer f.Close()
		src := &progressReader{r: f, total: info.Size(), fn: progress}
		pw.CloseWithError(writeMultipart(mw, fields, file.field, filepath.Base(file.path), src))
	}()

	err = c.do(ctx, method, endpoint, pr, mw.FormDataContentType(), fallback, out)
	pr.Close()
	return err
}

func writeMultipart(mw *multipart.Writer, fields []formField, fileField, fileName string, src io.Reader) error {
	for _, fld := range fields {
		if err := mw.WriteField(fld.name, fld.value); err != nil {
			return fmt.Errorf("write field %s: %w", fld.name, err)
		}
	}
	part, err := mw.CreateFormFile(fileField, fileName)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	return mw.Close()
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(Progress{Sent: p.sent, Total: p.total})
		}
	}
	return n, err
}
