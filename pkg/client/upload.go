package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Upload stores the local files at paths into dir on the server.
// Without paths it only creates dir.
func (c *Client) Upload(ctx context.Context, dir string, paths ...string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s is not a regular file", path)
		}
	}

	boundary := fmt.Sprintf("mycloud-%d", time.Now().UnixNano())

	// Every attempt re-reads the files from disk.
	body := retryablehttp.ReaderFunc(func() (io.Reader, error) {
		return multipartBody(paths, boundary)
	})

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint("/api/files/upload", url.Values{"path": {dir}}), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)

	return c.doJSON(req, nil)
}

// multipartBody streams the files as parts named "file" through a pipe.
func multipartBody(paths []string, boundary string) (io.Reader, error) {
	pipeReader, pipeWriter := io.Pipe()

	go func() {
		writer := multipart.NewWriter(pipeWriter)
		if err := writer.SetBoundary(boundary); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}

		for _, path := range paths {
			if err := writePart(writer, path); err != nil {
				pipeWriter.CloseWithError(err)
				return
			}
		}

		if err := writer.Close(); err != nil {
			pipeWriter.CloseWithError(err)
			return
		}
		pipeWriter.Close()
	}()

	return pipeReader, nil
}

func writePart(writer *multipart.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}

	_, err = io.Copy(part, src)
	return err
}
