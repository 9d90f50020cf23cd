// Package netx uploads files to presigned object storage URLs.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultUploadTimeout bounds a single cover upload.
const DefaultUploadTimeout = 2 * time.Minute

// maxErrorBody limits how much of a failed response is kept in the error.
const maxErrorBody = 4 << 10

// PutPresigned uploads data to a presigned PUT url. The content type is
// sniffed from the first bytes.
func PutPresigned(ctx context.Context, client *http.Client, url string, data []byte) error {
	if client == nil {
		client = &http.Client{Timeout: DefaultUploadTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", http.DetectContentType(data))
	req.ContentLength = int64(len(data))

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

// UploadFile reads path and uploads it with PutPresigned.
func UploadFile(ctx context.Context, client *http.Client, url, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return PutPresigned(ctx, client, url, data)
}
