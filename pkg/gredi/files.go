package gredi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// UploadImage uploads file content as a new asset in the configured upload
// folder and returns the new remote id. The body is a multipart form with a
// "json" metadata part and a base64-encoded "file" part, the exact field
// names the remote API expects.
func (c *Client) UploadImage(ctx context.Context, name string, content []byte) (string, error) {
	if c.cfg.UploadFolderID == "" {
		return "", fmt.Errorf("no upload folder configured")
	}

	meta, err := json.Marshal(map[string]any{
		"name":           name,
		"fileType":       "nt:file",
		"propertiesById": map[string]any{},
	})
	if err != nil {
		return "", fmt.Errorf("marshal upload metadata: %w", err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	jsonHeader := textproto.MIMEHeader{}
	jsonHeader.Set("Content-Disposition", `form-data; name="json"`)
	jsonHeader.Set("Content-Type", "application/json")
	jsonPart, err := form.CreatePart(jsonHeader)
	if err != nil {
		return "", fmt.Errorf("create json part: %w", err)
	}
	if _, err := jsonPart.Write(meta); err != nil {
		return "", fmt.Errorf("write json part: %w", err)
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	fileHeader.Set("Content-Type", uploadContentType(name))
	filePart, err := form.CreatePart(fileHeader)
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := filePart.Write([]byte(base64.StdEncoding.EncodeToString(content))); err != nil {
		return "", fmt.Errorf("write file part: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	path := "folders/" + url.PathEscape(c.cfg.UploadFolderID) + "/files/"
	data, err := c.gateway.Post(ctx, path, buf.Bytes(), form.FormDataContentType())
	if err != nil {
		return "", err
	}

	id := parseUploadID(data)
	if id == "" {
		return "", fmt.Errorf("upload response has no asset id")
	}
	slog.Info("uploaded asset", "name", name, "asset_id", id)
	return id, nil
}

// uploadContentType derives the file part's media type from the filename,
// falling back to image/jpeg for unknown extensions.
func uploadContentType(name string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(name)); contentType != "" {
		return contentType
	}
	return "image/jpeg"
}

// parseUploadID reads the new asset id out of the upload response, which is
// either an {"id": ...} document or a bare id.
func parseUploadID(data []byte) string {
	var payload struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if id := stringify(payload.ID); id != "" {
			return id
		}
	}
	return strings.Trim(strings.TrimSpace(string(data)), `"`)
}

// apiVersionPrefix matches the version prefix the remote embeds in download
// links; the gateway base URL already carries it.
var apiVersionPrefix = regexp.MustCompile(`^api/v\d+/`)

// FileContent downloads the binary content behind downloadURL. A zero-byte
// body is a soft failure returned as ErrEmptyContent so the caller can keep
// a previously materialized file. The second return is the filename from
// Content-Disposition when the remote sends one.
func (c *Client) FileContent(ctx context.Context, assetID, downloadURL string) ([]byte, string, error) {
	if downloadURL == "" {
		return nil, "", fmt.Errorf("asset %s has no download link", assetID)
	}

	path := apiVersionPrefix.ReplaceAllString(strings.TrimLeft(downloadURL, "/"), "")
	data, header, err := c.gateway.Download(ctx, path)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		slog.Warn("empty file content", "asset_id", assetID, "url", downloadURL)
		return nil, "", ErrEmptyContent
	}

	filename := ""
	if cd := header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			filename = params["filename"]
		}
	}
	return data, filename, nil
}
