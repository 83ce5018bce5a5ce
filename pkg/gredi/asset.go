package gredi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Asset is a single remote file with its metadata, mapped from the DAM's
// JSON representation. Values are fixed at parse time; Asset is treated as
// immutable afterwards.
type Asset struct {
	ID         string
	ExternalID string
	ParentID   string
	Name       string

	// Created and Modified are only populated from "original" attachments
	// or the alternate object sub-record.
	Created  time.Time
	Modified time.Time

	MimeType   string
	Width      string
	Height     string
	Resolution string
	Size       string

	// Keywords and AltText are keyed by language code. Unset when the
	// payload arrived in the alternate "object" shape.
	Keywords map[string]string
	AltText  map[string]string

	ContentLink string
	PreviewLink string

	// MetaByID holds the raw custom metadata, keyed
	// "custom:meta-field-<fieldId>_<lang>".
	MetaByID map[string]any
}

// Custom metadata fields the mapper resolves by display name.
const (
	fieldNameKeywords = "Keywords"
	fieldNameAltText  = "Alt text"
)

// ParseAsset maps a DAM asset payload into an Asset. The payload may be raw
// JSON ([]byte, string, json.RawMessage) or an already decoded map. The
// resolver supplies the customer's custom-field schema for keyword/alt-text
// lookup; a nil resolver or a schema failure degrades to no localized
// metadata rather than failing the parse. folderID, when non-empty,
// overrides the payload's parent id.
func ParseAsset(ctx context.Context, payload any, fields MetaFieldResolver, apiURL, folderID string) (*Asset, error) {
	m, err := decodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("decode asset payload: %w", err)
	}

	a := &Asset{
		ID:       stringify(m["id"]),
		Name:     stringify(m["name"]),
		ParentID: stringify(m["parentId"]),
		MetaByID: asMap(m["metaById"]),
	}
	if a.ID == "" {
		return nil, fmt.Errorf("asset payload has no id")
	}
	a.ExternalID = a.ID
	if folderID != "" {
		a.ParentID = folderID
	}

	if fields != nil && a.MetaByID != nil {
		a.Keywords = localizedMeta(ctx, fields, fieldNameKeywords, a.MetaByID)
		a.AltText = localizedMeta(ctx, fields, fieldNameAltText, a.MetaByID)
	}

	attachments, _ := m["attachments"].([]any)
	object := asMap(m["object"])

	switch {
	case len(attachments) > 0:
		// When both shapes appear, attachments win.
		if orig := originalAttachment(attachments); orig != nil {
			a.applyAttachment(orig, apiURL)
		}
	case object != nil:
		a.applyAttachment(object, apiURL)
		a.Keywords = nil
		a.AltText = nil
	}

	return a, nil
}

// applyAttachment copies the derived fields out of an "original" attachment
// or the alternate object sub-record.
func (a *Asset) applyAttachment(att map[string]any, apiURL string) {
	if t, err := parseTimestamp(stringify(att["created"])); err == nil {
		a.Created = t
	}
	if t, err := parseTimestamp(stringify(att["modified"])); err == nil {
		a.Modified = t
	}

	props := asMap(att["propertiesById"])
	a.MimeType = stringify(props["nibo:mime-type"])
	a.Width = stringify(props["nibo:image-width"])
	a.Height = stringify(props["nibo:image-height"])
	a.Resolution = stringify(props["nibo:resolution"])
	a.Size = stringify(props["nibo:size"])

	a.ContentLink = stringify(att["apiContentLink"])
	if preview := stringify(att["apiPreviewLink"]); preview != "" {
		a.PreviewLink = hostBase(apiURL) + preview
	}
}

// Metadata returns a named attribute as a string, matching the attribute
// names the host application maps onto its media fields.
func (a *Asset) Metadata(name string) string {
	switch name {
	case "id":
		return a.ID
	case "external_id":
		return a.ExternalID
	case "name":
		return a.Name
	case "width":
		return a.Width
	case "height":
		return a.Height
	case "resolution":
		return a.Resolution
	case "size":
		return a.Size
	case "mime_type":
		return a.MimeType
	case "created":
		if a.Created.IsZero() {
			return ""
		}
		return a.Created.Format(time.RFC3339)
	case "modified":
		if a.Modified.IsZero() {
			return ""
		}
		return a.Modified.Format(time.RFC3339)
	}
	return ""
}

// Keyword returns the keywords for the given language, or "".
func (a *Asset) Keyword(lang string) string {
	return a.Keywords[lang]
}

// Alt returns the alt text for the given language, or "".
func (a *Asset) Alt(lang string) string {
	return a.AltText[lang]
}

// originalAttachment selects the attachment with type "original".
func originalAttachment(attachments []any) map[string]any {
	for _, item := range attachments {
		att := asMap(item)
		if att == nil {
			continue
		}
		if stringify(att["type"]) == "original" {
			return att
		}
	}
	return nil
}

// localizedMeta reads metaById values for every language registered on the
// named custom field. Schema failures degrade to nil: a listing renders
// without keywords rather than not at all.
func localizedMeta(ctx context.Context, fields MetaFieldResolver, fieldName string, metaByID map[string]any) map[string]string {
	field, ok, err := fields.FieldByName(ctx, fieldName)
	if err != nil {
		slog.Warn("metadata field lookup failed", "field", fieldName, "error", err)
		return nil
	}
	if !ok {
		return nil
	}

	out := make(map[string]string)
	for _, lang := range field.Languages {
		key := fmt.Sprintf("custom:meta-field-%s_%s", field.ID, lang)
		if v, exists := metaByID[key]; exists {
			if s := flattenMetaValue(v); s != "" {
				out[lang] = s
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// flattenMetaValue renders a metaById value, which arrives either as a
// scalar or as a list of scalars, into a single string.
func flattenMetaValue(v any) string {
	switch val := v.(type) {
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return stringify(v)
	}
}

// timestampLayouts covers the DAM's attachment timestamp formats, fractional
// seconds and offset included.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z0700",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// decodePayload accepts raw JSON or an already decoded object.
func decodePayload(payload any) (map[string]any, error) {
	switch v := payload.(type) {
	case map[string]any:
		return v, nil
	case []byte:
		var m map[string]any
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, err
		}
		return m, nil
	case json.RawMessage:
		return decodePayload([]byte(v))
	case string:
		return decodePayload([]byte(v))
	default:
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// stringify renders the loosely typed JSON values the DAM mixes (strings and
// numbers for the same field) as strings.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// hostBase reduces the versioned API URL to scheme://host for building
// absolute preview links from the API-relative paths the DAM returns.
func hostBase(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return strings.TrimRight(apiURL, "/")
	}
	return u.Scheme + "://" + u.Host
}

// sortedKeys returns map keys in stable order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
