package gredi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Client is the high-level DAM client: session management, the request
// gateway, the metadata-field cache, and the browse/search/upload operations
// behind one explicit method set. One Client serves one logical session.
type Client struct {
	cfg     Config
	session *SessionManager
	gateway *Gateway
	fields  *MetaFieldCache
}

// NewClient builds a Client. httpClient and cache may be nil; a nil cache
// limits the metadata-field schema to the process cache.
func NewClient(cfg Config, httpClient *http.Client, cache CacheStore) *Client {
	session := NewSessionManager(cfg, httpClient)
	gateway := NewGateway(session)
	return &Client{
		cfg:     cfg,
		session: session,
		gateway: gateway,
		fields:  NewMetaFieldCache(gateway, cache),
	}
}

// Session exposes the session manager, mainly for login checks.
func (c *Client) Session() *SessionManager { return c.session }

// MetaFields exposes the metadata-field cache.
func (c *Client) MetaFields() *MetaFieldCache { return c.fields }

// Expand parameters: meta is always requested so the mappers can resolve
// custom metadata; anything outside the allowed set is dropped silently.
var (
	requiredExpands = []string{"meta"}
	allowedExpands  = map[string]bool{
		"basic":       true,
		"image":       true,
		"meta":        true,
		"attachments": true,
	}
)

func normalizeExpands(expands []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(expands)+len(requiredExpands))
	for _, e := range expands {
		if !allowedExpands[e] || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	for _, e := range requiredExpands {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// SearchOptions controls SearchAssets. Zero values are dropped from the
// request.
type SearchOptions struct {
	Search    string
	SortBy    string
	SortOrder string // "asc" or "desc"
	Limit     int
	Offset    int
}

// SearchAssets searches the customer's picture contents. Results come back
// in remote order, undeduplicated.
func (c *Client) SearchAssets(ctx context.Context, opts SearchOptions) ([]*Asset, error) {
	customerID, err := c.session.CustomerID(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("mimeGroups", "picture")
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	if opts.SortBy != "" {
		prefix := "+"
		if strings.EqualFold(opts.SortOrder, "desc") {
			prefix = "-"
		}
		query.Set("sort", prefix+opts.SortBy)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}

	data, err := c.gateway.Get(ctx, "customers/"+customerID+"/contents", query)
	if err != nil {
		return nil, err
	}

	items, err := decodeContentList(data)
	if err != nil {
		return nil, err
	}

	assets := make([]*Asset, 0, len(items))
	for _, item := range items {
		asset, err := ParseAsset(ctx, item, c.fields, c.cfg.APIURL, "")
		if err != nil {
			slog.Warn("skipping unparseable search result", "error", err)
			continue
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// Content is a folder listing partitioned into assets and sub-folders.
type Content struct {
	Assets  []*Asset
	Folders []*Category
}

// CustomerContent lists the children of the customer root.
func (c *Client) CustomerContent(ctx context.Context, params url.Values) (*Content, error) {
	customerID, err := c.session.CustomerID(ctx)
	if err != nil {
		return nil, err
	}
	return c.listContent(ctx, "customers/"+customerID+"/contents", params, "")
}

// FolderContent lists the children of a folder.
func (c *Client) FolderContent(ctx context.Context, folderID string, params url.Values) (*Content, error) {
	return c.listContent(ctx, "folders/"+url.PathEscape(folderID)+"/files/", params, folderID)
}

func (c *Client) listContent(ctx context.Context, path string, params url.Values, folderID string) (*Content, error) {
	data, err := c.gateway.Get(ctx, path, dropEmpty(params))
	if err != nil {
		return nil, err
	}

	items, err := decodeContentList(data)
	if err != nil {
		return nil, err
	}

	content := &Content{}
	for _, item := range items {
		if isFolder(item) {
			folder, err := ParseCategory(item)
			if err != nil {
				slog.Warn("skipping unparseable folder", "error", err)
				continue
			}
			content.Folders = append(content.Folders, folder)
			continue
		}
		asset, err := ParseAsset(ctx, item, c.fields, c.cfg.APIURL, folderID)
		if err != nil {
			slog.Warn("skipping unparseable asset", "error", err)
			continue
		}
		content.Assets = append(content.Assets, asset)
	}
	return content, nil
}

// FolderTree walks sub-folders depth levels down from folderID (the customer
// root when folderID is empty; depth < 0 walks the whole tree). Breadcrumb
// parts accumulate along the walk.
func (c *Client) FolderTree(ctx context.Context, folderID string, depth int) ([]*Category, error) {
	return c.walkFolders(ctx, folderID, depth, nil)
}

func (c *Client) walkFolders(ctx context.Context, folderID string, depth int, parts []string) ([]*Category, error) {
	var content *Content
	var err error
	if folderID == "" {
		content, err = c.CustomerContent(ctx, nil)
	} else {
		content, err = c.FolderContent(ctx, folderID, nil)
	}
	if err != nil {
		return nil, err
	}

	for _, folder := range content.Folders {
		folder.Parts = append(append([]string{}, parts...), folder.Name)
		if depth != 0 {
			sub, err := c.walkFolders(ctx, folder.ID, depth-1, folder.Parts)
			if err != nil {
				return nil, err
			}
			folder.Folders = sub
		}
	}
	return content.Folders, nil
}

// GetAsset fetches a single asset. The include parameter is the union of the
// caller's expands and the mapper's required ones, limited to the allowed
// set.
func (c *Client) GetAsset(ctx context.Context, id string, expands []string, folderID string) (*Asset, error) {
	query := url.Values{}
	query.Set("include", strings.Join(normalizeExpands(expands), ","))

	data, err := c.gateway.Get(ctx, "files/"+url.PathEscape(id), query)
	if err != nil {
		return nil, err
	}
	return ParseAsset(ctx, data, c.fields, c.cfg.APIURL, folderID)
}

// GetMultipleAssets fetches assets one by one. Empty ids are skipped;
// individual fetch failures are logged and skipped so one broken asset does
// not take down a listing. Sequential on purpose: this serves admin-facing,
// low-QPS use.
func (c *Client) GetMultipleAssets(ctx context.Context, ids []string, expands []string) ([]*Asset, error) {
	assets := make([]*Asset, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		asset, err := c.GetAsset(ctx, id, expands, "")
		if err != nil {
			slog.Warn("skipping asset fetch failure", "asset_id", id, "error", err)
			continue
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// isFolder checks the listing discriminator.
func isFolder(item map[string]any) bool {
	if stringify(item["fileType"]) == "folder" {
		return true
	}
	folder, _ := item["folder"].(bool)
	return folder
}

// decodeContentList accepts either a bare JSON array or a wrapper object
// with a "content" array; the remote uses both.
func decodeContentList(data []byte) ([]map[string]any, error) {
	var items []map[string]any
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var wrapper struct {
		Content []map[string]any `json:"content"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse content listing: %w", err)
	}
	return wrapper.Content, nil
}

// dropEmpty removes parameters with empty values before a call.
func dropEmpty(params url.Values) url.Values {
	if params == nil {
		return nil
	}
	out := url.Values{}
	for key, values := range params {
		for _, v := range values {
			if v != "" {
				out.Add(key, v)
			}
		}
	}
	return out
}
