package adapter

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/util"

	"github.com/MKhiriev/go-note-sync/internal/config"
	"github.com/MKhiriev/go-note-sync/internal/logger"
	"github.com/MKhiriev/go-note-sync/internal/utils"
	"github.com/MKhiriev/go-note-sync/models"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>` +
	`<d:propfind xmlns:d="DAV:"><d:prop><d:getlastmodified/><d:resourcetype/></d:prop></d:propfind>`

type webdavDriver struct {
	client *utils.HTTPClient

	baseURL  string
	basePath string

	logger *logger.Logger
}

// NewWebDAVDriver constructs a WebDAV implementation of [Driver].
// The target root is cfg.URL joined with cfg.Path. Credentials, when set,
// are sent with basic auth on every request.
//
// Returns an error if the URL is empty or cannot be parsed.
func NewWebDAVDriver(cfg config.ClientTarget, logger *logger.Logger) (Driver, error) {
	baseURL, err := normalizeBaseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid webdav url: %w", err)
	}
	if root := cleanPath(cfg.Path); root != "" {
		baseURL += "/" + escapePath(root)
	}

	u, _ := url.Parse(baseURL)

	client := utils.NewHTTPClient(utils.HTTPClientOptions{
		BaseURL:  baseURL,
		Timeout:  cfg.RequestTimeout,
		Username: cfg.Username,
		Password: cfg.Password,
	})

	return &webdavDriver{
		client:   client,
		baseURL:  baseURL,
		basePath: strings.TrimRight(u.Path, "/"),
		logger:   logger,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// Stat implements [Driver] with a depth 0 PROPFIND.
func (w *webdavDriver) Stat(ctx context.Context, p string) (*models.ItemStat, error) {
	p = cleanPath(p)

	stats, err := w.propfind(ctx, p, "0")
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	for _, s := range stats {
		if s.Path == p {
			return &s, nil
		}
	}
	return nil, nil
}

// List implements [Driver] with a depth 1 PROPFIND. The collection itself is
// left out of the result.
func (w *webdavDriver) List(ctx context.Context, p string) (models.ListResult, error) {
	p = cleanPath(p)

	stats, err := w.propfind(ctx, p, "1")
	if err != nil {
		if isNotFound(err) {
			return models.ListResult{}, nil
		}
		return models.ListResult{}, err
	}

	result := models.ListResult{Items: make([]models.ItemStat, 0, len(stats))}
	for _, s := range stats {
		if s.Path == p {
			continue
		}
		result.Items = append(result.Items, s)
	}

	sort.Slice(result.Items, func(i, j int) bool { return result.Items[i].Path < result.Items[j].Path })
	return result, nil
}

// Get implements [Driver].
func (w *webdavDriver) Get(ctx context.Context, p string, opts GetOptions) ([]byte, error) {
	p = cleanPath(p)

	resp, err := w.client.R().
		SetContext(ctx).
		Get(w.url(p))
	if err != nil {
		return nil, mapTransportError("get "+p, err)
	}
	if err = mapHTTPError(resp); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", p, err)
	}

	if opts.Target == TargetFile {
		if err := util.WriteFile(localFS(opts.LocalFS), opts.LocalPath, resp.Body(), 0o600); err != nil {
			return nil, fmt.Errorf("get %s to %s: %w", p, opts.LocalPath, err)
		}
		return []byte{}, nil
	}

	return resp.Body(), nil
}

// Put implements [Driver]. When the server answers 409 Conflict because a
// parent collection is missing, the parents are created and the upload is
// retried once.
func (w *webdavDriver) Put(ctx context.Context, p string, content []byte, opts PutOptions) error {
	p = cleanPath(p)
	if p == "" {
		return fmt.Errorf("put: %w", ErrInvalidPath)
	}

	if opts.Source == SourceFile {
		data, err := util.ReadFile(localFS(opts.LocalFS), opts.LocalPath)
		if err != nil {
			return fmt.Errorf("put %s from %s: %w", p, opts.LocalPath, err)
		}
		content = data
	}

	status, err := w.put(ctx, p, content)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		if err := w.Mkdir(ctx, path.Dir(p)); err != nil {
			return err
		}
		if status, err = w.put(ctx, p, content); err != nil {
			return err
		}
	}
	if status == http.StatusConflict {
		return fmt.Errorf("put %s: parent collection missing", p)
	}

	return nil
}

func (w *webdavDriver) put(ctx context.Context, p string, content []byte) (int, error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(content).
		Put(w.url(p))
	if err != nil {
		return 0, mapTransportError("put "+p, err)
	}
	if resp.StatusCode() == http.StatusConflict {
		return http.StatusConflict, nil
	}
	if err = mapHTTPError(resp); err != nil {
		return resp.StatusCode(), fmt.Errorf("put %s: %w", p, err)
	}

	return resp.StatusCode(), nil
}

// Delete implements [Driver]. 404 is success.
func (w *webdavDriver) Delete(ctx context.Context, p string) error {
	p = cleanPath(p)
	if p == "" {
		return fmt.Errorf("delete: %w", ErrInvalidPath)
	}

	resp, err := w.client.R().
		SetContext(ctx).
		Delete(w.url(p))
	if err != nil {
		return mapTransportError("delete "+p, err)
	}
	if err = mapHTTPError(resp); err != nil && !isNotFound(err) {
		return fmt.Errorf("delete %s: %w", p, err)
	}

	return nil
}

// Mkdir implements [Driver] with MKCOL, creating missing parents first.
// 405 Method Not Allowed means the collection already exists.
func (w *webdavDriver) Mkdir(ctx context.Context, p string) error {
	p = cleanPath(p)
	if p == "" && w.basePath == "" {
		return nil
	}

	status, err := w.mkcol(ctx, p)
	if err != nil {
		return err
	}
	if status == http.StatusConflict && p != "" {
		if err := w.Mkdir(ctx, path.Dir(p)); err != nil {
			return err
		}
		if status, err = w.mkcol(ctx, p); err != nil {
			return err
		}
	}
	if status == http.StatusConflict {
		return fmt.Errorf("mkcol %s: parent collection missing", p)
	}

	return nil
}

func (w *webdavDriver) mkcol(ctx context.Context, p string) (int, error) {
	target := w.url(p)
	if p != "" {
		target += "/"
	}

	resp, err := w.client.R().
		SetContext(ctx).
		Execute("MKCOL", target)
	if err != nil {
		return 0, mapTransportError("mkcol "+p, err)
	}

	switch resp.StatusCode() {
	case http.StatusMethodNotAllowed, http.StatusConflict:
		return resp.StatusCode(), nil
	}
	if err = mapHTTPError(resp); err != nil {
		return resp.StatusCode(), fmt.Errorf("mkcol %s: %w", p, err)
	}
	return resp.StatusCode(), nil
}

// Move implements [Driver], overwriting the destination.
func (w *webdavDriver) Move(ctx context.Context, oldPath, newPath string) error {
	oldPath, newPath = cleanPath(oldPath), cleanPath(newPath)

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Destination", w.baseURL+w.url(newPath)).
		SetHeader("Overwrite", "T").
		Execute("MOVE", w.url(oldPath))
	if err != nil {
		return mapTransportError("move "+oldPath, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return fmt.Errorf("move %s to %s: %w", oldPath, newPath, err)
	}

	return nil
}

// ClearRoot implements [Driver] by deleting every child of p.
func (w *webdavDriver) ClearRoot(ctx context.Context, p string) error {
	list, err := w.List(ctx, p)
	if err != nil {
		return err
	}

	for _, s := range list.Items {
		if err := w.Delete(ctx, s.Path); err != nil {
			return err
		}
	}
	return nil
}

func (w *webdavDriver) propfind(ctx context.Context, p, depth string) ([]models.ItemStat, error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Depth", depth).
		SetHeader("Content-Type", "application/xml; charset=utf-8").
		SetBody(propfindBody).
		Execute("PROPFIND", w.url(p))
	if err != nil {
		return nil, mapTransportError("propfind "+p, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, fmt.Errorf("propfind %s: %w", p, err)
	}

	var ms multistatus
	if err := xml.Unmarshal(resp.Body(), &ms); err != nil {
		return nil, fmt.Errorf("propfind %s: decode multistatus: %w", p, err)
	}

	stats := make([]models.ItemStat, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		rel, ok := w.relativePath(r.Href)
		if !ok {
			w.logger.Debug().Str("func", "webdavDriver.propfind").Str("href", r.Href).Msg("href outside target root, skipped")
			continue
		}

		stat := models.ItemStat{Path: rel}
		for _, ps := range r.Propstats {
			if !strings.Contains(ps.Status, " 200 ") {
				continue
			}
			stat.IsDir = stat.IsDir || ps.Prop.ResourceType.Collection != nil
			if ps.Prop.LastModified != "" {
				if t, err := http.ParseTime(ps.Prop.LastModified); err == nil {
					stat.UpdatedTime = t.UnixMilli()
				}
			}
		}
		stats = append(stats, stat)
	}

	return stats, nil
}

// relativePath turns a multistatus href (absolute URL or absolute path) into
// a path relative to the target root.
func (w *webdavDriver) relativePath(href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	p := u.Path
	if p != w.basePath && !strings.HasPrefix(p, w.basePath+"/") {
		return "", false
	}

	return cleanPath(strings.TrimPrefix(p, w.basePath)), true
}

func (w *webdavDriver) url(p string) string {
	return "/" + escapePath(p)
}

func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

type multistatus struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []davResponse `xml:"DAV: response"`
}

type davResponse struct {
	Href      string        `xml:"DAV: href"`
	Propstats []davPropstat `xml:"DAV: propstat"`
}

type davPropstat struct {
	Prop   davProp `xml:"DAV: prop"`
	Status string  `xml:"DAV: status"`
}

type davProp struct {
	LastModified string `xml:"DAV: getlastmodified"`
	ResourceType struct {
		Collection *struct{} `xml:"DAV: collection"`
	} `xml:"DAV: resourcetype"`
}
