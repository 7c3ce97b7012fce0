// Package noaa lists and downloads GOES products from the NOAA open data
// buckets on Amazon S3.
package noaa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/cavaliercoder/grab"
	"github.com/hashicorp/go-multierror"

	"github.com/rafaellwml/Fire-Data-GOES16/internal/config"
	"github.com/rafaellwml/Fire-Data-GOES16/internal/domain"
)

const downloadWorkers = 4

// RemoteFile is a product object in the bucket.
type RemoteFile struct {
	Key   string
	Size  int64
	Start time.Time
	End   time.Time
}

// Client lists bucket prefixes and downloads product files into the save
// directory, mirroring the bucket layout under <save_dir>/<bucket>/.
// It implements pipeline.Fetcher.
type Client struct {
	baseURL    string
	bucket     string
	product    string
	satellite  string
	saveDir    string
	httpClient *http.Client
	grab       *grab.Client
	logger     *slog.Logger
}

// NewClient creates a bucket client for the configured satellite and product.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	g := grab.NewClient()
	g.UserAgent = "goes-fire-etl"
	g.HTTPClient = &http.Client{Timeout: cfg.DownloadTimeout}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.NOAABaseURL, "/"),
		bucket:     cfg.Bucket,
		product:    cfg.Product,
		satellite:  cfg.Satellite,
		saveDir:    cfg.SaveDir,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		grab:       g,
		logger:     logger,
	}
}

// Fetch lists the window and returns local paths of every matching product,
// downloading the ones not yet on disk. Failed downloads are reported
// together while the remaining paths are still returned.
func (c *Client) Fetch(ctx context.Context, w domain.Window) ([]string, error) {
	files, err := c.List(ctx, w)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	var reqs []*grab.Request
	for _, f := range files {
		dst := c.LocalPath(f.Key)
		if info, err := os.Stat(dst); err == nil && info.Size() > 0 {
			paths = append(paths, dst)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, fmt.Errorf("create download directory: %w", err)
		}
		req, err := grab.NewRequest(dst, c.objectURL(f.Key))
		if err != nil {
			return nil, fmt.Errorf("build download request for %s: %w", f.Key, err)
		}
		reqs = append(reqs, req.WithContext(ctx))
	}

	var result *multierror.Error
	if len(reqs) > 0 {
		c.logger.Info("downloading product files", "count", len(reqs), "existing", len(paths))
		for resp := range c.grab.DoBatch(downloadWorkers, reqs...) {
			if err := resp.Err(); err != nil {
				result = multierror.Append(result, fmt.Errorf("download %s: %w", resp.Request.URL(), err))
				_ = os.Remove(resp.Request.Filename)
				continue
			}
			c.logger.Debug("product downloaded", "file", resp.Filename, "bytes", resp.BytesComplete())
			paths = append(paths, resp.Filename)
		}
	}

	sort.Strings(paths)
	return paths, result.ErrorOrNil()
}

// List returns product files whose scan starts and ends inside the window,
// ordered by key.
func (c *Client) List(ctx context.Context, w domain.Window) ([]RemoteFile, error) {
	var files []RemoteFile
	for hour := w.Start.UTC().Truncate(time.Hour); !hour.After(w.End); hour = hour.Add(time.Hour) {
		objects, err := c.listPrefix(ctx, c.hourPrefix(hour))
		if err != nil {
			return nil, err
		}
		for _, obj := range objects {
			if f, ok := c.match(obj, w); ok {
				files = append(files, f)
			}
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Key < files[j].Key })
	return files, nil
}

// LocalPath maps a bucket key to its location in the save directory.
func (c *Client) LocalPath(key string) string {
	return filepath.Join(c.saveDir, c.bucket, filepath.FromSlash(key))
}

func (c *Client) hourPrefix(t time.Time) string {
	return fmt.Sprintf("%s/%04d/%03d/%02d/", c.product, t.Year(), t.YearDay(), t.Hour())
}

func (c *Client) objectURL(key string) string {
	return c.baseURL + "/" + key
}

func (c *Client) match(obj RemoteFile, w domain.Window) (RemoteFile, bool) {
	name := path.Base(obj.Key)
	if !strings.HasSuffix(name, ".nc") || !strings.Contains(name, "_"+c.satellite+"_") {
		return RemoteFile{}, false
	}
	start, err := domain.ScanStart(name)
	if err != nil {
		return RemoteFile{}, false
	}
	end, err := domain.ScanEnd(name)
	if err != nil {
		return RemoteFile{}, false
	}
	if start.Before(w.Start) || end.After(w.End) {
		return RemoteFile{}, false
	}
	obj.Start, obj.End = start, end
	return obj, true
}

// listPrefix pages through ListObjectsV2 for a single prefix.
func (c *Client) listPrefix(ctx context.Context, prefix string) ([]RemoteFile, error) {
	var objects []RemoteFile
	token := ""
	for {
		page, next, err := c.listPage(ctx, prefix, token)
		if err != nil {
			return nil, err
		}
		objects = append(objects, page...)
		if next == "" {
			break
		}
		token = next
	}
	c.logger.Debug("bucket prefix listed", "prefix", prefix, "objects", len(objects))
	return objects, nil
}

func (c *Client) listPage(ctx context.Context, prefix, token string) ([]RemoteFile, string, error) {
	params := url.Values{
		"list-type": {"2"},
		"prefix":    {prefix},
	}
	if token != "" {
		params.Set("continuation-token", token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("list %s: %w", prefix, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read list response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("list %s: status %d: %s", prefix, resp.StatusCode, body)
	}

	return parseListing(body)
}

// parseListing decodes a ListBucketResult document. The continuation token
// is empty on the last page.
func parseListing(body []byte) ([]RemoteFile, string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, "", fmt.Errorf("parse list response: %w", err)
	}
	root := doc.SelectElement("ListBucketResult")
	if root == nil {
		return nil, "", errors.New("parse list response: missing ListBucketResult")
	}

	var objects []RemoteFile
	for _, el := range root.SelectElements("Contents") {
		key := el.SelectElement("Key")
		if key == nil {
			continue
		}
		obj := RemoteFile{Key: key.Text()}
		if size := el.SelectElement("Size"); size != nil {
			obj.Size, _ = strconv.ParseInt(size.Text(), 10, 64)
		}
		objects = append(objects, obj)
	}

	next := ""
	if t := root.SelectElement("IsTruncated"); t != nil && t.Text() == "true" {
		if n := root.SelectElement("NextContinuationToken"); n != nil {
			next = n.Text()
		}
	}
	return objects, next, nil
}
