package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
)

// EndpointCorpCode serves the full corp code registry as a zipped XML file
const EndpointCorpCode = "corpCode.xml" // 고유번호

// maxCorpCodeArchive caps the download; the real archive is a few MB
const maxCorpCodeArchive = 64 << 20

// CorpCodeItem is one <list> entry of CORPCODE.xml
type CorpCodeItem struct {
	CorpCode    string `xml:"corp_code"`
	CorpName    string `xml:"corp_name"`
	CorpEngName string `xml:"corp_eng_name"`
	StockCode   string `xml:"stock_code"`
	ModifyDate  string `xml:"modify_date"`
}

// corpCodeResult is both the archive payload and the error body of the endpoint
type corpCodeResult struct {
	Status  string         `xml:"status"`
	Message string         `xml:"message"`
	List    []CorpCodeItem `xml:"list"`
}

// FetchCorpCodes downloads and unpacks the corp code registry.
// Unlike the JSON endpoints it answers with a zip archive on success and an XML status body on failure.
func (c *Client) FetchCorpCodes(ctx context.Context) ([]CorpCodeItem, error) {
	return withRetry(ctx, c, EndpointCorpCode, func() ([]CorpCodeItem, error) {
		return c.fetchCorpCodesOnce(ctx)
	})
}

func (c *Client) fetchCorpCodesOnce(ctx context.Context) ([]CorpCodeItem, error) {
	resp, err := c.http.Get(ctx, c.endpointURL(EndpointCorpCode, nil))
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCorpCodeArchive))
	if err != nil {
		return nil, fmt.Errorf("read corp code archive: %w", err)
	}

	// zip local file header
	if !bytes.HasPrefix(body, []byte("PK")) {
		var status corpCodeResult
		if err := xml.Unmarshal(body, &status); err != nil {
			return nil, fmt.Errorf("decode corp code status: %w", err)
		}
		return nil, &APIError{Endpoint: EndpointCorpCode, Status: status.Status, Message: status.Message}
	}

	return parseCorpCodeArchive(body)
}

// parseCorpCodeArchive reads CORPCODE.xml out of the downloaded archive
func parseCorpCodeArchive(archive []byte) ([]CorpCodeItem, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open corp code archive: %w", err)
	}

	for _, f := range zr.File {
		if !strings.EqualFold(path.Base(f.Name), "CORPCODE.xml") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()

		var result corpCodeResult
		if err := xml.NewDecoder(rc).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Name, err)
		}
		return result.List, nil
	}

	return nil, fmt.Errorf("CORPCODE.xml not found in archive")
}
