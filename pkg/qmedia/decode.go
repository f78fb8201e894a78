package qmedia

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/quatton/qgen/pkg/qlog"
)

const maxDownloadBytes = 64 << 20

// Image is one decoded output artifact. Data holds the bytes as received so
// they can be stored without re-encoding.
type Image struct {
	Source      string
	ContentType string
	Data        []byte
	Img         image.Image
}

// Ext is the file extension matching ContentType.
func (i Image) Ext() string {
	switch i.ContentType {
	case "image/jpeg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// Parser turns prediction outputs into images and text fragments.
type Parser struct {
	http *http.Client
	log  *qlog.Logger
}

type ParserOption func(*Parser)

func WithHTTPClient(c *http.Client) ParserOption {
	return func(p *Parser) { p.http = c }
}

func WithLogger(l *qlog.Logger) ParserOption {
	return func(p *Parser) { p.log = qlog.OrNop(l).Component("qmedia") }
}

func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		http: &http.Client{Timeout: 30 * time.Second},
		log:  qlog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseOutputs parses output with a default Parser.
func ParseOutputs(ctx context.Context, output any) ([]Image, []string) {
	return NewParser().Parse(ctx, output)
}

// Parse walks output (a single value or a list). Strings that load as an
// image (URL, data URI, raw base64) become images, other strings become text,
// and any other non-nil value is kept as its JSON text.
func (p *Parser) Parse(ctx context.Context, output any) ([]Image, []string) {
	entries, ok := output.([]any)
	if !ok {
		entries = []any{output}
	}

	var images []Image
	var texts []string
	for _, entry := range entries {
		switch v := entry.(type) {
		case nil:
		case string:
			img, err := p.load(ctx, v)
			if err != nil {
				p.log.Debug("output entry is not an image", "error", err)
				texts = append(texts, v)
				continue
			}
			images = append(images, img)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				texts = append(texts, fmt.Sprint(v))
				continue
			}
			texts = append(texts, string(b))
		}
	}
	return images, texts
}

func (p *Parser) load(ctx context.Context, s string) (Image, error) {
	var data []byte
	switch {
	case IsURL(s):
		b, err := p.fetch(ctx, s)
		if err != nil {
			p.log.Warn("failed to load image source", "url", s, "error", err)
			return Image{}, err
		}
		data = b
	case strings.HasPrefix(s, "data:image"):
		header, payload, _ := strings.Cut(s, ",")
		if !strings.Contains(header, ";base64") {
			return Image{}, fmt.Errorf("data URI is not base64")
		}
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return Image{}, err
		}
		data = b
	default:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Image{}, err
		}
		data = b
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, err
	}
	return Image{Source: source(s), ContentType: "image/" + format, Data: data, Img: img}, nil
}

func (p *Parser) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download failed: %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
}

// source keeps URLs and drops inline payloads.
func source(s string) string {
	if IsURL(s) {
		return s
	}
	if strings.HasPrefix(s, "data:") {
		return "data-uri"
	}
	return "base64"
}
