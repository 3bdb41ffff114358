package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/mymmrac/telego"

	"github.com/qzbx-cloud/avision/internal/config"
	"github.com/qzbx-cloud/avision/internal/pipeline"
)

// defaultMediaMaxBytes is the Bot API download limit.
const defaultMediaMaxBytes int64 = 20 * 1024 * 1024

// FileResolver turns a Telegram file_id into downloaded bytes. It does not
// retry: a transient failure fails the whole bucket upstream, which is
// cheaper than describing half an album.
type FileResolver struct {
	bot      *telego.Bot
	token    string
	client   *http.Client
	maxBytes int64
}

func NewFileResolver(bot *telego.Bot, cfg config.TelegramConfig) *FileResolver {
	maxBytes := cfg.MediaMaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMediaMaxBytes
	}
	return &FileResolver{
		bot:      bot,
		token:    cfg.Token,
		client:   &http.Client{Timeout: 60 * time.Second},
		maxBytes: maxBytes,
	}
}

// Resolve looks up the file path for ref and downloads the bytes. Photos are
// re-encoded to clean JPEG before they reach the describer.
func (r *FileResolver) Resolve(ctx context.Context, ref string, kind pipeline.Kind) (pipeline.ResolvedMedia, error) {
	file, err := r.bot.GetFile(ctx, &telego.GetFileParams{FileID: ref})
	if err != nil {
		return pipeline.ResolvedMedia{}, fmt.Errorf("get file info: %w", err)
	}
	if file.FilePath == "" {
		return pipeline.ResolvedMedia{}, fmt.Errorf("empty file path for file_id %s", ref)
	}
	if int64(file.FileSize) > r.maxBytes {
		return pipeline.ResolvedMedia{}, fmt.Errorf("file too large: %d bytes (max %d)", file.FileSize, r.maxBytes)
	}

	downloadURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", r.token, file.FilePath)
	data, err := fetchFile(ctx, r.client, downloadURL, r.maxBytes)
	if err != nil {
		return pipeline.ResolvedMedia{}, err
	}

	if kind == pipeline.KindPhoto {
		if normalized, nErr := normalizePhoto(data); nErr != nil {
			slog.Warn("photo normalization failed, using original bytes", "error", nErr)
		} else {
			data = normalized
		}
	}

	return pipeline.ResolvedMedia{Data: data, MIME: kind.MIMEType(), Kind: kind}, nil
}

// fetchFile downloads url into memory with a hard size cap.
func fetchFile(ctx context.Context, client *http.Client, url string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file exceeds max size during download: %d bytes", len(data))
	}
	return data, nil
}

// normalizePhoto decodes the image (correcting EXIF orientation) and
// re-encodes it as baseline JPEG. Vision models choke on some of the exotic
// encodings Telegram passes through unchanged.
func normalizePhoto(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
