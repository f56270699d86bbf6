package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/makerstokyo/api/pkg/apierror"
)

// errInflateLimit marks bodies rejected for size or expansion ratio, as
// opposed to bodies that are simply corrupt.
var errInflateLimit = errors.New("decompressed body over limit")

// DecompressConfig configures the decompression middleware.
type DecompressConfig struct {
	MaxDecompressedSize int64
	MaxCompressedSize   int64
	// MaxCompressionRatio rejects bodies that expand more than this.
	MaxCompressionRatio float64
	AllowedEncodings    []string
}

// DefaultDecompressConfig returns limits sized for form and event payloads.
func DefaultDecompressConfig() *DecompressConfig {
	return &DecompressConfig{
		MaxDecompressedSize: DefaultMaxBodySize,
		MaxCompressedSize:   DefaultMaxBodySize / 2,
		MaxCompressionRatio: 100,
		AllowedEncodings:    []string{"gzip", "zstd"},
	}
}

// Decompress inflates gzip or zstd request bodies before the handler and the
// signature guard see them, so signatures cover the decompressed bytes.
// Bodies over the size or ratio limits get 413, corrupt ones 400.
func Decompress(cfg *DecompressConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = DefaultDecompressConfig()
	}
	allowed := make(map[string]bool, len(cfg.AllowedEncodings))
	for _, enc := range cfg.AllowedEncodings {
		allowed[strings.ToLower(enc)] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
			if encoding == "" || encoding == "identity" || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			requestID := GetRequestID(r.Context())
			if !allowed[encoding] {
				apierror.UnsupportedEncoding(encoding).WriteJSONWithRequestID(w, requestID)
				return
			}

			body, err := inflate(r.Body, encoding, cfg)
			if errors.Is(err, errInflateLimit) {
				apierror.PayloadTooLarge().WriteJSONWithRequestID(w, requestID)
				return
			}
			if err != nil {
				apierror.BadRequest("Invalid compressed request body").WriteJSONWithRequestID(w, requestID)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.Header.Del("Content-Encoding")
			next.ServeHTTP(w, r)
		})
	}
}

func inflate(body io.ReadCloser, encoding string, cfg *DecompressConfig) ([]byte, error) {
	defer body.Close()

	compressed, err := io.ReadAll(io.LimitReader(body, cfg.MaxCompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("read compressed body: %w", err)
	}
	if int64(len(compressed)) > cfg.MaxCompressedSize {
		return nil, fmt.Errorf("%w: compressed size over %d bytes", errInflateLimit, cfg.MaxCompressedSize)
	}
	if len(compressed) == 0 {
		return []byte{}, nil
	}

	var src io.Reader
	switch encoding {
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gr.Close()
		src = gr
	case "zstd":
		//nolint:gosec // G115: MaxDecompressedSize is a positive byte count
		zr, err := zstd.NewReader(bytes.NewReader(compressed),
			zstd.WithDecoderMaxMemory(uint64(cfg.MaxDecompressedSize)),
			zstd.WithDecoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		src = zr
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}

	// The output cap is the smaller of the size limit and what the ratio
	// allows for this input; one extra byte detects overflow.
	limit := cfg.MaxDecompressedSize
	if byRatio := int64(float64(len(compressed)) * cfg.MaxCompressionRatio); cfg.MaxCompressionRatio > 0 && byRatio < limit {
		limit = byRatio
	}

	out, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
			return nil, fmt.Errorf("%w: %w", errInflateLimit, err)
		}
		return nil, fmt.Errorf("inflate %s: %w", encoding, err)
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", errInflateLimit, limit)
	}
	return out, nil
}
