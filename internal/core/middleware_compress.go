package core

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"wordsmith/internal/types"
)

// maxDecodedBodySize caps the decompressed size of a request body.
const maxDecodedBodySize = 4 << 20

// decoderPool provides reusable zstd decoders to avoid repeated allocations.
var decoderPool = sync.Pool{
	New: func() any {
		d, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxDecodedBodySize),
		)
		if err != nil {
			// Cannot fail with a nil reader and static options.
			panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
		}
		return d
	},
}

// DecompressMiddleware transparently decodes request bodies sent with
// Content-Encoding: zstd. Other encodings are rejected with 415.
func DecompressMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
		switch encoding {
		case "", "identity":
			next.ServeHTTP(w, r)
			return
		case "zstd":
		default:
			JSON(w, r, http.StatusUnsupportedMediaType, APIErrorResponse{
				Error: ErrorDetail{
					Code:      string(types.ErrCodeValidationInvalidParameter),
					Message:   fmt.Sprintf("unsupported content encoding %q", encoding),
					RequestID: types.GetRequestID(r.Context()),
				},
			})
			return
		}

		compressed, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
		if err != nil {
			Error(w, r, mapDecodeError(err))
			return
		}

		decoder := decoderPool.Get().(*zstd.Decoder)
		body, err := decoder.DecodeAll(compressed, nil)
		decoderPool.Put(decoder)
		if err != nil {
			Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidJSON, "request body is not valid zstd", err))
			return
		}

		r.Header.Del("Content-Encoding")
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
		next.ServeHTTP(w, r)
	})
}
