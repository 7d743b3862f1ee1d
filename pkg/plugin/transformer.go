package plugin

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"AssetForge/pkg/schema"
)

// AssetSource is a tagged reference to the input asset. Exactly one of URL,
// Base64Payload or DataURI is set by the caller; consumers must check which
// is available rather than assume a representation.
type AssetSource struct {
	URL           string `json:"url,omitempty"`
	Base64Payload string `json:"base64_payload,omitempty"`
	DataURI       string `json:"data_uri,omitempty"`
	MimeType      string `json:"mime_type"`
}

func (s AssetSource) Available() bool {
	return s.URL != "" || s.Base64Payload != "" || s.DataURI != ""
}

// Open resolves the source to a byte stream.
func (s AssetSource) Open(ctx context.Context) (io.ReadCloser, error) {
	switch {
	case s.URL != "":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("build source request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch source: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch source: unexpected status %s", resp.Status)
		}
		return resp.Body, nil
	case s.Base64Payload != "":
		return io.NopCloser(base64.NewDecoder(base64.StdEncoding, strings.NewReader(s.Base64Payload))), nil
	case s.DataURI != "":
		_, payload, err := splitDataURI(s.DataURI)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(base64.NewDecoder(base64.StdEncoding, strings.NewReader(payload))), nil
	}
	return nil, fmt.Errorf("asset source has no available representation")
}

func splitDataURI(uri string) (mimeType, payload string, err error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", "", fmt.Errorf("malformed data URI")
	}
	rest := strings.TrimPrefix(uri, "data:")
	idx := strings.Index(rest, ",")
	if idx < 0 {
		return "", "", fmt.Errorf("malformed data URI: missing payload")
	}
	meta, payload := rest[:idx], rest[idx+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return "", "", fmt.Errorf("unsupported data URI encoding")
	}
	return strings.TrimSuffix(meta, ";base64"), payload, nil
}

// TransformRequest carries the source asset and the user-facing input
// parameters validated against the contribution's input schema.
type TransformRequest struct {
	Source AssetSource   `json:"source"`
	Input  schema.Values `json:"input"`
}

// VariantType distinguishes thumbnails from other derivative artifacts.
type VariantType string

const (
	VariantThumbnail  VariantType = "THUMBNAIL"
	VariantDerivative VariantType = "DERIVATIVE"
)

// VariantDeclaration is a transformer's up-front statement of one output
// artifact it intends to produce. EntryPoint is a relative path and must be
// unique within a handshake.
type VariantDeclaration struct {
	Name       string      `json:"name,omitempty"`
	EntryPoint string      `json:"entry_point"`
	MimeType   string      `json:"mime_type"`
	Type       VariantType `json:"type"`
}

// HandshakeResult declares every variant a transform will produce, before
// any work is done, so the caller can pre-allocate placeholder records.
type HandshakeResult struct {
	Variants []VariantDeclaration `json:"variants"`
}

// TransformVariant carries a declared variant with its caller-allocated id
// and storage handle into the transform call.
type TransformVariant struct {
	ID string `json:"id"`
	VariantDeclaration
	Files FileOperations `json:"-"`
}

// TransformArgs is the input to Transform. LocalPath is a local copy of the
// source for encoders that need a seekable file.
type TransformArgs struct {
	Source    AssetSource        `json:"source"`
	Input     schema.Values      `json:"input"`
	LocalPath string             `json:"local_path"`
	Variants  []TransformVariant `json:"variants"`
}

// VariantResult reports one variant's outcome. An empty Error means success.
type VariantResult struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// TransformResult holds one entry per declared variant. A transform is not
// atomic across variants: partial success is an expected outcome and callers
// decide the overall pass/fail policy.
type TransformResult struct {
	Variants []VariantResult `json:"variants"`
}

func (r TransformResult) Failed() []VariantResult {
	var failed []VariantResult
	for _, v := range r.Variants {
		if v.Error != "" {
			failed = append(failed, v)
		}
	}
	return failed
}

// Transformer converts one input asset into one or more derivative output
// artifacts. Handshake must be pure declaration: no I/O beyond inspecting
// the request input. Transform must isolate per-variant failures in the
// per-variant error field instead of letting one variant abort its siblings.
type Transformer interface {
	Handshake(ctx context.Context, req TransformRequest) (HandshakeResult, error)
	Transform(ctx context.Context, args TransformArgs) (TransformResult, error)
}

// TransformState tracks a transform invocation through its lifecycle.
type TransformState string

const (
	StateUninitialized   TransformState = "UNINITIALIZED"
	StateHandshaken      TransformState = "HANDSHAKEN"
	StateTransforming    TransformState = "TRANSFORMING"
	StateCompleted       TransformState = "COMPLETED"
	StatePartiallyFailed TransformState = "PARTIALLY_FAILED"
)
