package plugin

import (
	"context"
	"io"
)

// Category identifies the kind of capability a contribution provides.
type Category string

const (
	CategoryStorage     Category = "storage"
	CategoryClassifier  Category = "classifier"
	CategoryTransformer Category = "transformer"
	CategoryVector      Category = "vector"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryStorage, CategoryClassifier, CategoryTransformer, CategoryVector:
		return true
	}
	return false
}

// FileOperations is the narrow storage handle injected into a transformer
// per variant. Transformers never construct one themselves and never see the
// backing storage provider.
type FileOperations interface {
	Write(ctx context.Context, path string, body io.Reader) error
	Read(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// Classifier extracts structured metadata from an asset instead of
// producing new media.
type Classifier interface {
	Classify(ctx context.Context, req TransformRequest) (map[string]interface{}, error)
}
