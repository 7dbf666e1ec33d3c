package source

import (
	"context"

	"github.com/pkg/errors"
)

// ConnectionInfo represents JSON-serializable configuration of a source.
type ConnectionInfo struct {
	Type   string      `json:"type"`
	Config interface{} `json:"config"`
}

// CreateSourceFunc is a function that returns a Source with the provided options.
type CreateSourceFunc func(ctx context.Context, options interface{}) (Source, error)

//nolint:gochecknoglobals
var factories = map[string]*sourceFactory{}

// sourceFactory allows creation of sources in a generic way.
type sourceFactory struct {
	defaultConfigFunc func() interface{}
	createSourceFunc  CreateSourceFunc
}

// AddSupportedSource registers a factory function to create sources with a given type name.
func AddSupportedSource(
	typeName string,
	defaultConfigFunc func() interface{},
	createSourceFunc CreateSourceFunc,
) {
	f := &sourceFactory{
		defaultConfigFunc: defaultConfigFunc,
		createSourceFunc:  createSourceFunc,
	}

	factories[typeName] = f
}

// NewSource creates a new source based on ConnectionInfo.
// The source type must be previously registered using AddSupportedSource.
func NewSource(ctx context.Context, cfg ConnectionInfo) (Source, error) {
	if factory, ok := factories[cfg.Type]; ok {
		return factory.createSourceFunc(ctx, cfg.Config)
	}

	return nil, errors.Errorf("unknown source type: %s", cfg.Type)
}

// DefaultConfig returns an empty configuration structure for the given
// registered source type, or nil when the type is unknown.
func DefaultConfig(typeName string) interface{} {
	if factory, ok := factories[typeName]; ok {
		return factory.defaultConfigFunc()
	}

	return nil
}

// SupportedTypes returns the type names of all registered sources.
func SupportedTypes() []string {
	var types []string

	for typeName := range factories {
		types = append(types, typeName)
	}

	return types
}
