package app

import (
	"time"

	"gapsync/internal/core"
)

// Service wires the pure cores to the file-backed adapters. Stores are
// constructed per request from the paths the caller supplies, so
// multiple data roots can coexist (and tests get isolated trees for
// free).
type Service struct {
	Validator core.ManifestValidator
	Resolver  core.ResolverCore
	Clock     func() time.Time
}

func NewService() Service {
	return Service{
		Validator: core.NewManifestValidator(),
		Resolver:  core.NewResolverCore(),
		Clock:     time.Now,
	}
}

func (s Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}
