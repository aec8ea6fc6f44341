package core

import (
	"fmt"

	"oneclick_bridge/contract"
)

// DefaultBuckets is the resource lookup order: drawable first, then mipmap.
var DefaultBuckets = []string{"drawable", "mipmap"}

// SetLogo resolves name through the resource buckets and hands it to the SDK.
func (s *Service) SetLogo(name string) error {
	if name == "" {
		return fmt.Errorf("%w: resName is required", ErrInvalidArguments)
	}
	id, ok := s.resolve(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, name)
	}
	h, ready := s.handle.get()
	if !ready {
		return ErrNotInitialized
	}
	if err := guard(func() error { return h.SetLogo(id) }); err != nil {
		return fmt.Errorf("set logo %q: %w", name, err)
	}
	return nil
}

func (s *Service) resolve(name string) (contract.ResourceID, bool) {
	if s.resources == nil {
		return "", false
	}
	for _, bucket := range s.buckets {
		if id, ok := s.resources.Lookup(name, bucket); ok {
			return id, true
		}
	}
	return "", false
}
