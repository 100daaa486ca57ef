// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package capability

import "errors"

// Set is a Provider backed by a fixed collection of services.
type Set struct {
	services map[Kind]Service
	closers  []func() error
}

var _ Provider = (*Set)(nil)

// NewSet builds a Set. A later service replaces an earlier one of the same kind.
func NewSet(services ...Service) *Set {
	s := &Set{services: make(map[Kind]Service, len(services))}
	for _, svc := range services {
		if svc != nil {
			s.services[svc.Kind()] = svc
		}
	}
	return s
}

// OnClose registers fn to run when the set is closed.
func (s *Set) OnClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Service returns the service for kind.
func (s *Set) Service(kind Kind) (Service, bool) {
	svc, ok := s.services[kind]
	return svc, ok
}

// Limit wraps every service in the set with a concurrency limit of n.
func (s *Set) Limit(n int) *Set {
	out := &Set{services: make(map[Kind]Service, len(s.services)), closers: s.closers}
	for kind, svc := range s.services {
		out.services[kind] = Limit(svc, n)
	}
	return out
}

// Close runs registered closers.
func (s *Set) Close() error {
	var errs []error
	for _, fn := range s.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}
