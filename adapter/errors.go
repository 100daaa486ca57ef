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

package adapter

import (
	"errors"
	"fmt"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
)

var (
	// ErrNoConversations indicates an export contained nothing to import.
	ErrNoConversations = errors.New("export contains no conversations")
)

func malformedSource(platform string, format string, args ...any) error {
	return core.Permanent(core.CodeMalformedSource,
		fmt.Errorf("%w: %s: %s", core.ErrMalformed, platform, fmt.Sprintf(format, args...)))
}
