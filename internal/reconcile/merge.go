// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile merges server history into the local cache.
package reconcile

import (
	"github.com/jeranaias/querychat-tui/internal/model"
)

// MergeHistory applies the reconciliation rule for one session. If the
// fetch succeeded and returned content, the server result replaces the
// cache wholesale; a failed fetch or an empty-but-successful result keeps
// the cached history unchanged.
func MergeHistory(cached, server []model.Message, fetchOK bool) []model.Message {
	if fetchOK && len(server) > 0 {
		return server
	}
	return cached
}

// ResolvePlaceholder replaces the placeholder with the given correlation id
// in place, preserving its position. If no matching placeholder exists (a
// reconciliation replaced the history while the send was in flight), the
// resolution is appended instead. Returns the new history and whether an
// in-place replacement happened.
func ResolvePlaceholder(history []model.Message, tempID string, resolved model.Message) ([]model.Message, bool) {
	out := model.CloneHistory(history)
	for i, m := range out {
		if m.Temp && m.TempID == tempID {
			out[i] = resolved
			return out, true
		}
	}
	return append(out, resolved), false
}
