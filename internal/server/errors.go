// SPDX-License-Identifier: EPL-2.0

package server

import "errors"

var (
	ErrHubStopped = errors.New("websocket hub stopped")
)
