// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package meta

import (
	"context"
	"time"

	"github.com/tfctl/opsctl/internal/config"
)

// Meta contains runtime metadata shared by commands. It carries CLI arguments,
// loaded configuration, context and the run timestamp. StartedAt is captured
// once per process so every file and resource name derived from it agrees.
type Meta struct {
	Args      []string
	Config    config.Type
	Context   context.Context
	StartedAt time.Time
}

// Stamp returns StartedAt formatted the way run artifacts are named, e.g.
// "Oct-19-2026_14-03-07".
func (m Meta) Stamp() string {
	return m.StartedAt.Format("Jan-02-2006_15-04-05")
}
