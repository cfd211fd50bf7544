// Package remoteobj re-exports internal/objectstore/store's public surface
// under the genai/tool namespace, the way internal/codec/interface.go
// aliases a Datly type rather than forcing every caller to import the
// internal package path directly.
package remoteobj

import (
	"github.com/viant/remoteobj/internal/objectstore/ref"
	"github.com/viant/remoteobj/internal/objectstore/store"
	"github.com/viant/remoteobj/internal/objectstore/transport"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

type (
	Store      = store.Store
	Options    = store.Options
	Option     = store.Option
	Ref        = ref.Ref
	Connection = transport.Connection
	Side       = wire.Side
)

const (
	Local  = wire.Local
	Remote = wire.Remote
)

var (
	New                        = store.New
	WithPrototypePolicy        = store.WithPrototypePolicy
	WithRemoteError            = store.WithRemoteError
	WithNoToString             = store.WithNoToString
	WithDoNotSyncGC            = store.WithDoNotSyncGC
	WithScheduleGCAfterTime    = store.WithScheduleGCAfterTime
	WithScheduleGCAfterObjectCount = store.WithScheduleGCAfterObjectCount
	WithRequestLatency         = store.WithRequestLatency
)
