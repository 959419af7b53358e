package clock

import "go.uber.org/fx"

// Module provides the UTC system clock; tests supply Fixed instead.
var Module = fx.Module("clock", fx.Provide(NewSystemClock))

func NewSystemClock() Clock { return SystemClock{} }
