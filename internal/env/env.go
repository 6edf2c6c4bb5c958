package env

import (
	"github.com/solarshed/solar-controller/internal/config"
)

// Cfg is the process-wide configuration. Mutable control state is
// deliberately not here: it lives in one model.ControlState owned by
// the control loop.
var Cfg *config.Config
