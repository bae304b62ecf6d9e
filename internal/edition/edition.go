// Package edition exposes the licensing flag that gates the advanced
// capabilities of the query compiler.
package edition

import (
	"os"
	"strconv"
)

// Gate reports whether the full edition is active. Implementations must be
// cheap: the compiler consults the gate at every decision point instead of
// caching the answer for the lifetime of a call.
type Gate interface {
	Pro() bool
}

// Static is a fixed gate, mostly useful in tests and the CLI.
type Static bool

func (s Static) Pro() bool { return bool(s) }

// EnvGate reads the flag from the environment on every call.
type EnvGate struct {
	Var string
}

// NewEnvGate returns a gate backed by the QF_PRO environment variable.
func NewEnvGate() EnvGate {
	return EnvGate{Var: "QF_PRO"}
}

func (g EnvGate) Pro() bool {
	name := g.Var
	if name == "" {
		name = "QF_PRO"
	}
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}
