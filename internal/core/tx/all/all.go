// Package all registers every built-in program with the engine.
package all

import (
	_ "github.com/LeJamon/goEscrow/internal/core/tx/escrow"
	_ "github.com/LeJamon/goEscrow/internal/core/tx/system"
	_ "github.com/LeJamon/goEscrow/internal/core/tx/token"
)
