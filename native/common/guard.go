// Package common holds small cross-module helpers shared by the native
// engines that compose the host runtime.
package common

import "errors"

// ErrModulePaused is returned by Guard when the named module (or feature,
// e.g. a single reserve's flash-loan switch) has been disabled.
var ErrModulePaused = errors.New("module paused")

// PauseView is satisfied by whatever governs the engine's circuit breakers.
// The lending engine checks it before flash loans and, in principle, any
// other feature an operator may want to kill-switch without a full upgrade.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused if the module is currently paused. A nil
// PauseView or empty module name is treated as "nothing to guard".
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
