package duplex

// SetExitFunc replaces the process-exit hook used by the shutdown
// coordinator and returns a restore function.
func SetExitFunc(fn func(code int)) (restore func()) {
	prev := osExit
	osExit = fn
	return func() { osExit = prev }
}

// ResetDefaultManager clears the process-wide manager between tests.
func ResetDefaultManager() {
	defaultMu.Lock()
	defaultMgr = nil
	defaultMu.Unlock()
}
