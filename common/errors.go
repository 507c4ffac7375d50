package common

// ConfigurationError reports an invalid payment configuration value. It is
// only ever returned at session creation, never while a session is running.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InvalidCredentialError reports malformed or mismatched key material at
// wallet construction.
type InvalidCredentialError struct {
	Field string
	Err   error
}

func (e *InvalidCredentialError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *InvalidCredentialError) Unwrap() error { return e.Err }

// SettlementError reports a failed step of the terminal receive/send/sweep
// sequence. The session outcome is already decided by the time one of these
// is emitted, so it is a warning, not a session failure.
type SettlementError struct {
	Stage string // "receive", "settle" or "sweep"
	Err   error
}

func (e *SettlementError) Error() string { return "settlement " + e.Stage + ": " + e.Err.Error() }

func (e *SettlementError) Unwrap() error { return e.Err }
