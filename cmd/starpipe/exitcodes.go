package main

// Exit codes reported by every starpipe command.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (unsupported release, bad cuts, missing name)
	ExitDataError   = 3 // Data error (malformed catalog, validation failure)
)
