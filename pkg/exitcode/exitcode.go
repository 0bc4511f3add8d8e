// Package exitcode provides standardized exit codes for tipguard
package exitcode

// Exit codes for tipguard CLI
const (
	Success          = 0
	DocumentFailure  = 1
	ConfigError      = 2
	CredentialsError = 3
	UsageError       = 4
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case DocumentFailure:
		return "One or more documents failed"
	case ConfigError:
		return "Configuration error"
	case CredentialsError:
		return "Missing storage credentials"
	case UsageError:
		return "Usage error"
	default:
		return "Unknown error"
	}
}
