package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID      = "job_id"
	KeyJobState   = "job_state"
	KeySlug       = "slug"
	KeyStage      = "stage"
	KeyFramework  = "framework"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyCommand    = "command"
	KeyExitCode   = "exit_code"
	KeyProgress   = "progress"
	KeyPosition   = "position"
	KeyDurationMS = "duration_ms"
	KeySize       = "size"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func JobState(s string) slog.Attr     { return slog.String(KeyJobState, s) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Framework(f string) slog.Attr    { return slog.String(KeyFramework, f) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Command(c string) slog.Attr      { return slog.String(KeyCommand, c) }
func ExitCode(c int) slog.Attr        { return slog.Int(KeyExitCode, c) }
func Progress(p float64) slog.Attr    { return slog.Float64(KeyProgress, p) }
func Position(p int) slog.Attr        { return slog.Int(KeyPosition, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Size(n int64) slog.Attr          { return slog.Int64(KeySize, n) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr   { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
