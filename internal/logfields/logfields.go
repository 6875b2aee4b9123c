package logfields

import "log/slog"

// Canonical log field names shared by every package.
const (
	KeyClientID   = "client_id"
	KeyRole       = "role"
	KeySettingKey = "setting_key"
	KeyScope      = "scope"
	KeyEvent      = "event"
	KeyDate       = "date"
	KeyState      = "state"
	KeyBackend    = "backend"
	KeyBucket     = "bucket"
	KeyVersion    = "version"
	KeyMinimum    = "minimum"
	KeyLocale     = "locale"
	KeyRemoteAddr = "remote_addr"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func ClientID(id string) slog.Attr { return slog.String(KeyClientID, id) }
func Role(r string) slog.Attr { return slog.String(KeyRole, r) }
func SettingKey(k string) slog.Attr { return slog.String(KeySettingKey, k) }
func Scope(s string) slog.Attr { return slog.String(KeyScope, s) }
func Event(name string) slog.Attr { return slog.String(KeyEvent, name) }
func Date(d string) slog.Attr { return slog.String(KeyDate, d) }
func State(s string) slog.Attr { return slog.String(KeyState, s) }
func Backend(name string) slog.Attr { return slog.String(KeyBackend, name) }
func Bucket(name string) slog.Attr { return slog.String(KeyBucket, name) }
func Version(v string) slog.Attr { return slog.String(KeyVersion, v) }
func Minimum(v string) slog.Attr { return slog.String(KeyMinimum, v) }
func Locale(tag string) slog.Attr { return slog.String(KeyLocale, tag) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
