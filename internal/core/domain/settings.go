package domain

const (
	DefaultLoginSuccessMsg = "Login successful"
	DefaultLoginErrorMsg   = "Invalid credentials"
	DefaultSubExpiredMsg   = "Subscription expired"
	DefaultBannedMsg       = "Account banned"
	DefaultHWIDMismatchMsg = "HWID mismatch"
)

// AppSettings holds the owner-configurable messages used by the public login
// flow.
type AppSettings struct {
	ApplicationID   int64
	LoginSuccessMsg string
	LoginErrorMsg   string
	SubExpiredMsg   string
	BannedMsg       string
	HWIDMismatchMsg string
}

func DefaultSettings(appID int64) AppSettings {
	return AppSettings{ApplicationID: appID}.WithDefaults()
}

// WithDefaults fills every empty message with its built-in text.
func (s AppSettings) WithDefaults() AppSettings {
	if s.LoginSuccessMsg == "" {
		s.LoginSuccessMsg = DefaultLoginSuccessMsg
	}
	if s.LoginErrorMsg == "" {
		s.LoginErrorMsg = DefaultLoginErrorMsg
	}
	if s.SubExpiredMsg == "" {
		s.SubExpiredMsg = DefaultSubExpiredMsg
	}
	if s.BannedMsg == "" {
		s.BannedMsg = DefaultBannedMsg
	}
	if s.HWIDMismatchMsg == "" {
		s.HWIDMismatchMsg = DefaultHWIDMismatchMsg
	}
	return s
}
