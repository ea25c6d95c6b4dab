package api

// AuthorizeRequest registers an application with the device.
type AuthorizeRequest struct {
	AppID      string `json:"app_id"`
	AppName    string `json:"app_name"`
	AppVersion string `json:"app_version"`
	DeviceName string `json:"device_name"`
}

// AuthorizeResult carries the freshly issued app token and the track id to
// poll. The app token is the long-lived shared secret.
type AuthorizeResult struct {
	AppToken string `json:"app_token"`
	TrackID  int    `json:"track_id"`
}

// AuthorizationProgress is one poll of a pending registration. Status is
// the raw device string (pending, timeout, granted, denied, unknown).
type AuthorizationProgress struct {
	Status       string  `json:"status"`
	Challenge    *string `json:"challenge,omitempty"`
	PasswordSalt string  `json:"password_salt,omitempty"`
}

// LoginResult is the login status. Challenge is nil when the device sent none.
type LoginResult struct {
	LoggedIn     bool    `json:"logged_in"`
	Challenge    *string `json:"challenge,omitempty"`
	PasswordSalt string  `json:"password_salt,omitempty"`
	PasswordSet  bool    `json:"password_set,omitempty"`
}

// HasChallenge reports whether a usable challenge was returned.
func (r *LoginResult) HasChallenge() bool {
	return r.Challenge != nil && *r.Challenge != ""
}

// SessionStartRequest opens a session with a derived password.
type SessionStartRequest struct {
	AppID      string `json:"app_id"`
	AppVersion string `json:"app_version,omitempty"`
	Password   string `json:"password"`
}

// Permissions lists what the session may do.
type Permissions struct {
	Settings   bool `json:"settings,omitempty"`
	Contacts   bool `json:"contacts,omitempty"`
	Calls      bool `json:"calls,omitempty"`
	Explorer   bool `json:"explorer,omitempty"`
	Downloader bool `json:"downloader,omitempty"`
	Parental   bool `json:"parental,omitempty"`
	PVR        bool `json:"pvr,omitempty"`
	Profile    bool `json:"profile,omitempty"`
	Camera     bool `json:"camera,omitempty"`
	Home       bool `json:"home,omitempty"`
	VM         bool `json:"vm,omitempty"`
}

// SessionStartResult is an opened session.
type SessionStartResult struct {
	SessionToken string      `json:"session_token"`
	Challenge    string      `json:"challenge,omitempty"`
	Permissions  Permissions `json:"permissions"`
}
