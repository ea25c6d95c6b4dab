package auth

import (
	"fmt"
	"os/user"
	"runtime"
)

// Identity describes the application to the device. DeviceName is shown on
// the device screen while the user decides.
type Identity struct {
	AppID      string
	AppName    string
	AppVersion string
	DeviceName string
}

// DefaultDeviceName returns "<user> - <os>".
func DefaultDeviceName() string {
	name := "fbx"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	return fmt.Sprintf("%s - %s", name, runtime.GOOS)
}

func (id Identity) withDefaults() Identity {
	if id.AppName == "" {
		id.AppName = id.AppID
	}
	if id.DeviceName == "" {
		id.DeviceName = DefaultDeviceName()
	}
	return id
}
