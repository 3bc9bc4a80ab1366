// Package credentials resolves the username/password pair used to log in to
// devices. Jumphost credentials take priority when the jumphost is enabled;
// otherwise the ROUTER_* environment fallbacks apply, then a last-resort
// default.
package credentials

import (
	"github.com/netgrid-io/netgrid/pkg/config"
)

// Credentials is a resolved username/password pair.
type Credentials struct {
	Username string
	Password string
}

// Resolve determines device login credentials from the jumphost record and
// environment settings. When the jumphost is enabled its credentials win; the
// same pair authenticates both the bastion hop and the device behind it.
func Resolve(j config.Jumphost, env *config.Env) (Credentials, error) {
	if j.Enabled {
		if j.Host == "" {
			return Credentials{}, &config.ConfigError{
				Field:  "jumphost.host",
				Reason: "required when jumphost is enabled",
			}
		}
		if j.Username != "" || j.Password != "" {
			return Credentials{Username: j.Username, Password: j.Password}, nil
		}
	}
	if env != nil && (env.RouterUsername != "" || env.RouterPassword != "") {
		return Credentials{Username: env.RouterUsername, Password: env.RouterPassword}, nil
	}
	return Credentials{Username: "cisco", Password: "cisco"}, nil
}
