package util

import (
	"regexp"
	"strings"
)

var ipv4Pattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// SlugifyCommand converts a CLI command into a filename-safe slug:
// spaces become underscores, slashes become hyphens.
// "show running-config router ospf" -> "show_running-config_router_ospf".
func SlugifyCommand(command string) string {
	s := strings.ReplaceAll(command, " ", "_")
	return strings.ReplaceAll(s, "/", "-")
}

// FirstIPv4 returns the first dotted-quad IPv4 address found in s, or "".
func FirstIPv4(s string) string {
	return ipv4Pattern.FindString(s)
}
