package execution

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/netgrid-io/netgrid/pkg/util"
)

// TimestampLayout is the wall-clock form embedded in artifact filenames.
const TimestampLayout = "2006-01-02_15-04-05"

// filenamePattern splits "<device>_<command-slug>_<timestamp>.<ext>". Device
// names contain no underscores in practice; the timestamp anchors the split
// from the right.
var filenamePattern = regexp.MustCompile(
	`^(.+)_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})\.(txt|json)$`)

// Filename builds the artifact filename for a device/command/time triple.
func Filename(deviceName, command string, ts time.Time, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s",
		deviceName, util.SlugifyCommand(command), ts.Format(TimestampLayout), ext)
}

// ParsedFilename is the decoded form of an artifact filename.
type ParsedFilename struct {
	DeviceName string
	Command    string
	Timestamp  time.Time
	Ext        string
}

// ParseFilename decodes an artifact filename. The command slug is restored
// with underscores back to spaces; slash substitution is not reversible and
// stays as hyphens.
func ParseFilename(deviceName, name string) (*ParsedFilename, error) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("unrecognized artifact filename %q", name)
	}
	stem := m[1]
	prefix := deviceName + "_"
	if !strings.HasPrefix(stem, prefix) {
		return nil, fmt.Errorf("artifact %q does not belong to device %q", name, deviceName)
	}
	slug := strings.TrimPrefix(stem, prefix)
	ts, err := time.ParseInLocation(TimestampLayout, m[2], time.Local)
	if err != nil {
		return nil, err
	}
	return &ParsedFilename{
		DeviceName: deviceName,
		Command:    strings.ReplaceAll(slug, "_", " "),
		Timestamp:  ts,
		Ext:        m[3],
	}, nil
}
