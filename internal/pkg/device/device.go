package device

import (
	"encoding/hex"
	"os"
	"runtime"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"golang.org/x/crypto/blake2b"
)

var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// Info describes this host. The device id is a stable blake2b-128
// fingerprint, so the raw machine id never leaves the device.
func Info(appVersion string) attendance.DeviceInfo {
	hostname, _ := os.Hostname()
	return attendance.DeviceInfo{
		DeviceID:   Fingerprint(hostname, runtime.GOOS, runtime.GOARCH, machineID()),
		Platform:   runtime.GOOS,
		Arch:       runtime.GOARCH,
		Hostname:   hostname,
		AppVersion: appVersion,
	}
}

// Fingerprint hashes the given parts into a hex device id.
func Fingerprint(parts ...string) string {
	h, err := blake2b.New(16, []byte("hris-attendance-agent"))
	if err != nil {
		// only fails for invalid size or key length
		panic(err)
	}
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func machineID() string {
	for _, p := range machineIDPaths {
		if b, err := os.ReadFile(p); err == nil {
			if id := strings.TrimSpace(string(b)); id != "" {
				return id
			}
		}
	}
	return ""
}
