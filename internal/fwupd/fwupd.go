// Package fwupd reads firmware device and release data from fwupdmgr's JSON
// output. fwupd has changed its JSON field casing more than once, so every
// lookup here tolerates the known variants and normalizes into one shape.
package fwupd

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/manifest"
	"github.com/pacscout/pacscout/internal/run"
)

// Device is one firmware-updatable device
type Device struct {
	Name     string
	DeviceID string
	Version  string
}

// Update is one pending firmware release for a device
type Update struct {
	Device    string `json:"device"`
	DeviceID  string `json:"device_id,omitempty"`
	Installed string `json:"installed"`
	Available string `json:"available"`
	Checksum  string `json:"checksum,omitempty"`
	Trust     string `json:"trust,omitempty"`
}

// Source reads devices and pending updates via fwupdmgr
type Source struct {
	Runner run.Runner
}

// NewSource creates a Source backed by runner
func NewSource(runner run.Runner) *Source {
	return &Source{Runner: runner}
}

// noUpdatesExit is fwupdmgr's "nothing to do" exit code
const noUpdatesExit = 2

// Devices lists firmware-updatable devices keyed by device ID
func (s *Source) Devices() (map[string]Device, error) {
	res, err := s.Runner.Run("fwupdmgr", "get-devices", "--json")
	if err != nil {
		if nothingToDo(res, err) {
			return map[string]Device{}, nil
		}
		return nil, err
	}

	doc, err := parseRoot(res.Stdout)
	if err != nil {
		return nil, err
	}

	devices := map[string]Device{}
	doc.ForEach(func(_, entry gjson.Result) bool {
		dev := Device{
			Name:     pick(entry, "Name", "name").String(),
			DeviceID: pick(entry, "DeviceId", "device-id").String(),
			Version:  pick(entry, "Version", "version").String(),
		}
		if dev.DeviceID != "" {
			devices[dev.DeviceID] = dev
		}
		return true
	})
	return devices, nil
}

// Updates lists pending firmware releases. Releases whose version equals
// the device's installed version are never reported. Hashes are truncated
// to the shared display length.
func (s *Source) Updates() ([]Update, error) {
	installed, err := s.Devices()
	if err != nil {
		return nil, err
	}

	res, err := s.Runner.Run("fwupdmgr", "get-updates", "--json")
	if err != nil {
		if nothingToDo(res, err) {
			return nil, nil
		}
		return nil, err
	}

	doc, err := parseRoot(res.Stdout)
	if err != nil {
		return nil, err
	}

	var updates []Update
	doc.ForEach(func(_, entry gjson.Result) bool {
		deviceID := pick(entry, "DeviceId", "device-id").String()
		version := pick(entry, "Version", "version").String()
		if version == "" {
			if dev, ok := installed[deviceID]; ok {
				version = dev.Version
			}
		}

		name := pick(entry, "Name", "name").String()
		releases := pick(entry, "Releases", "releases")
		releases.ForEach(func(_, rel gjson.Result) bool {
			available := pick(rel, "Version", "version").String()
			if available == "" || available == version {
				return true
			}
			updates = append(updates, Update{
				Device:    name,
				DeviceID:  deviceID,
				Installed: version,
				Available: available,
				Checksum:  manifest.TruncateHash(releaseChecksum(rel)),
				Trust:     releaseTrust(rel),
			})
			return true
		})
		return true
	})
	return updates, nil
}

// nothingToDo reports whether a failed invocation is fwupdmgr's benign
// "no updates available" outcome
func nothingToDo(res run.Result, err error) bool {
	return errors.Is(err, errdefs.ErrCommandFailed) && res.ExitCode == noUpdatesExit
}

// parseRoot validates the JSON document and returns the device array,
// wherever this fwupd version put it
func parseRoot(out string) (gjson.Result, error) {
	if !gjson.Valid(out) {
		return gjson.Result{}, errdefs.Serialization("fwupdmgr printed invalid JSON")
	}
	root := gjson.Get(out, "Devices")
	if !root.Exists() {
		root = gjson.Get(out, "devices")
	}
	return root, nil
}

// pick returns the first existing key variant
func pick(from gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := from.Get(key); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// releaseChecksum selects the first non-empty checksum across the casing
// and shape variants: a bare string, or the first element of an array.
func releaseChecksum(rel gjson.Result) string {
	for _, key := range []string{"Checksum", "Checksums", "checksums"} {
		v := rel.Get(key)
		if !v.Exists() {
			continue
		}
		if v.IsArray() {
			for _, item := range v.Array() {
				if s := item.String(); s != "" {
					return s
				}
			}
			continue
		}
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}

// releaseTrust renders the release's trust metadata: flag arrays joined
// with commas, else the boolean Signed field.
func releaseTrust(rel gjson.Result) string {
	for _, key := range []string{"TrustFlags", "trust-flags"} {
		v := rel.Get(key)
		if !v.Exists() {
			continue
		}
		if v.IsArray() {
			var flags []string
			for _, item := range v.Array() {
				if s := item.String(); s != "" {
					flags = append(flags, s)
				}
			}
			if len(flags) > 0 {
				return strings.Join(flags, ",")
			}
			continue
		}
		if s := v.String(); s != "" {
			return s
		}
	}
	if v := rel.Get("Signed"); v.Exists() {
		if v.Bool() {
			return "signed"
		}
		return "unsigned"
	}
	return ""
}
