package fwupd

import (
	"errors"
	"testing"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/run"
)

const sampleDevices = `{
  "Devices": [
    {"Name": "System Firmware", "DeviceId": "a45df35ac0e9", "Version": "1.2.0"},
    {"Name": "Touchpad", "DeviceId": "ff00aa11", "Version": "3.1"}
  ]
}`

const sampleUpdates = `{
  "Devices": [
    {
      "Name": "System Firmware",
      "DeviceId": "a45df35ac0e9",
      "Version": "1.2.0",
      "Releases": [
        {"Version": "1.2.0", "Checksum": "feedfacefeedfacefeedface"},
        {"Version": "1.3.2",
         "Checksum": "0123456789abcdeffedcba9876543210",
         "TrustFlags": ["payload", "metadata"]}
      ]
    }
  ]
}`

func fwupdRunner(devices, updates string, updatesErr error, updatesExit int) *run.MockRunner {
	return &run.MockRunner{
		RunFunc: func(name string, args ...string) (run.Result, error) {
			if args[0] == "get-devices" {
				return run.Result{Stdout: devices}, nil
			}
			return run.Result{Stdout: updates, ExitCode: updatesExit}, updatesErr
		},
	}
}

func TestSourceDevices(t *testing.T) {
	s := NewSource(fwupdRunner(sampleDevices, "", nil, 0))

	devices, err := s.Devices()
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(devices))
	}
	dev := devices["a45df35ac0e9"]
	if dev.Name != "System Firmware" || dev.Version != "1.2.0" {
		t.Errorf("device = %+v", dev)
	}
}

func TestSourceUpdates(t *testing.T) {
	s := NewSource(fwupdRunner(sampleDevices, sampleUpdates, nil, 0))

	updates, err := s.Updates()
	if err != nil {
		t.Fatalf("Updates: %v", err)
	}

	// The 1.2.0 release equals the installed version and must not appear.
	if len(updates) != 1 {
		t.Fatalf("updates = %+v, want exactly the 1.3.2 release", updates)
	}
	up := updates[0]
	if up.Device != "System Firmware" || up.DeviceID != "a45df35ac0e9" {
		t.Errorf("update = %+v", up)
	}
	if up.Installed != "1.2.0" || up.Available != "1.3.2" {
		t.Errorf("versions = %q -> %q", up.Installed, up.Available)
	}
	if up.Checksum != "0123456789abcdef" {
		t.Errorf("checksum = %q, want truncated to 16", up.Checksum)
	}
	if up.Trust != "payload,metadata" {
		t.Errorf("trust = %q", up.Trust)
	}
}

func TestSourceUpdatesCasingVariants(t *testing.T) {
	// Lowercase root, lowercase releases, checksum array, boolean trust.
	updates := `{
	  "devices": [
	    {
	      "name": "Dock",
	      "device-id": "dock01",
	      "version": "1.0",
	      "releases": [
	        {"version": "2.0",
	         "checksums": ["", "abcdefabcdefabcdefabcdef"],
	         "Signed": true}
	      ]
	    }
	  ]
	}`
	s := NewSource(fwupdRunner(`{"devices": []}`, updates, nil, 0))

	got, err := s.Updates()
	if err != nil {
		t.Fatalf("Updates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("updates = %+v", got)
	}
	up := got[0]
	if up.Device != "Dock" || up.DeviceID != "dock01" || up.Installed != "1.0" || up.Available != "2.0" {
		t.Errorf("update = %+v", up)
	}
	if up.Checksum != "abcdefabcdefabcd" {
		t.Errorf("checksum = %q, want first non-empty array entry truncated", up.Checksum)
	}
	if up.Trust != "signed" {
		t.Errorf("trust = %q", up.Trust)
	}
}

func TestSourceUpdatesInstalledVersionFromDevices(t *testing.T) {
	// Some fwupd versions omit the device version in get-updates output;
	// the get-devices listing fills it in.
	updates := `{
	  "Devices": [
	    {"Name": "Touchpad", "DeviceId": "ff00aa11",
	     "Releases": [{"Version": "3.1"}, {"Version": "3.2"}]}
	  ]
	}`
	s := NewSource(fwupdRunner(sampleDevices, updates, nil, 0))

	got, err := s.Updates()
	if err != nil {
		t.Fatalf("Updates: %v", err)
	}
	// 3.1 equals the installed version known from get-devices.
	if len(got) != 1 || got[0].Available != "3.2" || got[0].Installed != "3.1" {
		t.Errorf("updates = %+v", got)
	}
}

func TestSourceUpdatesNothingToDo(t *testing.T) {
	failure := errdefs.CommandFailed("fwupdmgr", errors.New("exit status 2"), "No updates available")
	s := NewSource(fwupdRunner(sampleDevices, "", failure, noUpdatesExit))

	updates, err := s.Updates()
	if err != nil {
		t.Fatalf("exit 2 must be benign: %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("updates = %+v", updates)
	}
}

func TestSourceUpdatesRealFailure(t *testing.T) {
	failure := errdefs.CommandFailed("fwupdmgr", errors.New("exit status 1"), "failed to connect to daemon")
	s := NewSource(fwupdRunner(sampleDevices, "", failure, 1))

	if _, err := s.Updates(); !errors.Is(err, errdefs.ErrCommandFailed) {
		t.Errorf("exit 1: %v, want command failure", err)
	}
}

func TestSourceUpdatesMissingTool(t *testing.T) {
	runner := &run.MockRunner{
		RunFunc: func(name string, args ...string) (run.Result, error) {
			return run.Result{ExitCode: -1}, errdefs.CommandMissing(name)
		},
	}
	if _, err := NewSource(runner).Updates(); !errors.Is(err, errdefs.ErrCommandMissing) {
		t.Errorf("missing fwupdmgr: %v", err)
	}
}

func TestSourceUpdatesInvalidJSON(t *testing.T) {
	s := NewSource(fwupdRunner(sampleDevices, "Devices:\n  System Firmware", nil, 0))

	if _, err := s.Updates(); !errors.Is(err, errdefs.ErrSerialization) {
		t.Errorf("invalid JSON: %v, want serialization error", err)
	}
}

func TestSourceUpdatesEmptyDocument(t *testing.T) {
	s := NewSource(fwupdRunner(`{"Devices": []}`, `{"Devices": []}`, nil, 0))

	updates, err := s.Updates()
	if err != nil {
		t.Fatalf("Updates: %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("updates = %+v", updates)
	}
}
