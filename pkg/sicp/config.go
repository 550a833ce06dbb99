package sicp

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Config is the process configuration: one entry per physical display.
type Config struct {
	Devices []DeviceConfig `json:"devices"`
}

type DeviceConfig struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`

	// TargetId 0 broadcasts; the display typically does not reply.
	TargetId     byte `json:"targetId"`
	GroupEnabled bool `json:"groupEnabled"`
	GroupId      byte `json:"groupId"`

	PollIntervalSeconds int `json:"pollIntervalSeconds"`
	TimeoutMs           int `json:"timeoutMs"`

	Inputs     []InputConfig `json:"inputs"`
	Volume     *AxisConfig   `json:"volume"`
	Brightness *AxisConfig   `json:"brightness"`
}

type InputConfig struct {
	Id    int    `json:"id"`
	Label string `json:"label"`
	Code  byte   `json:"code"`
}

// AxisConfig describes a control axis. Either setCode (absolute mode) or
// upCode+downCode (relative mode) may be given; neither means the axis is
// unconfigured. The mute codes are only meaningful on the volume axis.
type AxisConfig struct {
	Min         int   `json:"min"`
	Max         int   `json:"max"`
	Initial     int   `json:"initial"`
	SetCode     *byte `json:"setCode"`
	UpCode      *byte `json:"upCode"`
	DownCode    *byte `json:"downCode"`
	StepDelayMs int   `json:"stepDelayMs"`

	MuteSetCode    *byte `json:"muteSetCode"`
	MuteToggleCode *byte `json:"muteToggleCode"`
}

// ReadConfig loads and validates the configuration file. Configuration
// problems are caught here, before anything reaches the wire.
func ReadConfig(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	var config Config
	if err := json.NewDecoder(f).Decode(&config); err != nil {
		return nil, errors.Wrapf(err, "parse %s", filename)
	}

	if len(config.Devices) == 0 {
		return nil, fmt.Errorf("%s: no displays configured", filename)
	}

	names := make(map[string]bool)
	for i := range config.Devices {
		dc := &config.Devices[i]
		if err := dc.validate(); err != nil {
			return nil, errors.Wrapf(err, "display %q", dc.Name)
		}
		if names[dc.Name] {
			return nil, fmt.Errorf("duplicate display name %q", dc.Name)
		}
		names[dc.Name] = true
	}

	return &config, nil
}

func (dc *DeviceConfig) validate() error {
	if dc.Name == "" {
		return fmt.Errorf("missing name")
	}
	if dc.Host == "" {
		return fmt.Errorf("missing host")
	}
	if dc.Port == 0 {
		dc.Port = DefaultPort
	}

	ids := make(map[int]bool)
	for _, input := range dc.Inputs {
		if input.Id <= 0 {
			return fmt.Errorf("input %q: identifier must be positive", input.Label)
		}
		if ids[input.Id] {
			return fmt.Errorf("duplicate input identifier %d", input.Id)
		}
		ids[input.Id] = true
	}

	if dc.Volume != nil {
		if err := dc.Volume.validate(true); err != nil {
			return errors.Wrap(err, "volume")
		}
	}
	if dc.Brightness != nil {
		if err := dc.Brightness.validate(false); err != nil {
			return errors.Wrap(err, "brightness")
		}
	}

	return nil
}

func (ac *AxisConfig) validate(mutable bool) error {
	if ac.Min >= ac.Max {
		return fmt.Errorf("min %d must be below max %d", ac.Min, ac.Max)
	}
	if ac.Initial < ac.Min || ac.Initial > ac.Max {
		return fmt.Errorf("initial %d outside [%d, %d]", ac.Initial, ac.Min, ac.Max)
	}
	if ac.SetCode != nil && (ac.UpCode != nil || ac.DownCode != nil) {
		return fmt.Errorf("setCode and upCode/downCode are mutually exclusive")
	}
	if (ac.UpCode == nil) != (ac.DownCode == nil) {
		return fmt.Errorf("upCode and downCode must be given together")
	}
	if ac.MuteSetCode != nil && ac.MuteToggleCode != nil {
		return fmt.Errorf("muteSetCode and muteToggleCode are mutually exclusive")
	}
	if !mutable && (ac.MuteSetCode != nil || ac.MuteToggleCode != nil) {
		return fmt.Errorf("mute codes are only valid on the volume axis")
	}
	return nil
}

func (ac *AxisConfig) axis() *Axis {
	a := &Axis{
		min:       ac.Min,
		max:       ac.Max,
		current:   ac.Initial,
		stepDelay: time.Duration(ac.StepDelayMs) * time.Millisecond,
	}
	switch {
	case ac.SetCode != nil:
		a.mode = modeAbsolute
		a.setCode = *ac.SetCode
	case ac.UpCode != nil:
		a.mode = modeRelative
		a.upCode = *ac.UpCode
		a.downCode = *ac.DownCode
	}
	return a
}
