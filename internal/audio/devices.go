package audio

import (
	"fmt"
	"sort"

	"github.com/gordonklaus/portaudio"
)

// Device describes a PortAudio input device.
type Device struct {
	Name            string
	HostAPI         string
	Channels        int
	DefaultSampleHz float64
	IsDefault       bool
	Score           int
}

// String renders a device for listings.
func (d Device) String() string {
	marker := " "
	if d.IsDefault {
		marker = "*"
	}
	return fmt.Sprintf("%s %-40s %-12s %dch %6.0f Hz", marker, d.Name, d.HostAPI, d.Channels, d.DefaultSampleHz)
}

// ListDevices returns capture-capable devices, best candidate first.
func ListDevices() ([]Device, error) {
	hosts, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("host apis: %w", err)
	}

	defaultIndex := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultIndex = def.Index
	}

	var devices []Device
	for _, host := range hosts {
		for _, d := range host.Devices {
			c := candidate{Name: d.Name, Channels: d.MaxInputChannels, IsDefault: d.Index == defaultIndex}
			if c.score() < 0 {
				continue
			}
			devices = append(devices, Device{
				Name:            d.Name,
				HostAPI:         host.Name,
				Channels:        d.MaxInputChannels,
				DefaultSampleHz: d.DefaultSampleRate,
				IsDefault:       c.IsDefault,
				Score:           c.score(),
			})
		}
	}

	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].Score == devices[j].Score {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].Score > devices[j].Score
	})
	return devices, nil
}
