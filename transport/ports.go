package transport

import (
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// PortInfo describes a local serial device.
type PortInfo struct {
	Name         string `json:"name"`
	IsUSB        bool   `json:"is_usb"`
	VID          string `json:"vid,omitempty"`
	PID          string `json:"pid,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	Product      string `json:"product,omitempty"`
}

// PortEnumerator lists serial devices for display. It never fails: an
// enumeration error is logged and yields an empty list.
type PortEnumerator struct {
	logger   logrus.FieldLogger
	list     func() ([]string, error)
	detailed func() ([]*enumerator.PortDetails, error)
}

// NewPortEnumerator creates an enumerator that queries the operating system.
// A nil logger selects the logrus standard logger.
func NewPortEnumerator(logger logrus.FieldLogger) *PortEnumerator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PortEnumerator{
		logger:   logger,
		list:     serial.GetPortsList,
		detailed: enumerator.GetDetailedPortsList,
	}
}

// ListPorts returns the names of available serial devices.
func (p *PortEnumerator) ListPorts() []string {
	names, err := p.list()
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"function": "PortEnumerator.ListPorts",
			"error":    err.Error(),
		}).Error("Error getting available ports")
		return []string{}
	}
	if names == nil {
		return []string{}
	}
	return names
}

// ListPortDetails returns available serial devices with USB metadata where
// the platform reports it.
func (p *PortEnumerator) ListPortDetails() []PortInfo {
	details, err := p.detailed()
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"function": "PortEnumerator.ListPortDetails",
			"error":    err.Error(),
		}).Error("Error getting port details")
		return []PortInfo{}
	}

	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		ports = append(ports, PortInfo{
			Name:         d.Name,
			IsUSB:        d.IsUSB,
			VID:          d.VID,
			PID:          d.PID,
			SerialNumber: d.SerialNumber,
			Product:      d.Product,
		})
	}
	return ports
}
