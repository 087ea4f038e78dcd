package testing

import (
	"context"
	"sync"
	"time"

	"github.com/opd-ai/zplprint/interfaces"
	"github.com/opd-ai/zplprint/transport"
	"github.com/sirupsen/logrus"
)

// SimulatedPrintDispatcher implements simulation-based delivery for testing
type SimulatedPrintDispatcher struct {
	deliveryLog []DeliveryRecord
	failures    map[transport.Target]error
	config      *interfaces.DispatchConfig
	mu          sync.RWMutex
}

// DeliveryRecord represents a print delivery event for testing verification
type DeliveryRecord struct {
	Target    transport.Target
	Payload   []byte
	Timestamp int64
	Success   bool
	Error     error
}

// NewSimulatedPrintDispatcher creates a new simulation implementation for testing
func NewSimulatedPrintDispatcher(config *interfaces.DispatchConfig) *SimulatedPrintDispatcher {
	if config == nil {
		config = interfaces.DefaultDispatchConfig()
		config.UseSimulation = true
	}

	logrus.Warn("SIMULATION FUNCTION - NOT A REAL OPERATION")
	logrus.WithFields(logrus.Fields{
		"function":        "NewSimulatedPrintDispatcher",
		"connect_timeout": config.ConnectTimeout,
		"write_timeout":   config.WriteTimeout,
	}).Info("Creating simulated print dispatcher for testing")

	return &SimulatedPrintDispatcher{
		deliveryLog: make([]DeliveryRecord, 0),
		failures:    make(map[transport.Target]error),
		config:      config,
	}
}

// Send implements IPrintDispatcher.Send with simulation
func (s *SimulatedPrintDispatcher) Send(ctx context.Context, payload []byte, target transport.Target) interfaces.DeliveryResult {
	logrus.WithFields(logrus.Fields{
		"function":     "SimulatedPrintDispatcher.Send",
		"target":       targetName(target),
		"payload_size": len(payload),
	}).Info("Simulating print delivery")

	record := DeliveryRecord{
		Target:    target,
		Payload:   append([]byte(nil), payload...),
		Timestamp: time.Now().UnixNano(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.failureFor(ctx, target)
	if err != nil {
		record.Error = err
		s.deliveryLog = append(s.deliveryLog, record)

		logrus.WithFields(logrus.Fields{
			"function": "SimulatedPrintDispatcher.Send",
			"target":   targetName(target),
			"error":    err.Error(),
		}).Error("Simulated delivery failed")

		return interfaces.Failed(err)
	}

	record.Success = true
	s.deliveryLog = append(s.deliveryLog, record)

	logrus.WithFields(logrus.Fields{
		"function":         "SimulatedPrintDispatcher.Send",
		"target":           targetName(target),
		"total_deliveries": len(s.deliveryLog),
	}).Info("Print delivery simulated successfully")

	return interfaces.Succeeded("print job sent successfully")
}

// failureFor returns the error a send to target should report, mirroring the
// error types of the real dispatcher. Callers must hold s.mu.
func (s *SimulatedPrintDispatcher) failureFor(ctx context.Context, target transport.Target) error {
	if ctx != nil && ctx.Err() != nil {
		return &transport.ConnectError{Op: "dial", Target: targetName(target), Err: ctx.Err()}
	}

	switch t := target.(type) {
	case transport.NetworkTarget:
		if err, ok := s.failures[t]; ok {
			return &transport.ConnectError{Op: "dial", Target: t.Address(), Err: err}
		}
	case transport.SerialTarget:
		if err, ok := s.failures[t]; ok {
			return &transport.ConnectError{Op: "open", Target: t.DeviceName, Err: err}
		}
	default:
		return &transport.ConfigError{Err: transport.ErrUnknownTarget}
	}
	return nil
}

// FailTarget makes every subsequent send to target fail with err.
func (s *SimulatedPrintDispatcher) FailTarget(target transport.Target, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[target] = err
}

// ClearFailures removes all primed failures.
func (s *SimulatedPrintDispatcher) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[transport.Target]error)
}

// IsSimulation implements IPrintDispatcher.IsSimulation
func (s *SimulatedPrintDispatcher) IsSimulation() bool {
	return true
}

// GetDeliveryLog returns the complete delivery log for test verification
func (s *SimulatedPrintDispatcher) GetDeliveryLog() []DeliveryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to prevent external modifications
	log := make([]DeliveryRecord, len(s.deliveryLog))
	copy(log, s.deliveryLog)
	return log
}

// ClearDeliveryLog clears the delivery log for test cleanup
func (s *SimulatedPrintDispatcher) ClearDeliveryLog() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveryLog = make([]DeliveryRecord, 0)
}

// GetTypedStats returns delivery counters derived from the log.
func (s *SimulatedPrintDispatcher) GetTypedStats() interfaces.DispatchStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := interfaces.DispatchStats{Attempts: uint64(len(s.deliveryLog))}
	for _, record := range s.deliveryLog {
		if record.Success {
			stats.Delivered++
		} else {
			stats.Failed++
		}
	}
	return stats
}

func targetName(target transport.Target) string {
	if target == nil {
		return "<nil>"
	}
	return target.String()
}
