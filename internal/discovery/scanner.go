// internal/discovery/scanner.go - serial port discovery
package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.bug.st/serial"
	"go.uber.org/zap"
)

// PortLister returns the serial ports present on the host
type PortLister func() ([]string, error)

// PortInfo describes a serial port the display might be attached to
type PortInfo struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
}

// Scanner lists candidate serial ports for the display
type Scanner struct {
	lister     PortLister
	patterns   []string
	configured string
	logger     *zap.Logger
}

// NewScanner creates a scanner that keeps ports whose name contains one of
// patterns. An empty pattern list keeps every port. configured marks the
// port the service is set up to use.
func NewScanner(patterns []string, configured string, logger *zap.Logger) *Scanner {
	return &Scanner{
		lister:     serial.GetPortsList,
		patterns:   patterns,
		configured: configured,
		logger:     logger.With(zap.String("scanner", "serial")),
	}
}

// WithLister replaces the port source, used by tests
func (s *Scanner) WithLister(lister PortLister) *Scanner {
	s.lister = lister
	return s
}

// Scan returns the matching ports sorted by path
func (s *Scanner) Scan(ctx context.Context) ([]PortInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ports, err := s.lister()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports: %w", err)
	}

	s.logger.Debug("Found serial ports", zap.Strings("ports", ports))

	result := []PortInfo{}
	for _, port := range s.filterPorts(ports) {
		result = append(result, PortInfo{
			Path:       port,
			Name:       filepath.Base(port),
			Configured: port == s.configured,
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })

	s.logger.Info("Serial scan completed", zap.Int("ports_found", len(result)))
	return result, nil
}

func (s *Scanner) filterPorts(ports []string) []string {
	if len(s.patterns) == 0 {
		return ports
	}

	var filtered []string
	for _, port := range ports {
		for _, pattern := range s.patterns {
			if strings.Contains(port, pattern) {
				filtered = append(filtered, port)
				break
			}
		}
	}
	return filtered
}
