package sensors

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/sensordeck/sensordeck/internal/reading"
)

// SysInfo reports host-level readings: local IP address, 1-minute load
// average and memory usage. It has no hardware to initialize.
type SysInfo struct{}

func NewSysInfo() *SysInfo { return &SysInfo{} }

func (s *SysInfo) Name() string { return "SysInfo" }

func (s *SysInfo) Fields() []string {
	return []string{"ip_address", "cpu_load", "memory_usage"}
}

func (s *SysInfo) ContinuousSampling() bool { return false }

func (s *SysInfo) Init() error { return nil }

func (s *SysInfo) Read() (reading.Fields, error) {
	fields := reading.Fields{
		"ip_address":   reading.Fallback,
		"cpu_load":     reading.Fallback,
		"memory_usage": reading.Fallback,
	}
	if ip, err := localIP(); err == nil {
		fields["ip_address"] = ip
	}
	if load, err := loadAvg(); err == nil {
		fields["cpu_load"] = load
	}
	if mem, err := memUsage(); err == nil {
		fields["memory_usage"] = mem
	}
	return fields, nil
}

func (s *SysInfo) Close() error { return nil }

// localIP determines the outbound interface address without sending
// any traffic.
func localIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.IsUnspecified() {
		return "127.0.0.1", nil
	}
	return addr.IP.String(), nil
}

func loadAvg() (float64, error) {
	raw, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, err
	}
	parts := strings.Fields(string(raw))
	if len(parts) == 0 {
		return 0, fmt.Errorf("empty loadavg")
	}
	return strconv.ParseFloat(parts[0], 64)
}

func memUsage() (string, error) {
	raw, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return "", err
	}
	var totalKB, availKB int64
	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			totalKB = v
		case "MemAvailable:":
			availKB = v
		}
	}
	if totalKB == 0 {
		return "", fmt.Errorf("meminfo missing MemTotal")
	}
	usedMB := (totalKB - availKB) / 1024
	totalMB := totalKB / 1024
	return fmt.Sprintf("%d/%d MB", usedMB, totalMB), nil
}
