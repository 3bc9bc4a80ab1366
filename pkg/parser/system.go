package parser

import (
	"regexp"
	"strconv"
)

var (
	cpuOneMinPattern  = regexp.MustCompile(`one minute: (\d+)%`)
	cpuFiveMinPattern = regexp.MustCompile(`five minutes: (\d+)%`)
	memoryPattern     = regexp.MustCompile(`(?i)Total: (\d+).*Used: (\d+).*Free: (\d+)`)
	memoryUsedPattern = regexp.MustCompile(`(?i)Total: (\d+).*Used: (\d+)`)
)

// CPUStats is the parsed form of "show process cpu".
type CPUStats struct {
	CPU1Min int `json:"cpu_1min"`
	CPU5Min int `json:"cpu_5min"`
}

// ParseProcessCPU extracts the 1- and 5-minute CPU load percentages.
func ParseProcessCPU(output string) CPUStats {
	var s CPUStats
	if m := cpuOneMinPattern.FindStringSubmatch(output); m != nil {
		s.CPU1Min, _ = strconv.Atoi(m[1])
	}
	if m := cpuFiveMinPattern.FindStringSubmatch(output); m != nil {
		s.CPU5Min, _ = strconv.Atoi(m[1])
	}
	return s
}

// MemoryStats is the parsed form of "show process memory".
type MemoryStats struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
	Free  int64 `json:"free"`
}

// ParseProcessMemory extracts total/used/free from the processor pool line.
func ParseProcessMemory(output string) MemoryStats {
	var s MemoryStats
	if m := memoryPattern.FindStringSubmatch(output); m != nil {
		s.Total, _ = strconv.ParseInt(m[1], 10, 64)
		s.Used, _ = strconv.ParseInt(m[2], 10, 64)
		s.Free, _ = strconv.ParseInt(m[3], 10, 64)
	}
	return s
}

// MemoryUtilization returns used/total as a percentage for health checks.
// Accepts output without a Free column. Zero total reports 0.
func MemoryUtilization(output string) float64 {
	m := memoryUsedPattern.FindStringSubmatch(output)
	if m == nil {
		return 0
	}
	total, _ := strconv.ParseFloat(m[1], 64)
	used, _ := strconv.ParseFloat(m[2], 64)
	if total <= 0 {
		return 0
	}
	return used / total * 100
}
