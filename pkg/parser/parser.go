// Package parser turns raw Cisco CLI output into structured data. Parsers are
// keyed by command substring; unmatched commands yield Result{Parsed: false}
// and the caller preserves the raw output regardless.
package parser

import (
	"encoding/json"
	"strings"
)

// Result wraps a parser's typed output. When no parser matched, Parsed is
// false and Data is nil; the JSON form is then just {"parsed": false}.
type Result struct {
	Parsed bool
	Data   interface{}
}

// MarshalJSON flattens Data and adds the "parsed" marker alongside it.
func (r Result) MarshalJSON() ([]byte, error) {
	if !r.Parsed || r.Data == nil {
		return []byte(`{"parsed":false}`), nil
	}
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	m["parsed"] = true
	return json.Marshal(m)
}

type entry struct {
	match func(command string) bool
	parse func(output string) interface{}
}

func contains(sub string) func(string) bool {
	return func(cmd string) bool { return strings.Contains(cmd, sub) }
}

// Dispatch order matters: "show cdp neighbor detail" must be tried before
// "show cdp neighbor", "show interface brief" before "show interface".
var dispatch = []entry{
	{contains("show process cpu"), func(o string) interface{} { return ParseProcessCPU(o) }},
	{contains("show process memory"), func(o string) interface{} { return ParseProcessMemory(o) }},
	{contains("show ospf database"), func(o string) interface{} { return ParseLSASummary(o) }},
	{contains("show cdp neighbor detail"), func(o string) interface{} { return ParseCDPDetail(o) }},
	{contains("show cdp neighbor"), func(o string) interface{} { return ParseCDPBrief(o) }},
	{contains("show interface brief"), func(o string) interface{} { return ParseInterfaceBrief(o) }},
	{contains("show ipv4 interface brief"), func(o string) interface{} { return ParseInterfaceBrief(o) }},
	{contains("show interface description"), func(o string) interface{} { return ParseInterfaceDescriptions(o) }},
	{func(cmd string) bool {
		return cmd == "show interface" || strings.HasPrefix(cmd, "show interface ")
	}, func(o string) interface{} { return ParseInterfaces(o) }},
	{contains("show bundle"), func(o string) interface{} { return ParseBundles(o) }},
}

// Parse runs the first matching parser for the command. Empty parse results
// still count as parsed: a device with no CDP neighbors is a valid answer.
func Parse(command, output string) Result {
	for _, e := range dispatch {
		if e.match(command) {
			return Result{Parsed: true, Data: e.parse(output)}
		}
	}
	return Result{Parsed: false}
}
