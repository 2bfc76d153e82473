package netlist

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/edp1096/trimbench/pkg/device"
)

type AnalysisType int

const (
	AnalysisOP AnalysisType = iota
	AnalysisTRAN
)

type NetlistData struct {
	Elements  []Element      // Circuit elements
	Nodes     map[string]int // Node name and index of first use
	Analysis  AnalysisType   // Analysis type
	TranParam struct {
		TStep float64 // timestep
		TStop float64 // stop time
		TMax  float64 // max timestep
	}
	Title string // Circuit title
}

type Element struct {
	Type   string            // Part type (R, C, V, I, T)
	Name   string            // Part name
	Nodes  []string          // Node names
	Value  float64           // Part value
	Params map[string]string // Parameter values
}

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"M":   1e-3,  // milli, as in SPICE
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var (
	valueRe      = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:[eE][-+]?\d+)?)(meg|[TGMKkmunpf])?s?$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// IsGround reports whether name refers to the reference node.
func IsGround(name string) bool {
	return name == "0" || strings.EqualFold(name, "gnd")
}

func Parse(input string) (*NetlistData, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	netlistData := &NetlistData{
		Nodes: make(map[string]int),
	}

	// Title or comment
	if scanner.Scan() {
		netlistData.Title = strings.TrimPrefix(scanner.Text(), "*")
		netlistData.Title = strings.TrimSpace(netlistData.Title)
	}

	var currentLine string
	lineNo := 1
	startLine := 0

	flush := func() error {
		if currentLine == "" {
			return nil
		}
		if err := parseLine(netlistData, currentLine); err != nil {
			return fmt.Errorf("line %d: %w", startLine, err)
		}
		currentLine = ""
		return nil
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Inline comment
		if idx := strings.Index(line, "*"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if len(line) == 0 {
			continue
		}

		// Line continuation
		if strings.HasPrefix(line, "+") {
			if currentLine == "" {
				return nil, fmt.Errorf("line %d: continuation without a statement", lineNo)
			}
			currentLine += " " + strings.TrimSpace(line[1:])
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		if strings.EqualFold(line, ".end") {
			break
		}
		currentLine = line
		startLine = lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return netlistData, nil
}

func parseLine(netlistData *NetlistData, line string) error {
	line = whitespaceRe.ReplaceAllString(line, " ")

	if strings.HasPrefix(line, ".") {
		return parseDotOperator(netlistData, line)
	}

	element, err := parseElement(line)
	if err != nil {
		return err
	}

	netlistData.Elements = append(netlistData.Elements, *element)
	for _, node := range element.Nodes {
		if _, exists := netlistData.Nodes[node]; !exists {
			netlistData.Nodes[node] = len(netlistData.Nodes)
		}
	}
	return nil
}

// Parse .op, .tran
func parseDotOperator(netlistData *NetlistData, line string) error {
	var err error

	fields := strings.Fields(line)

	switch strings.ToLower(fields[0]) {
	case ".op":
		netlistData.Analysis = AnalysisOP

	case ".tran":
		netlistData.Analysis = AnalysisTRAN
		if len(fields) < 3 {
			return fmt.Errorf("insufficient tran parameters, need at least tstep and tstop")
		}
		netlistData.TranParam.TStep, err = ParseValue(fields[1])
		if err != nil {
			return fmt.Errorf("invalid tstep: %w", err)
		}
		netlistData.TranParam.TStop, err = ParseValue(fields[2])
		if err != nil {
			return fmt.Errorf("invalid tstop: %w", err)
		}
		if len(fields) > 3 {
			netlistData.TranParam.TMax, err = ParseValue(fields[3])
			if err != nil {
				return fmt.Errorf("invalid tmax: %w", err)
			}
		}
		if netlistData.TranParam.TMax == 0 {
			netlistData.TranParam.TMax = netlistData.TranParam.TStep
		}

	default:
		return fmt.Errorf("unsupported dot command: %s", fields[0])
	}

	return nil
}

func parseElement(line string) (*Element, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil, fmt.Errorf("invalid element format: %s", line)
	}

	elem := &Element{
		Name:   fields[0],
		Type:   strings.ToUpper(string(fields[0][0])),
		Nodes:  fields[1:3],
		Params: make(map[string]string),
	}

	switch elem.Type {
	case "V", "I":
		return parseSource(elem, fields[3:])

	case "T":
		// Ttrim n+ n- base step=<A> reg=<register>
		if err := parseValueAndParams(elem, fields[3:]); err != nil {
			return nil, err
		}
		if _, ok := elem.Params["step"]; !ok {
			return nil, fmt.Errorf("trim dac %s: missing step parameter", elem.Name)
		}
		if _, ok := elem.Params["reg"]; !ok {
			return nil, fmt.Errorf("trim dac %s: missing reg parameter", elem.Name)
		}
		return elem, nil

	case "R", "C":
		if len(fields) != 4 {
			return nil, fmt.Errorf("element %s: expected 2 nodes and a value", elem.Name)
		}
		value, err := ParseValue(fields[3])
		if err != nil {
			return nil, err
		}
		elem.Value = value
		return elem, nil

	default:
		return nil, fmt.Errorf("unsupported element type %s: %s", elem.Type, elem.Name)
	}
}

func parseValueAndParams(elem *Element, fields []string) error {
	haveValue := false
	for _, f := range fields {
		if key, val, ok := strings.Cut(f, "="); ok {
			elem.Params[strings.ToLower(key)] = val
			continue
		}
		if haveValue {
			return fmt.Errorf("element %s: unexpected value %s", elem.Name, f)
		}
		value, err := ParseValue(f)
		if err != nil {
			return err
		}
		elem.Value = value
		haveValue = true
	}
	if !haveValue {
		return fmt.Errorf("element %s: missing value", elem.Name)
	}
	return nil
}

func parseSource(elem *Element, fields []string) (*Element, error) {
	remaining := strings.Join(fields, " ")
	remaining = strings.ReplaceAll(remaining, "(", " ( ") // Append whitespace around parentheses
	remaining = strings.ReplaceAll(remaining, ")", " ) ")
	words := strings.Fields(remaining)
	if len(words) == 0 {
		return nil, fmt.Errorf("source %s: missing value", elem.Name)
	}

	kind := strings.ToUpper(words[0])
	switch {
	case kind == "DC":
		if len(words) < 2 {
			return nil, fmt.Errorf("source %s: missing DC value", elem.Name)
		}
		words = words[1:]
		fallthrough

	case len(words) == 1:
		// bare value is DC
		value, err := ParseValue(words[0])
		if err != nil {
			return nil, err
		}
		elem.Params["type"] = "dc"
		elem.Value = value

	case kind == "PULSE" && elem.Type == "V":
		elem.Params["type"] = "pulse"
		elem.Params["pulse"] = strings.Trim(strings.Join(words[1:], " "), "() ")

	case kind == "PWL" && elem.Type == "V":
		elem.Params["type"] = "pwl"
		elem.Params["pwl"] = strings.Trim(strings.Join(words[1:], " "), "() ")

	default:
		return nil, fmt.Errorf("unsupported source type for %s: %s", elem.Name, words[0])
	}

	return elem, nil
}

// ParseValue - Parse value and factor. 1k -> 1000, 5ps -> 5e-12
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	if matches[2] != "" {
		num *= unitMap[matches[2]]
	}

	return num, nil
}

func CreateDevice(elem Element) (device.Device, error) {
	switch elem.Type {
	case "R":
		return device.NewResistor(elem.Name, elem.Nodes, elem.Value), nil

	case "C":
		return device.NewCapacitor(elem.Name, elem.Nodes, elem.Value), nil

	case "T":
		step, err := ParseValue(elem.Params["step"])
		if err != nil {
			return nil, fmt.Errorf("invalid trim step of %s: %w", elem.Name, err)
		}
		return device.NewTrimDAC(elem.Name, elem.Nodes, elem.Value, step, elem.Params["reg"]), nil

	case "I":
		return device.NewDCCurrentSource(elem.Name, elem.Nodes, elem.Value), nil

	case "V":
		switch elem.Params["type"] {
		case "dc":
			return device.NewDCVoltageSource(elem.Name, elem.Nodes, elem.Value), nil

		case "pulse":
			p, err := parseValues(elem.Params["pulse"], 7, "PULSE")
			if err != nil {
				return nil, err
			}
			return device.NewPulseVoltageSource(elem.Name, elem.Nodes, p[0], p[1], p[2], p[3], p[4], p[5], p[6]), nil

		case "pwl":
			times, values, err := parsePWLParams(elem.Params["pwl"])
			if err != nil {
				return nil, err
			}
			return device.NewPWLVoltageSource(elem.Name, elem.Nodes, times, values), nil

		default:
			return nil, fmt.Errorf("unsupported voltage source type: %s", elem.Params["type"])
		}
	}
	return nil, fmt.Errorf("unsupported device type: %s", elem.Type)
}

// parseValues parses exactly n values: v1 v2 delay rise fall width period
// for PULSE.
func parseValues(params string, n int, what string) ([]float64, error) {
	fields := strings.Fields(params)
	if len(fields) != n {
		return nil, fmt.Errorf("%s needs %d parameters, got %d", what, n, len(fields))
	}
	values := make([]float64, n)
	for i, f := range fields {
		v, err := ParseValue(f)
		if err != nil {
			return nil, fmt.Errorf("invalid %s parameter %d: %w", what, i+1, err)
		}
		values[i] = v
	}
	return values, nil
}

func parsePWLParams(params string) (times []float64, values []float64, err error) {
	pwlParams := strings.Fields(params)
	if len(pwlParams) < 4 || len(pwlParams)%2 != 0 {
		return nil, nil, fmt.Errorf("insufficient or invalid PWL parameters, need pairs of time-value")
	}

	numPoints := len(pwlParams) / 2
	times = make([]float64, numPoints)
	values = make([]float64, numPoints)

	for i := 0; i < numPoints; i++ {
		times[i], err = ParseValue(pwlParams[2*i])
		if err != nil {
			return nil, nil, fmt.Errorf("invalid PWL time[%d]: %w", i, err)
		}
		values[i], err = ParseValue(pwlParams[2*i+1])
		if err != nil {
			return nil, nil, fmt.Errorf("invalid PWL value[%d]: %w", i, err)
		}

		if i > 0 && times[i] <= times[i-1] {
			return nil, nil, fmt.Errorf("PWL time points must be strictly increasing")
		}
	}

	return times, values, nil
}
