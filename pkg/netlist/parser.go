// Package netlist reads the SPICE-like description of an embedding circuit.
//
// The first line is a title. Lines starting with '*' are comments and a
// leading '+' continues the previous line. Elements are
//
//	R|L|C name n1 n2 value [tc1=x tc2=y]
//	V|I name n+ n- [DC] value [HARM k mag phase]...
//
// and the directive ".junction n+ n-" names the port the junction connects to.
package netlist

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PaulKGrimes/supermix-sub001/pkg/device"
)

var (
	// ErrSyntax is wrapped by every parse error.
	ErrSyntax = errors.New("netlist syntax error")
	// ErrDuplicate reports an element name used twice.
	ErrDuplicate = errors.New("duplicate element")
)

type NetlistData struct {
	Elements []Element      // Circuit elements
	Nodes    map[string]int // Node name and first-seen order
	Port     [2]string      // Junction terminals from .junction
	HasPort  bool
	Temp     float64 // Physical temperature from .temp, 0 if unset
	Title    string  // Circuit title
}

type Element struct {
	Type      string            // Part type (R, L, C, V, I)
	Name      string            // Part name
	Nodes     []string          // Node names
	Value     float64           // Part value, DC value for sources
	Params    map[string]string // Parameter values
	Harmonics []device.Harmonic // Source phasors
}

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"MEG": 1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var (
	valueRe = regexp.MustCompile(`^([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)(meg|MEG|[TGKkmunpf])?(Hz|ohm|Ohm|V|A|F|H|s)?$`)
	spaceRe = regexp.MustCompile(`\s+`)
)

func syntaxError(line int, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, line, fmt.Sprintf(format, args...))
}

func Parse(input string) (*NetlistData, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	netlistData := &NetlistData{
		Nodes: make(map[string]int),
	}
	names := make(map[string]bool)

	// Title or comment
	lineNo := 0
	if scanner.Scan() {
		lineNo++
		netlistData.Title = strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "*"))
	}

	var currentLine string
	currentNo := 0
	flush := func() error {
		if currentLine == "" {
			return nil
		}
		err := parseLine(netlistData, names, currentLine, currentNo)
		currentLine = ""
		return err
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		// Inline comment
		if idx := strings.Index(line, "*"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if strings.HasPrefix(line, "+") {
			if currentLine == "" {
				return nil, syntaxError(lineNo, "continuation without a line to continue")
			}
			currentLine += " " + strings.TrimSpace(line[1:])
			continue
		}

		if err := flush(); err != nil {
			return nil, err
		}
		currentLine = line
		currentNo = lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading netlist: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if netlistData.HasPort {
		for _, n := range netlistData.Port {
			if _, ok := netlistData.Nodes[n]; !ok && n != "0" {
				return nil, fmt.Errorf("%w: junction node %q is not connected to any element", ErrSyntax, n)
			}
		}
	}
	return netlistData, nil
}

func parseLine(netlistData *NetlistData, names map[string]bool, line string, lineNo int) error {
	line = spaceRe.ReplaceAllString(line, " ")

	if strings.HasPrefix(line, ".") {
		return parseDotOperator(netlistData, line, lineNo)
	}

	element, err := parseElement(line, lineNo)
	if err != nil {
		return err
	}
	key := strings.ToUpper(element.Name)
	if names[key] {
		return fmt.Errorf("%w: line %d: %s", ErrDuplicate, lineNo, element.Name)
	}
	names[key] = true

	netlistData.Elements = append(netlistData.Elements, *element)
	for _, node := range element.Nodes {
		if _, exists := netlistData.Nodes[node]; !exists {
			netlistData.Nodes[node] = len(netlistData.Nodes)
		}
	}
	return nil
}

// Parse .junction, .temp, .end
func parseDotOperator(netlistData *NetlistData, line string, lineNo int) error {
	fields := strings.Fields(line)

	switch strings.ToLower(fields[0]) {
	case ".junction":
		if len(fields) != 3 {
			return syntaxError(lineNo, ".junction needs two nodes")
		}
		if fields[1] == fields[2] {
			return syntaxError(lineNo, ".junction nodes must differ")
		}
		if netlistData.HasPort {
			return syntaxError(lineNo, "second .junction directive")
		}
		netlistData.Port = [2]string{fields[1], fields[2]}
		netlistData.HasPort = true

	case ".temp":
		if len(fields) != 2 {
			return syntaxError(lineNo, ".temp needs one value")
		}
		temp, err := ParseValue(fields[1])
		if err != nil || temp < 0 {
			return syntaxError(lineNo, "invalid temperature %q", fields[1])
		}
		netlistData.Temp = temp

	case ".end":

	default:
		return syntaxError(lineNo, "unsupported directive %s", fields[0])
	}
	return nil
}

// Parse circuit element
func parseElement(line string, lineNo int) (*Element, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, syntaxError(lineNo, "invalid element format: %s", line)
	}

	elem := &Element{
		Name:   fields[0],
		Type:   strings.ToUpper(string(fields[0][0])),
		Nodes:  []string{fields[1], fields[2]},
		Params: make(map[string]string),
	}
	if elem.Nodes[0] == elem.Nodes[1] {
		return nil, syntaxError(lineNo, "%s: both terminals on node %s", elem.Name, elem.Nodes[0])
	}

	switch elem.Type {
	case "V", "I":
		if err := parseSource(elem, fields[3:], lineNo); err != nil {
			return nil, err
		}

	case "R", "L", "C":
		value, err := ParseValue(fields[3])
		if err != nil {
			return nil, syntaxError(lineNo, "%s: %v", elem.Name, err)
		}
		if value < 0 || (elem.Type == "R" && value == 0) {
			return nil, syntaxError(lineNo, "%s: invalid value %s", elem.Name, fields[3])
		}
		elem.Value = value

		for _, f := range fields[4:] {
			pair := strings.SplitN(f, "=", 2)
			if len(pair) != 2 {
				return nil, syntaxError(lineNo, "%s: unexpected field %s", elem.Name, f)
			}
			elem.Params[strings.ToLower(pair[0])] = pair[1]
		}

	default:
		return nil, syntaxError(lineNo, "unsupported element type: %s", elem.Type)
	}
	return elem, nil
}

// parseSource reads [DC] value and any number of HARM k mag phase groups.
func parseSource(elem *Element, words []string, lineNo int) error {
	for i := 0; i < len(words); i++ {
		switch strings.ToUpper(words[i]) {
		case "DC":
			if i+1 >= len(words) {
				return syntaxError(lineNo, "%s: missing DC value", elem.Name)
			}
			value, err := ParseValue(words[i+1])
			if err != nil {
				return syntaxError(lineNo, "%s: %v", elem.Name, err)
			}
			elem.Value = value
			i++

		case "HARM":
			if i+3 >= len(words) {
				return syntaxError(lineNo, "%s: HARM needs harmonic, magnitude and phase", elem.Name)
			}
			k, err := strconv.Atoi(words[i+1])
			if err != nil || k < 1 {
				return syntaxError(lineNo, "%s: invalid harmonic %s", elem.Name, words[i+1])
			}
			mag, err := ParseValue(words[i+2])
			if err != nil {
				return syntaxError(lineNo, "%s: invalid magnitude: %v", elem.Name, err)
			}
			phase, err := ParseValue(words[i+3])
			if err != nil {
				return syntaxError(lineNo, "%s: invalid phase: %v", elem.Name, err)
			}
			elem.Harmonics = append(elem.Harmonics, device.Harmonic{K: k, Mag: mag, Phase: phase})
			i += 3

		default:
			if i != 0 {
				return syntaxError(lineNo, "%s: unexpected field %s", elem.Name, words[i])
			}
			value, err := ParseValue(words[i])
			if err != nil {
				return syntaxError(lineNo, "%s: %v", elem.Name, err)
			}
			elem.Value = value
		}
	}
	return nil
}

// ParseValue - Parse value and factor. 1k -> 1000, 230GHz -> 2.3e11
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	// factor
	if multiplier, ok := unitMap[matches[2]]; ok {
		num *= multiplier
	}
	return num, nil
}

func CreateDevice(elem Element) (device.Device, error) {
	switch elem.Type {
	case "R":
		r := device.NewResistor(elem.Name, elem.Nodes, elem.Value)
		for name, target := range map[string]*float64{"tc1": &r.Tc1, "tc2": &r.Tc2, "tnom": &r.Tnom} {
			s, ok := elem.Params[name]
			if !ok {
				continue
			}
			v, err := ParseValue(s)
			if err != nil {
				return nil, fmt.Errorf("resistor %s: %s: %w", elem.Name, name, err)
			}
			*target = v
		}
		for name := range elem.Params {
			if name != "tc1" && name != "tc2" && name != "tnom" {
				return nil, fmt.Errorf("resistor %s: unknown parameter %s", elem.Name, name)
			}
		}
		return r, nil

	case "L":
		if len(elem.Params) > 0 {
			return nil, fmt.Errorf("inductor %s: parameters not supported", elem.Name)
		}
		return device.NewInductor(elem.Name, elem.Nodes, elem.Value), nil

	case "C":
		if len(elem.Params) > 0 {
			return nil, fmt.Errorf("capacitor %s: parameters not supported", elem.Name)
		}
		return device.NewCapacitor(elem.Name, elem.Nodes, elem.Value), nil

	case "V":
		return device.NewVoltageSource(elem.Name, elem.Nodes, elem.Value, elem.Harmonics), nil

	case "I":
		return device.NewCurrentSource(elem.Name, elem.Nodes, elem.Value, elem.Harmonics), nil
	}
	return nil, fmt.Errorf("unsupported device type: %s", elem.Type)
}
