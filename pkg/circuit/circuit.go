// Package circuit solves the linear embedding network seen by a junction.
// The network is reduced to a Thevenin equivalent at the junction port for
// each harmonic of the local oscillator.
package circuit

import (
	"errors"
	"fmt"
	"math/cmplx"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/PaulKGrimes/supermix-sub001/pkg/device"
	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
	"github.com/PaulKGrimes/supermix-sub001/pkg/netlist"
	"github.com/PaulKGrimes/supermix-sub001/pkg/statetag"
)

// DefaultGmin is the conductance tied from every node to ground.
const DefaultGmin = 1e-12

var (
	// ErrNoPort is returned when the netlist has no .junction directive.
	ErrNoPort = errors.New("circuit: no junction port")
	// ErrUnknownSource is returned by SetSource for a name that is not an
	// independent source.
	ErrUnknownSource = errors.New("circuit: unknown source")
)

type theveninKey struct {
	freq     float64
	harmonic int
}

type thevenin struct {
	v, z complex128
}

// Embedding is the linear circuit around a junction.
type Embedding struct {
	name      string
	nodeMap   map[string]int
	branchMap map[string]int
	devices   []device.Device
	sources   map[string]device.Source
	port      [2]int
	numNodes  int
	matrix    *matrix.CircuitMatrix
	gmin      float64
	temp      float64
	tag       statetag.Tag
	cache     map[theveninKey]thevenin
	logger    *log.Logger
}

type Option func(*Embedding)

// WithGmin overrides DefaultGmin. Zero disables it.
func WithGmin(g float64) Option {
	return func(e *Embedding) { e.gmin = g }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Embedding) { e.logger = l }
}

func isGround(name string) bool {
	return name == "0" || strings.EqualFold(name, "gnd")
}

// New builds an embedding from parsed netlist data.
func New(data *netlist.NetlistData, opts ...Option) (*Embedding, error) {
	if !data.HasPort {
		return nil, ErrNoPort
	}
	e := &Embedding{
		name:      data.Title,
		nodeMap:   make(map[string]int),
		branchMap: make(map[string]int),
		sources:   make(map[string]device.Source),
		gmin:      DefaultGmin,
		temp:      data.Temp,
		cache:     make(map[theveninKey]thevenin),
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.assignNodeBranchMaps(data.Elements)
	if err := e.setupDevices(data.Elements); err != nil {
		return nil, err
	}
	for i, name := range data.Port {
		if !isGround(name) {
			e.port[i] = e.nodeMap[name]
		}
	}

	m, err := matrix.NewMatrix(len(e.nodeMap)+len(e.branchMap), true)
	if err != nil {
		return nil, fmt.Errorf("creating embedding matrix: %w", err)
	}
	e.matrix = m
	e.tag = statetag.New()
	return e, nil
}

// Parse builds an embedding from netlist text.
func Parse(text string, opts ...Option) (*Embedding, error) {
	data, err := netlist.Parse(text)
	if err != nil {
		return nil, err
	}
	return New(data, opts...)
}

// Load builds an embedding from a netlist file.
func Load(path string, opts ...Option) (*Embedding, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading netlist: %w", err)
	}
	e, err := Parse(string(text), opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}

func (e *Embedding) assignNodeBranchMaps(elements []netlist.Element) {
	for _, elem := range elements {
		for _, nodeName := range elem.Nodes {
			if isGround(nodeName) {
				continue
			}
			if _, exists := e.nodeMap[nodeName]; !exists {
				e.nodeMap[nodeName] = len(e.nodeMap) + 1
			}
		}
	}

	branchStart := len(e.nodeMap) + 1
	for _, elem := range elements {
		if elem.Type == "V" || elem.Type == "L" {
			e.branchMap[elem.Name] = branchStart
			branchStart++
		}
	}
	e.numNodes = len(e.nodeMap)
}

func (e *Embedding) setupDevices(elements []netlist.Element) error {
	for _, elem := range elements {
		dev, err := netlist.CreateDevice(elem)
		if err != nil {
			return fmt.Errorf("creating device %s: %w", elem.Name, err)
		}

		nodeIndices := make([]int, len(elem.Nodes))
		for i, nodeName := range elem.Nodes {
			if !isGround(nodeName) {
				nodeIndices[i] = e.nodeMap[nodeName]
			}
		}
		dev.SetNodes(nodeIndices)

		if b, ok := dev.(device.BranchDevice); ok {
			b.SetBranchIndex(e.branchMap[elem.Name])
		}
		if s, ok := dev.(device.Source); ok {
			e.sources[strings.ToUpper(elem.Name)] = s
		}
		e.devices = append(e.devices, dev)
	}
	return nil
}

func (e *Embedding) Name() string { return e.name }

// Tag changes whenever a source value changes.
func (e *Embedding) Tag() statetag.Tag { return e.tag }

func (e *Embedding) GetDevices() []device.Device { return e.devices }

func (e *Embedding) GetNodeMap() map[string]int { return e.nodeMap }

// Sources lists the independent source names in sorted order.
func (e *Embedding) Sources() []string {
	names := make([]string, 0, len(e.sources))
	for _, s := range e.sources {
		names = append(names, s.GetName())
	}
	sort.Strings(names)
	return names
}

// Source returns the DC value of the named source.
func (e *Embedding) Source(name string) (float64, error) {
	s, ok := e.sources[strings.ToUpper(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return s.GetValue(), nil
}

// SetSource changes the DC value of the named source and invalidates every
// cached Thevenin equivalent.
func (e *Embedding) SetSource(name string, dc float64) error {
	s, ok := e.sources[strings.ToUpper(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	if s.GetValue() == dc {
		return nil
	}
	s.SetValue(dc)
	clear(e.cache)
	e.tag = statetag.New()
	return nil
}

func (e *Embedding) stamp(status *device.CircuitStatus) error {
	e.matrix.Clear()
	for _, dev := range e.devices {
		if err := dev.Stamp(e.matrix, status); err != nil {
			return fmt.Errorf("stamping device %s: %w", dev.GetName(), err)
		}
	}
	e.matrix.LoadGmin(status.Gmin, e.numNodes)
	return nil
}

func (e *Embedding) portVoltage() complex128 {
	var v complex128
	if e.port[0] != 0 {
		v += e.matrix.ComplexSolution(e.port[0])
	}
	if e.port[1] != 0 {
		v -= e.matrix.ComplexSolution(e.port[1])
	}
	return v
}

// Thevenin returns the open-circuit voltage and source impedance seen at the
// junction port at freq, with sources set to their phasors at harmonic. A
// negative frequency returns the conjugates of the positive one.
func (e *Embedding) Thevenin(freq float64, harmonic int) (vth, zth complex128, err error) {
	if freq < 0 {
		vth, zth, err = e.Thevenin(-freq, -harmonic)
		return cmplx.Conj(vth), cmplx.Conj(zth), err
	}

	key := theveninKey{freq, harmonic}
	if th, ok := e.cache[key]; ok {
		return th.v, th.z, nil
	}

	status := &device.CircuitStatus{
		Frequency: freq,
		Harmonic:  harmonic,
		Gmin:      e.gmin,
		Temp:      e.temp,
	}
	if err := e.stamp(status); err != nil {
		return 0, 0, err
	}
	if err := e.matrix.Factor(); err != nil {
		return 0, 0, fmt.Errorf("embedding at %g Hz: %w", freq, err)
	}

	// Open circuit voltage from the sources.
	if err := e.matrix.Solve(); err != nil {
		return 0, 0, fmt.Errorf("embedding at %g Hz: %w", freq, err)
	}
	vth = e.portVoltage()

	// Unit current into the port with sources off, on the same factorization.
	e.matrix.ClearRHS()
	if e.port[0] != 0 {
		e.matrix.AddComplexRHS(e.port[0], 1, 0)
	}
	if e.port[1] != 0 {
		e.matrix.AddComplexRHS(e.port[1], -1, 0)
	}
	if err := e.matrix.Solve(); err != nil {
		return 0, 0, fmt.Errorf("embedding at %g Hz: %w", freq, err)
	}
	zth = e.portVoltage()

	e.cache[key] = thevenin{vth, zth}
	e.logger.Debug("embedding", "freq", freq, "harmonic", harmonic, "vth", vth, "zth", zth)
	return vth, zth, nil
}

// Impedance returns the source impedance at the port at freq.
func (e *Embedding) Impedance(freq float64) (complex128, error) {
	_, z, err := e.Thevenin(freq, 0)
	return z, err
}

// NodeVoltages solves the circuit with the port open and returns every node
// voltage at freq for the given harmonic.
func (e *Embedding) NodeVoltages(freq float64, harmonic int) (map[string]complex128, error) {
	status := &device.CircuitStatus{
		Frequency: freq,
		Harmonic:  harmonic,
		Gmin:      e.gmin,
		Temp:      e.temp,
	}
	if err := e.stamp(status); err != nil {
		return nil, err
	}
	if err := e.matrix.Solve(); err != nil {
		return nil, fmt.Errorf("embedding at %g Hz: %w", freq, err)
	}
	voltages := make(map[string]complex128, len(e.nodeMap))
	for name, idx := range e.nodeMap {
		voltages[name] = e.matrix.ComplexSolution(idx)
	}
	return voltages, nil
}

// Destroy releases the sparse matrix.
func (e *Embedding) Destroy() {
	if e.matrix != nil {
		e.matrix.Destroy()
		e.matrix = nil
	}
}
