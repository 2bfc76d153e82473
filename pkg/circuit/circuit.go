package circuit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edp1096/trimbench/pkg/device"
	"github.com/edp1096/trimbench/pkg/matrix"
	"github.com/edp1096/trimbench/pkg/netlist"
)

type Circuit struct {
	name      string
	nodeMap   map[string]int
	branchMap map[string]int
	devices   []device.Device
	byName    map[string]device.Device
	registers map[string][]device.Register
	matrix    *matrix.CircuitMatrix
	Status    *device.CircuitStatus
}

func New(name string) *Circuit {
	return &Circuit{
		name:      name,
		nodeMap:   make(map[string]int),
		branchMap: make(map[string]int),
		registers: make(map[string][]device.Register),
		byName:    make(map[string]device.Device),
		Status:    &device.CircuitStatus{Temp: device.RoomTemp},
	}
}

// Build assembles a circuit from parsed netlist elements: node and branch
// maps, the MNA matrix and the devices.
func Build(name string, elements []netlist.Element) (*Circuit, error) {
	c := New(name)
	if err := c.AssignNodeBranchMaps(elements); err != nil {
		return nil, err
	}
	if err := c.CreateMatrix(); err != nil {
		return nil, err
	}
	if err := c.SetupDevices(elements); err != nil {
		c.Destroy()
		return nil, err
	}
	return c, nil
}

func (c *Circuit) AssignNodeBranchMaps(elements []netlist.Element) error {
	names := make(map[string]bool, len(elements))
	for _, elem := range elements {
		if names[elem.Name] {
			return fmt.Errorf("duplicate element name %s", elem.Name)
		}
		names[elem.Name] = true

		for _, nodeName := range elem.Nodes {
			if netlist.IsGround(nodeName) {
				continue
			}
			if _, exists := c.nodeMap[nodeName]; !exists {
				c.nodeMap[nodeName] = len(c.nodeMap) + 1
			}
		}
	}
	if len(c.nodeMap) == 0 {
		return fmt.Errorf("circuit %s has no nodes besides ground", c.name)
	}

	branchStart := len(c.nodeMap) + 1
	for _, elem := range elements {
		if elem.Type == "V" {
			c.branchMap[elem.Name] = branchStart
			branchStart++
		}
	}

	return nil
}

func (c *Circuit) CreateMatrix() error {
	m, err := matrix.NewMatrix(len(c.nodeMap) + len(c.branchMap))
	if err != nil {
		return err
	}
	c.matrix = m
	return nil
}

func (c *Circuit) SetupDevices(elements []netlist.Element) error {
	for _, elem := range elements {
		dev, err := netlist.CreateDevice(elem)
		if err != nil {
			return fmt.Errorf("creating device %s: %w", elem.Name, err)
		}

		nodeIndices := make([]int, len(elem.Nodes))
		for i, nodeName := range elem.Nodes {
			if netlist.IsGround(nodeName) {
				continue
			}
			nodeIndices[i] = c.nodeMap[nodeName]
		}
		dev.SetNodes(nodeIndices)

		if v, ok := dev.(*device.VoltageSource); ok {
			v.SetBranchIndex(c.branchMap[elem.Name])
		}
		if r, ok := dev.(device.Register); ok {
			c.registers[r.RegisterName()] = append(c.registers[r.RegisterName()], r)
		}

		c.devices = append(c.devices, dev)
		c.byName[dev.GetName()] = dev
	}

	// Initial stamp fixes the sparse structure
	if err := c.Stamp(&device.CircuitStatus{Temp: device.RoomTemp}); err != nil {
		return fmt.Errorf("initial stamping failed: %w", err)
	}
	c.matrix.SetupElements()

	return nil
}

func (c *Circuit) Stamp(status *device.CircuitStatus) error {
	for _, dev := range c.devices {
		if err := dev.Stamp(c.matrix, status); err != nil {
			return fmt.Errorf("stamping device %s: %w", dev.GetName(), err)
		}
	}
	return nil
}

// Update commits the current solution as the accepted time point.
func (c *Circuit) Update(status *device.CircuitStatus) {
	c.Status = status
	solution := c.matrix.Solution()
	for _, dev := range c.devices {
		if td, ok := dev.(device.TimeDependent); ok {
			td.UpdateState(solution, status)
		}
	}
}

func (c *Circuit) GetMatrix() *matrix.CircuitMatrix {
	return c.matrix
}

func (c *Circuit) GetNodeMap() map[string]int {
	return c.nodeMap
}

func (c *Circuit) GetBranchMap() map[string]int {
	return c.branchMap
}

func (c *Circuit) GetDevices() []device.Device {
	return c.devices
}

// NodeNames returns the non-ground node names in sorted order.
func (c *Circuit) NodeNames() []string {
	names := make([]string, 0, len(c.nodeMap))
	for name := range c.nodeMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Circuit) HasNode(name string) bool {
	if netlist.IsGround(name) {
		return true
	}
	_, ok := c.nodeMap[name]
	return ok
}

func (c *Circuit) GetSolution() map[string]float64 {
	solution := make(map[string]float64)
	matrixSolution := c.matrix.Solution()

	for name, idx := range c.nodeMap {
		solution[fmt.Sprintf("V(%s)", name)] = matrixSolution[idx]
	}

	for name, idx := range c.branchMap {
		solution[fmt.Sprintf("I(%s)", name)] = -matrixSolution[idx]
	}

	for _, dev := range c.devices {
		if r, ok := dev.(*device.Resistor); ok {
			solution[fmt.Sprintf("I(%s)", r.GetName())] = r.Current(matrixSolution, c.Status.Temp)
		}
	}

	return solution
}

// NodeVoltage returns the voltage of a named node; ground is 0.
func (c *Circuit) NodeVoltage(name string) (float64, error) {
	if netlist.IsGround(name) {
		return 0, nil
	}
	idx, ok := c.nodeMap[name]
	if !ok {
		return 0, fmt.Errorf("unknown node %s", name)
	}
	return c.matrix.Solution()[idx], nil
}

// NodeCurrent returns the current leaving a named node through the
// resistors attached to it.
func (c *Circuit) NodeCurrent(name string) (float64, error) {
	if netlist.IsGround(name) {
		return 0, fmt.Errorf("node current of ground is undefined")
	}
	idx, ok := c.nodeMap[name]
	if !ok {
		return 0, fmt.Errorf("unknown node %s", name)
	}

	solution := c.matrix.Solution()
	var total float64
	for _, dev := range c.devices {
		r, ok := dev.(*device.Resistor)
		if !ok {
			continue
		}
		nodes := r.GetNodes()
		switch idx {
		case nodes[0]:
			total += r.Current(solution, c.Status.Temp)
		case nodes[1]:
			total -= r.Current(solution, c.Status.Temp)
		}
	}
	return total, nil
}

// Registers returns the devices bound to a digital register.
func (c *Circuit) Registers(name string) []device.Register {
	return c.registers[name]
}

// Drivable returns the source device with the given element name.
func (c *Circuit) Drivable(name string) (device.Drivable, bool) {
	d, ok := c.byName[name].(device.Drivable)
	return d, ok
}

// Terminal resolves a device terminal name such as "R1.p" or "C1.n" to the
// device and the terminal index.
func (c *Circuit) Terminal(name string) (device.Device, int, bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return nil, 0, false
	}
	dev, ok := c.byName[name[:i]]
	if !ok {
		return nil, 0, false
	}
	switch strings.ToLower(name[i+1:]) {
	case "p":
		return dev, 0, true
	case "n":
		return dev, 1, true
	}
	return nil, 0, false
}

// HasProbe reports whether name is a node or a device terminal.
func (c *Circuit) HasProbe(name string) bool {
	if c.HasNode(name) {
		return true
	}
	_, _, ok := c.Terminal(name)
	return ok
}

// ProbeVoltage returns the voltage of a node or a device terminal.
func (c *Circuit) ProbeVoltage(name string) (float64, error) {
	if c.HasNode(name) {
		return c.NodeVoltage(name)
	}
	dev, pin, ok := c.Terminal(name)
	if !ok {
		return 0, fmt.Errorf("unknown probe point %s", name)
	}
	n := dev.GetNodes()[pin]
	if n == 0 {
		return 0, nil
	}
	return c.matrix.Solution()[n], nil
}

// ProbeCurrent returns NodeCurrent for a node, and for a device terminal
// the current flowing into the device through that terminal.
func (c *Circuit) ProbeCurrent(name string) (float64, error) {
	if c.HasNode(name) {
		return c.NodeCurrent(name)
	}
	dev, pin, ok := c.Terminal(name)
	if !ok {
		return 0, fmt.Errorf("unknown probe point %s", name)
	}

	solution := c.matrix.Solution()
	var current float64
	switch d := dev.(type) {
	case *device.Resistor:
		current = d.Current(solution, c.Status.Temp)
	case *device.Capacitor:
		current = d.Current()
	case *device.VoltageSource:
		current = solution[d.BranchIndex()]
	case *device.CurrentSource:
		current = d.GetValue()
	case *device.TrimDAC:
		current = d.Output()
	default:
		return 0, fmt.Errorf("terminal current of %s %s is not available", dev.GetType(), dev.GetName())
	}
	if pin == 1 {
		current = -current
	}
	return current, nil
}

func (c *Circuit) Destroy() {
	if c.matrix != nil {
		c.matrix.Destroy()
	}
}

func (c *Circuit) Name() string {
	return c.name
}

func (c *Circuit) GetNumNodes() int {
	return len(c.nodeMap)
}
