package scenario

// Labels translates between human technology labels and the variable names
// used on a cube's first axis.
type Labels struct {
	toVariable map[string]string
	toLabel    map[string]string
}

// NewLabels builds a bidirectional table from label -> variable pairs.
func NewLabels(m map[string]string) *Labels {
	l := &Labels{
		toVariable: make(map[string]string, len(m)),
		toLabel:    make(map[string]string, len(m)),
	}
	for label, variable := range m {
		l.toVariable[label] = variable
		l.toLabel[variable] = label
	}
	return l
}

// Variable returns the cube variable of a label.
func (l *Labels) Variable(label string) (string, bool) {
	if l == nil {
		return "", false
	}
	v, ok := l.toVariable[label]
	return v, ok
}

// Label returns the human label of a cube variable.
func (l *Labels) Label(variable string) (string, bool) {
	if l == nil {
		return "", false
	}
	v, ok := l.toLabel[variable]
	return v, ok
}

// Len returns the number of pairs.
func (l *Labels) Len() int {
	if l == nil {
		return 0
	}
	return len(l.toVariable)
}

// Scenario bundles the tables the transform reads.
type Scenario struct {
	Name string
	Year int

	// Supply has axes (variable, region, time) and holds each technology's
	// fraction of regional electricity supply.
	Supply       *Cube
	SupplyLabels *Labels

	// Efficiency has axes (variable, region, time).
	Efficiency       *Cube
	EfficiencyLabels *Labels

	// Emission has axes (sector, region, pollutant) in kg per kWh.
	Emission       *Cube
	EmissionLabels *Labels
}

// Regions returns the supply table's regions in order.
func (s *Scenario) Regions() []string { return s.Supply.Axis(1).Labels() }

// Variables returns the supply table's variables in order.
func (s *Scenario) Variables() []string { return s.Supply.Axis(0).Labels() }
