package workflow

// Edge is a transition in the run's state machine.
type Edge struct {
	From      Phase  `json:"from" yaml:"from"`
	To        Phase  `json:"to" yaml:"to"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// GraphDescription is the static structure of a run.
type GraphDescription struct {
	Nodes []Phase `json:"nodes" yaml:"nodes"`
	Edges []Edge  `json:"edges" yaml:"edges"`
	Entry Phase   `json:"entry" yaml:"entry"`
}

// Graph describes every phase and the transitions Transition can take.
func Graph() GraphDescription {
	return GraphDescription{
		Nodes: []Phase{PhasePlan, PhaseCode, PhaseTest, PhaseDebug, PhaseDocument, PhaseSucceeded, PhaseFailedExhausted},
		Edges: []Edge{
			{From: PhasePlan, To: PhaseCode},
			{From: PhaseCode, To: PhaseTest},
			{From: PhaseTest, To: PhaseDocument, Condition: "pass"},
			{From: PhaseTest, To: PhaseDebug, Condition: "fail, iteration < max"},
			{From: PhaseTest, To: PhaseFailedExhausted, Condition: "fail, iteration = max"},
			{From: PhaseDebug, To: PhaseCode},
			{From: PhaseDocument, To: PhaseSucceeded},
		},
		Entry: PhasePlan,
	}
}
