package flow

// UserChannels is the number of pass-through channels on a User node.
const UserChannels = 4

// initUser declares four pass-through channels A-D. Each channel can also be
// fired by hand; FireTrigger broadcasts such a fire to the same node in every
// voice so that one control reaches all of them.
func (n *Node) initUser() {
	n.defineModulations(make([]float64, UserChannels), []string{"A", "B", "C", "D"})
	n.defineModulationOutputs([]string{"A", "B", "C", "D"})
	n.manual = make([]bool, UserChannels)
}

func (n *Node) processUser() {
	for i := 0; i < UserChannels; i++ {
		n.setModulationOutput(i, n.modulate(i))
		if n.isTriggered(i) || n.manual[i] {
			n.updateTrigger(i)
		}
		n.manual[i] = false
	}
}
