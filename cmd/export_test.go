package cmd

import (
	"encoding/json"
	"testing"

	sw "github.com/filanov/stateswitch"
	"github.com/metal-toolbox/bootline/internal/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emicklei/dot"
)

func TestAsGraph(t *testing.T) {
	j, err := provision.NewGate("", "").DescribeAsJSON()
	require.Nil(t, err)

	s := &sw.StateMachineJSON{}
	require.Nil(t, json.Unmarshal(j, s))

	graph := dot.MermaidGraph(asGraph(s), dot.MermaidTopDown)
	assert.Contains(t, graph, string(provision.StateProvisioning))
	assert.Contains(t, graph, string(provision.StateRendered))
}
