package provision

import (
	"context"
	"strings"

	sw "github.com/filanov/stateswitch"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/pkg/errors"
)

const (
	// gate states
	//
	// states a server is classified into by its operational status
	StateProvisioning sw.State = "provisioning"
	StateComplete     sw.State = "complete"
	StateIneligible   sw.State = "ineligible"
	StateRendered     sw.State = "rendered"

	Render sw.TransitionType = "render"
)

var (
	ErrInvalidTransitionArgs = errors.New("expected a renderArgs{} type")
)

// Gate decides whether a provisioning script is rendered for a server from its
// operational status, status comparisons are case insensitive.
type Gate struct {
	sm              sw.StateMachine
	completeStatus  string
	provisionStatus string
}

// gateSwitch holds the state of a single render attempt.
type gateSwitch struct {
	state sw.State
}

func (g *gateSwitch) State() sw.State {
	return g.state
}

func (g *gateSwitch) SetState(state sw.State) error {
	g.state = state
	return nil
}

// renderArgs is passed to the render transition.
type renderArgs struct {
	ctx       context.Context
	server    *model.ServerRecord
	zone      *model.ProvisionZone
	generator Generator

	script string
}

// NewGate returns a Gate, empty statuses fall back to the defaults.
func NewGate(completeStatus, provisionStatus string) *Gate {
	if completeStatus == "" {
		completeStatus = DefaultCompleteStatus
	}

	if provisionStatus == "" {
		provisionStatus = DefaultProvisionStatus
	}

	g := &Gate{
		sm:              sw.NewStateMachine(),
		completeStatus:  completeStatus,
		provisionStatus: provisionStatus,
	}

	g.sm.AddTransition(sw.TransitionRule{
		TransitionType:   Render,
		SourceStates:     sw.States{StateProvisioning},
		DestinationState: StateRendered,
		Condition:        nil,
		Transition:       g.render,
		PostTransition:   nil,
	})

	for _, doc := range []sw.StateDoc{
		{Name: string(StateProvisioning), Description: "The server operational status equals the provisioning status."},
		{Name: string(StateComplete), Description: "The server operational status equals the complete status, the server is already provisioned."},
		{Name: string(StateIneligible), Description: "The server is in neither status and is not provisioned."},
		{Name: string(StateRendered), Description: "The provisioning script was rendered."},
	} {
		g.sm.DescribeState(sw.State(doc.Name), doc)
	}

	g.sm.DescribeTransitionType(Render, sw.TransitionTypeDoc{
		Name:        string(Render),
		Description: "Render the provisioning script for a server in the provisioning state.",
	})

	return g
}

// Classify returns the gate state for the operational status.
func (g *Gate) Classify(status string) sw.State {
	switch {
	case strings.EqualFold(status, g.completeStatus):
		return StateComplete
	case strings.EqualFold(status, g.provisionStatus):
		return StateProvisioning
	default:
		return StateIneligible
	}
}

// Check returns ErrAlreadyProvisioned or ErrNotEligible when the server is not to be provisioned.
func (g *Gate) Check(status string) error {
	return rejection(g.Classify(status), status)
}

// rejection returns the error for a render attempted in state, nil for StateProvisioning.
func rejection(state sw.State, status string) error {
	switch state {
	case StateProvisioning:
		return nil
	case StateComplete:
		return errors.Wrap(ErrAlreadyProvisioned, "operational status "+status)
	default:
		return errors.Wrap(ErrNotEligible, "operational status "+status)
	}
}

func (g *Gate) render(_ sw.StateSwitch, args sw.TransitionArgs) error {
	a, ok := args.(*renderArgs)
	if !ok {
		return ErrInvalidTransitionArgs
	}

	script, err := a.generator.ProvisionScript(a.ctx, a.server, a.zone)
	if err != nil {
		return err
	}

	a.script = script

	return nil
}

// Render renders the provisioning script when the server is in the provisioning state.
func (g *Gate) Render(ctx context.Context, server *model.ServerRecord, zone *model.ProvisionZone, generator Generator) (string, error) {
	if server == nil {
		return "", ErrNoServer
	}

	state := &gateSwitch{state: g.Classify(server.OperationalStatus)}
	args := &renderArgs{ctx: ctx, server: server, zone: zone, generator: generator}

	// only StateProvisioning has a Render transition
	if err := g.sm.Run(Render, state, args); err != nil {
		if errors.Is(err, sw.NoConditionPassedToRunTransaction) {
			return "", rejection(state.State(), server.OperationalStatus)
		}

		return "", err
	}

	return args.script, nil
}

// DescribeAsJSON returns a JSON output describing the gate statemachine.
func (g *Gate) DescribeAsJSON() ([]byte, error) {
	return g.sm.AsJSON()
}
