package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	fsm "github.com/enetx/upnpfsm"
	"github.com/enetx/upnpfsm/avtransport"
)

var (
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrExpectation     = errors.New("scenario expectation failed")
)

// Step is one control point action. Force moves the transport to a state
// tag instead of invoking an action.
type Step struct {
	Action      string `yaml:"action"`
	URI         string `yaml:"uri"`
	MetaData    string `yaml:"metadata"`
	Speed       string `yaml:"speed"`
	Unit        string `yaml:"unit"`
	Target      string `yaml:"target"`
	Force       string `yaml:"force"`
	Expect      string `yaml:"expect"`
	ExpectError int    `yaml:"expectError"`
}

// Scenario is a named list of steps run against one transport.
type Scenario struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// LoadScenario decodes a YAML scenario. Unknown fields are rejected.
func LoadScenario(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Join(ErrInvalidScenario, err)
	}

	for i, step := range s.Steps {
		if (step.Action == "") == (step.Force == "") {
			return nil, fmt.Errorf("%w: step %d needs exactly one of action or force", ErrInvalidScenario, i+1)
		}
	}

	return &s, nil
}

// Run executes every step in order. It stops at the first step whose
// result differs from its expectations; a step without expectError must succeed.
func (s *Scenario) Run(ctx context.Context, avt *avtransport.AVTransport, logger *slog.Logger) error {
	logger.InfoContext(ctx, "Running scenario", "scenario", s.Name, "steps", len(s.Steps), "instance", avt.InstanceID())

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := step.apply(ctx, avt)

		logger.InfoContext(ctx, "Step executed",
			"step", i+1, "action", step.name(), "state", avt.CurrentState(), "error", err)

		if err := step.check(avt, err); err != nil {
			return fmt.Errorf("%w: step %d (%s): %w", ErrExpectation, i+1, step.name(), err)
		}
	}

	return nil
}

func (st Step) name() string {
	if st.Force != "" {
		return "Force " + st.Force
	}

	return st.Action
}

func (st Step) apply(ctx context.Context, avt *avtransport.AVTransport) error {
	if st.Force != "" {
		return avt.ForceState(ctx, fsm.State(st.Force))
	}

	speed := st.Speed
	if speed == "" {
		speed = "1"
	}

	switch st.Action {
	case "SetAVTransportURI":
		return avt.SetAVTransportURI(ctx, st.URI, st.MetaData)
	case "Stop":
		return avt.Stop(ctx)
	case "Play":
		return avt.Play(ctx, speed)
	case "Pause":
		return avt.Pause(ctx)
	case "Seek":
		return avt.Seek(ctx, st.Unit, st.Target)
	case "Next":
		return avt.Next(ctx)
	case "Previous":
		return avt.Previous(ctx)
	case "Record":
		return avt.Record(ctx)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidScenario, st.Action)
	}
}

func (st Step) check(avt *avtransport.AVTransport, err error) error {
	switch {
	case st.ExpectError != 0 && err == nil:
		return fmt.Errorf("expected error %d, got none", st.ExpectError)
	case st.ExpectError != 0 && avtransport.Code(err) != avtransport.ErrorCode(st.ExpectError):
		return fmt.Errorf("expected error %d, got %w", st.ExpectError, err)
	case st.ExpectError == 0 && err != nil:
		return err
	}

	if st.Expect != "" && avt.CurrentState() != fsm.State(st.Expect) {
		return fmt.Errorf("expected state %s, got %s", st.Expect, avt.CurrentState())
	}

	return nil
}
