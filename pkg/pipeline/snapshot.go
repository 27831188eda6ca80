package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/structmine/structmine/pkg/decomp"
)

// Snapshot codes for serialized element assignments. Non-negative values are
// block indices.
const (
	snapMaster       = -2
	snapLinking      = -3
	snapStairlinking = -4
)

type stepSnapshot struct {
	Detector string        `json:"detector"`
	Duration time.Duration `json:"duration"`
	Assigned float64       `json:"assigned"`
}

type decompSnapshot struct {
	NBlocks int            `json:"nblocks"`
	Conss   []int          `json:"conss"`
	Vars    []int          `json:"vars"`
	Stairs  []int          `json:"stairs"` // lower block per stairlinking var, -1 otherwise
	Chain   []stepSnapshot `json:"chain"`
}

// marshalFinished serializes the complete decompositions for the detection
// cache. Only assignments and provenance are stored; scores are recomputed.
func marshalFinished(decomps []*decomp.Partial) ([]byte, error) {
	snaps := make([]decompSnapshot, 0, len(decomps))
	for _, p := range decomps {
		m := p.Matrix()
		s := decompSnapshot{
			NBlocks: p.NBlocks(),
			Conss:   make([]int, m.NConss()),
			Vars:    make([]int, m.NVars()),
			Stairs:  make([]int, m.NVars()),
		}
		for c := 0; c < m.NConss(); c++ {
			cat, b := p.ConsAssignment(c)
			switch cat {
			case decomp.Master:
				s.Conss[c] = snapMaster
			case decomp.Block:
				s.Conss[c] = b
			default:
				return nil, fmt.Errorf("snapshot: constraint %d is %s", c, cat)
			}
		}
		for v := 0; v < m.NVars(); v++ {
			cat, b := p.VarAssignment(v)
			s.Stairs[v] = -1
			switch cat {
			case decomp.Master:
				s.Vars[v] = snapMaster
			case decomp.Linking:
				s.Vars[v] = snapLinking
			case decomp.Stairlinking:
				s.Vars[v] = snapStairlinking
				s.Stairs[v] = b
			case decomp.Block:
				s.Vars[v] = b
			default:
				return nil, fmt.Errorf("snapshot: variable %d is %s", v, cat)
			}
		}
		for _, st := range p.Chain() {
			s.Chain = append(s.Chain, stepSnapshot(st))
		}
		snaps = append(snaps, s)
	}
	return json.Marshal(snaps)
}

// unmarshalFinished rebuilds cached decompositions into m's finished pool.
func unmarshalFinished(m *decomp.Matrix, data []byte) error {
	var snaps []decompSnapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return fmt.Errorf("decode detection cache: %w", err)
	}
	for _, s := range snaps {
		if len(s.Conss) != m.NConss() || len(s.Vars) != m.NVars() {
			return fmt.Errorf("detection cache does not match model dimensions")
		}
		p := m.NewPartial()
		if err := p.EnsureBlocks(s.NBlocks); err != nil {
			return err
		}
		for c, code := range s.Conss {
			var err error
			if code == snapMaster {
				err = p.SetConsToMaster(c)
			} else {
				err = p.SetConsToBlock(c, code)
			}
			if err != nil {
				return err
			}
		}
		for v, code := range s.Vars {
			var err error
			switch code {
			case snapMaster:
				err = p.SetVarToMaster(v)
			case snapLinking:
				err = p.SetVarToLinking(v)
			case snapStairlinking:
				err = p.SetVarToStairlinking(v, s.Stairs[v])
			default:
				err = p.SetVarToBlock(v, code)
			}
			if err != nil {
				return err
			}
		}
		for _, st := range s.Chain {
			p.AppendStep(decomp.Step(st))
		}
		if _, err := m.AddToFinished(p); err != nil {
			return err
		}
	}
	return nil
}
