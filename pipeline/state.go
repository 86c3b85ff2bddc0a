// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"fmt"
	"slices"
)

// State is a step of a single document run.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateChunking
	StateSummarizing
	StateAssembling
	StateDone
	StateFailed
)

var stateNames = [...]string{"idle", "extracting", "chunking", "summarizing", "assembling", "done", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

var transitions = map[State][]State{
	StateIdle:        {StateExtracting, StateFailed},
	StateExtracting:  {StateChunking, StateSummarizing, StateAssembling, StateFailed},
	StateChunking:    {StateSummarizing, StateAssembling, StateFailed},
	StateSummarizing: {StateAssembling, StateFailed},
	StateAssembling:  {StateDone, StateFailed},
}

// run tracks the state of one document as it moves through the pipeline.
type run struct {
	state   State
	history []State
}

func newRun() *run {
	return &run{state: StateIdle, history: []State{StateIdle}}
}

func (r *run) to(next State) error {
	if !slices.Contains(transitions[r.state], next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.state, next)
	}
	r.state = next
	r.history = append(r.history, next)
	return nil
}

// fail moves a non-terminal run to StateFailed.
func (r *run) fail() {
	if !r.state.Terminal() {
		r.state = StateFailed
		r.history = append(r.history, StateFailed)
	}
}
