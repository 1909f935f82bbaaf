package model

import "fmt"

// Tiger actions.
const (
	Listen Action = iota
	OpenLeft
	OpenRight
)

// Tiger states.
const (
	TigerLeft State = iota
	TigerRight
)

// Tiger observations.
const (
	HearLeft Observation = iota
	HearRight
)

const (
	tigerListenAccuracy = 0.85
	tigerListenCost     = -1.0
	tigerTreasure       = 10.0
	tigerMauled         = -100.0
	tigerDiscount       = 0.95
)

// NewTiger builds the tiger problem: a tiger hides behind one of two doors,
// listening reveals its side 85% of the time at a cost of 1, opening the
// treasure door pays 10 and the tiger door costs 100. Opening either door
// reshuffles the tiger uniformly.
func NewTiger() *Table {
	const S, A, O = 2, 3, 2
	t := NewTable(S, A, O, tigerDiscount)

	for s := State(0); s < S; s++ {
		t.SetTransition(s, Listen, s, 1)
		for s1 := State(0); s1 < S; s1++ {
			t.SetTransition(s, OpenLeft, s1, 1.0/S)
			t.SetTransition(s, OpenRight, s1, 1.0/S)
			t.SetReward(s, Listen, s1, tigerListenCost)
		}
	}

	t.SetObservation(TigerLeft, Listen, HearLeft, tigerListenAccuracy)
	t.SetObservation(TigerLeft, Listen, HearRight, 1-tigerListenAccuracy)
	t.SetObservation(TigerRight, Listen, HearRight, tigerListenAccuracy)
	t.SetObservation(TigerRight, Listen, HearLeft, 1-tigerListenAccuracy)
	for s1 := State(0); s1 < S; s1++ {
		for o := Observation(0); o < O; o++ {
			t.SetObservation(s1, OpenLeft, o, 1.0/O)
			t.SetObservation(s1, OpenRight, o, 1.0/O)
		}
	}

	for s1 := State(0); s1 < S; s1++ {
		t.SetReward(TigerRight, OpenLeft, s1, tigerTreasure)
		t.SetReward(TigerLeft, OpenLeft, s1, tigerMauled)
		t.SetReward(TigerLeft, OpenRight, s1, tigerTreasure)
		t.SetReward(TigerRight, OpenRight, s1, tigerMauled)
	}

	if err := t.Compile(); err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return t
}
