package cli

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"

	"github.com/pomcpgo/belief"
	"github.com/pomcpgo/model"
)

// layout78 is the usual RockSample(7,8) rock placement.
var layout78 = []model.Position{
	{X: 2, Y: 0}, {X: 0, Y: 1}, {X: 3, Y: 1}, {X: 6, Y: 3},
	{X: 2, Y: 4}, {X: 3, Y: 4}, {X: 5, Y: 5}, {X: 1, Y: 6},
}

// RockLayout places rocks on a size×size grid. RockSample(7,8) gets its usual
// layout; anything else gets distinct cells chosen with seed.
func RockLayout(size, rocks int, seed uint64) ([]model.Position, error) {
	if size <= 0 || rocks <= 0 || rocks > 16 || rocks > size*size {
		return nil, errors.Errorf("cannot place %d rocks on a %dx%d grid", rocks, size, size)
	}
	if size == 7 && rocks == 8 {
		return append([]model.Position(nil), layout78...), nil
	}
	cells := rand.New(rand.NewSource(seed)).Perm(size * size)[:rocks]
	retVal := make([]model.Position, rocks)
	for i, c := range cells {
		retVal[i] = model.Position{X: c % size, Y: c / size}
	}
	return retVal, nil
}

// RockSample builds the model and its initial belief.
func RockSample(size, rocks int, seed uint64, discount float64) (*model.RockSample, belief.Sampler, error) {
	if discount <= 0 || discount > 1 {
		return nil, nil, errors.Errorf("discount %v outside (0, 1]", discount)
	}
	layout, err := RockLayout(size, rocks, seed)
	if err != nil {
		return nil, nil, err
	}
	m := model.NewRockSample(size, layout, discount)
	prior, err := belief.NewExact(m.InitialDistribution())
	if err != nil {
		return nil, nil, err
	}
	return m, prior, nil
}

// Tiger builds the tiger problem with the tiger equally likely behind either door.
func Tiger() (model.Generative, belief.Sampler) {
	return model.NewTiger(), belief.Uniform(2)
}
