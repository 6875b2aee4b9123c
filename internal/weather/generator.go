package weather

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/xdy-forks/foundry-simple-weather/internal/calendar"
)

// Input is what a generator receives for one regeneration.
type Input struct {
	Date     calendar.DateData
	Previous *Data
	Season   Season
	Climate  Climate
	Humidity Humidity
	Biome    string
}

// Generator produces the weather for a new date. Only the authoritative
// process calls it.
type Generator interface {
	Generate(ctx context.Context, in Input) (*Data, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, in Input) (*Data, error)

func (f GeneratorFunc) Generate(ctx context.Context, in Input) (*Data, error) { return f(ctx, in) }

const (
	hexFlowerCells  = 19
	hexFlowerCenter = 9
)

// Offsets to the six neighbours of a cell in the 19-cell flower, numbered
// column by column.
var hexFlowerSteps = []int{-5, -4, -1, 1, 4, 5}

// StubGenerator is a placeholder for the real hex-flower weather model. It
// walks the cell index to a random neighbour and derives a temperature from
// season, climate and cell.
type StubGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewStubGenerator(seed uint64) *StubGenerator {
	return &StubGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (g *StubGenerator) Generate(_ context.Context, in Input) (*Data, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cell := hexFlowerCenter
	if in.Previous != nil {
		cell = in.Previous.HexFlowerCell() + hexFlowerSteps[g.rng.IntN(len(hexFlowerSteps))]
		if cell < 0 || cell >= hexFlowerCells {
			cell = in.Previous.HexFlowerCell()
		}
	}

	temp := seasonBase[in.Season] + climateShift[in.Climate] + float64(cell-hexFlowerCenter)*2
	return New(in.Date, in.Season, in.Humidity, in.Climate, cell, temp), nil
}

var seasonBase = map[Season]float64{Spring: 55, Summer: 78, Fall: 52, Winter: 30}

var climateShift = map[Climate]float64{Cold: -15, Temperate: 0, Hot: 15}
