// Package generator synthesises transaction batches with known laundering patterns.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/muletrace/internal/domain"
)

// Planted records the patterns injected into a dataset.
type Planted struct {
	Rings          [][]string
	FanInHubs      []string
	FanOutHubs     []string
	VelocityActors []string
}

// Dataset contains generated transactions and the patterns hidden in them.
type Dataset struct {
	Transactions []domain.TransactionRecord
	Planted      Planted
}

// Generator produces synthetic transaction batches.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	cfg = cfg.withDefaults()
	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

type edge struct{ from, to string }

// Generate synthesises a dataset. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	var (
		edges   []edge
		planted Planted
	)

	payers := g.cfg.Accounts / 2
	payees := g.cfg.Accounts - payers
	for i := 0; i < g.cfg.BackgroundTransactions; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return Dataset{}, err
			}
		}
		edges = append(edges, edge{
			from: backgroundAccount(g.rand.Intn(payers)),
			to:   backgroundAccount(payers + g.rand.Intn(payees)),
		})
	}

	for r := 0; r < g.cfg.Rings; r++ {
		n := g.cfg.MinRingLength + g.rand.Intn(g.cfg.MaxRingLength-g.cfg.MinRingLength+1)
		members := make([]string, n)
		for i := range members {
			members[i] = fmt.Sprintf("RING-%02d-%d", r+1, i+1)
		}
		for i := range members {
			edges = append(edges, edge{from: members[i], to: members[(i+1)%n]})
		}
		planted.Rings = append(planted.Rings, members)
	}

	for h := 0; h < g.cfg.FanInHubs; h++ {
		hub := fmt.Sprintf("COLLECT-%02d", h+1)
		for k := 0; k < g.cfg.FanWidth; k++ {
			edges = append(edges, edge{from: fmt.Sprintf("SMURF-IN-%02d-%02d", h+1, k+1), to: hub})
		}
		planted.FanInHubs = append(planted.FanInHubs, hub)
	}

	for h := 0; h < g.cfg.FanOutHubs; h++ {
		hub := fmt.Sprintf("DISPERSE-%02d", h+1)
		for k := 0; k < g.cfg.FanWidth; k++ {
			edges = append(edges, edge{from: hub, to: fmt.Sprintf("SMURF-OUT-%02d-%02d", h+1, k+1)})
		}
		planted.FanOutHubs = append(planted.FanOutHubs, hub)
	}

	for v := 0; v < g.cfg.VelocityActors; v++ {
		actor := fmt.Sprintf("BURST-%02d", v+1)
		for k := 0; k < g.cfg.VelocityCount; k++ {
			edges = append(edges, edge{from: actor, to: backgroundAccount(payers + g.rand.Intn(payees))})
		}
		planted.VelocityActors = append(planted.VelocityActors, actor)
	}

	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}

	g.rand.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })

	txs := make([]domain.TransactionRecord, len(edges))
	for i, e := range edges {
		amount := decimal.New(100_00+g.rand.Int63n(9_900_00), -2)
		txs[i] = domain.TransactionRecord{
			TransactionID: fmt.Sprintf("TX-%07d", i+1),
			SenderID:      e.from,
			ReceiverID:    e.to,
			Timestamp:     g.cfg.Start.Add(time.Duration(i) * time.Minute),
			Amount:        &amount,
		}
	}

	return Dataset{Transactions: txs, Planted: planted}, nil
}

func backgroundAccount(i int) string {
	return fmt.Sprintf("ACC-%05d", i+1)
}
